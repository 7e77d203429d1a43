//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/texsketch/texsketch/backend-go/internal/engine"
	"github.com/texsketch/texsketch/backend-go/internal/geometry"
	"github.com/texsketch/texsketch/backend-go/internal/ops"
)

var editor *engine.Editor

func main() {
	editor = engine.New(engine.DefaultOptions())

	// Create the engine API object
	texsketchEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	texsketchEngine.Set("applyOperation", js.FuncOf(applyOperation))
	texsketchEngine.Set("loadDocument", js.FuncOf(loadDocument))
	texsketchEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	texsketchEngine.Set("undo", js.FuncOf(undo))
	texsketchEngine.Set("redo", js.FuncOf(redo))

	// --- Queries (frontend ← backend) ---
	texsketchEngine.Set("render", js.FuncOf(render))
	texsketchEngine.Set("hitTest", js.FuncOf(hitTest))
	texsketchEngine.Set("getSelectionFrame", js.FuncOf(getSelectionFrame))
	texsketchEngine.Set("getDocument", js.FuncOf(getDocument))
	texsketchEngine.Set("getHistoryState", js.FuncOf(getHistoryState))

	// Register on global scope
	js.Global().Set("texsketchEngine", texsketchEngine)

	// Signal that WASM is ready
	js.Global().Set("texsketchWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorValue(err error) js.Value {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func marshal(v any) js.Value {
	data, err := json.Marshal(v)
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

// applyOperation takes an operation envelope as JSON and returns the result
// as JSON.
func applyOperation(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing operation JSON"})
	}
	op, err := ops.Decode([]byte(args[0].String()))
	if err != nil {
		return errorValue(err)
	}
	res, err := ops.Apply(editor, op)
	if err != nil {
		return errorValue(err)
	}
	return marshal(res)
}

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}
	op := ops.Operation{Type: ops.TypeLoadDocument, Payload: json.RawMessage(args[0].String())}
	if _, err := ops.Apply(editor, op); err != nil {
		return errorValue(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	editor.LoadSampleDocument()
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func undo(this js.Value, args []js.Value) interface{} {
	if err := editor.Undo(); err != nil {
		return errorValue(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func redo(this js.Value, args []js.Value) interface{} {
	if err := editor.Redo(); err != nil {
		return errorValue(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(editor.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	hit := editor.HitTest(geometry.Point{X: args[0].Float(), Y: args[1].Float()})
	return marshal(hit)
}

func getSelectionFrame(this js.Value, args []js.Value) interface{} {
	f, ok := editor.SelectionFrame()
	if !ok {
		return js.Null()
	}
	return marshal(f)
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return marshal(editor.Document())
}

func getHistoryState(this js.Value, args []js.Value) interface{} {
	undo, redo := editor.HistoryDepth()
	return js.ValueOf(map[string]interface{}{
		"canUndo":   editor.CanUndo(),
		"canRedo":   editor.CanRedo(),
		"undoDepth": undo,
		"redoDepth": redo,
		"gesture":   editor.Gesture(),
	})
}
