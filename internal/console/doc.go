// Package console provides a virtual lamp array drawn in the terminal.
//
// Each lamp is two true-colour cells laid out in a grid, redrawn in place
// on every frame. Source wraps the array as a hotplug.Source with a single
// device so the engine can drive it exactly like hardware:
//
//	arr := console.NewArray(os.Stdout, 104, 21)
//	ctrl := engine.New(console.NewSource(arr), cfg)
package console
