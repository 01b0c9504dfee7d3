// Package viz renders run results and a live view in the terminal.
//
// [Summary] prints a boxed table of outputs with sparklines. [Model] is a
// Bubble Tea program that advances a [Simulation] one year per tick and
// charts the selected variable with asciigraph.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to the start date
//	Tab   - Chart the next variable
//	T     - Cycle color themes
//	?     - Show help
//	Q     - Quit
package viz
