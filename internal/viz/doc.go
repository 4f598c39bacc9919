// Package viz provides terminal views of a running trajectory.
//
// [Model] is a Bubble Tea program that advances a system with the theta
// step on every tick and shows the state, the Newton diagnostics of the last
// step, a time plot and a braille phase portrait.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	S     - Single step while paused
//	A     - Cycle scheme (explicit, Tustin, implicit)
//	R     - Reset to the initial state
//	Tab   - Select parameter
//	↑/↓   - Adjust selected parameter by ±5%
//	Q     - Quit
package viz
