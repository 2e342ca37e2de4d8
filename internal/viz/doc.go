// Package viz is the live terminal view of a layout.
//
// The Bubble Tea update loop owns the controller: every frame it runs the
// completions posted by backend calls and, when the scheduler is running
// and its delay has passed, steps it once. Nothing else touches the layout
// while the view is up.
//
// # Key Bindings
//
//	Tab/↓/j  - Select next particle
//	↑/k      - Select previous particle
//	Enter    - Drill into the selection, or back up
//	A        - Add a child descriptor
//	X        - Delete the selection
//	E        - Ask the data source to reason over the selection
//	R        - Start relating from the selection; R again drops on the target
//	Esc      - Cancel a staged relation
//	Space    - Pause/Resume the layout
//	T        - Cycle color themes
//	Q        - Quit
package viz
