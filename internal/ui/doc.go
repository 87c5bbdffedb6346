// Package ui provides the gymplanner terminal interface built on Bubble Tea.
//
// # Architecture Overview
//
// The UI is a thin view over the core. It never holds its own copy of the
// document: every frame renders the last state.View taken from the store,
// and every key that changes data becomes a store Update or a session
// command. Rejected commands are shown in the command bar and change nothing.
//
// # Views
//
//   - Week: the seven days with exercise counts, and the plan of the
//     selected day (add and remove exercises, start a workout)
//   - Workout: the active session with logged sets per exercise, the master
//     timer and the rest countdown
//   - History: archived workouts, newest first, with volume per workout
//
// # Overlays
//
// Forms (textinput) collect new exercises and sets. Confirmations cover
// replacing, finishing and discarding a workout and clearing the history.
// When the controller reports an unfinished session the resume prompt opens
// once; esc postpones it and enter in the Workout view brings it back.
//
// # Updates
//
// Run forwards store, controller and timer events into the program as
// messages, and a one second tick re-reads the snapshot so the clocks keep
// moving. Both paths end in Model.refresh.
//
// # Preferences
//
// Theme, rest length and the selected day are written to prefs.toml on quit
// and when the theme changes.
package ui
