// Package app is the composition root of gymplanner.
//
// # Overview
//
// Open turns a config.Config into a running core: a remote document channel,
// a local cache, the state.Store on top of them, the timer.Service and the
// session.Controller. The TUI and the one-shot CLI commands both start from a
// Runtime.
//
//	Open()
//	  ├─────> config.LoadEnvFile() + config.Load()
//	  ├─────> logging.Setup()          rotated log file (the TUI owns stdout)
//	  ├─────> prefs.Load()
//	  ├─────> newRemote()              memory | redisdoc | mongodoc
//	  ├─────> newCache()               file | freecache
//	  ├─────> state.New()
//	  ├─────> timer.NewService()
//	  ├─────> session.New()            subscribes to store events
//	  ├─────> serveMetrics()           only when metrics_addr is set
//	  └─────> Store.Bind(identity)     only when an identity is configured
//
// Run is the TUI entry point: Open, ui.Run until the user quits, Close.
//
// # Shutdown
//
// Close detaches the controller, flushes edits still waiting for the debounce,
// closes the store and the timers, then the metrics server, the remote client
// and the log file. Every step runs; their errors are combined with multierr.
//
// # Errors
//
// Open fails when the config is invalid or the chosen remote cannot be
// reached within connectTimeout. Once running, remote trouble is reported
// through the store's View and never ends the program.
package app
