// Package log captures a machine-readable trace of the subscription publish
// pipeline.
//
// It is separate from operational logging (slog): where slog carries what an
// operator needs to see, the trace records every publish request and
// response, the acknowledgements they carried, each dispatched, dropped or
// republished notification, and state changes of subscriptions, workers and
// the manager. The uasub-trace tool reads these files.
//
// # Basic Usage
//
//	// For development: mirror trace events to slog
//	cfg.TraceLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write a binary trace file
//	cfg.TraceLogger, _ = log.NewFileLogger("/var/log/uasub/client.utrace")
//
//	// Both
//	cfg.TraceLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Trace files are a concatenation of CBOR items, one per Event, using integer
// map keys. Files are appended to, never rewritten.
package log
