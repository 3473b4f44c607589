// Package lsp implements a Language Server Protocol session for Python
// source files, mediating a long-lived editor connection on top of the
// file store, query engine, and rule runner.
//
// The package is split into two halves:
//
//   - [Session] owns all session state (open documents, the Incoming and
//     Outgoing request correlation tables, dependency bookkeeping) and
//     runs a single-threaded cooperative main loop over a channel of
//     session events. Heavy analysis work is dispatched onto a bounded
//     worker pool and its results flow back in as events, so the main
//     loop remains the sole mutator of session state and never blocks on
//     rule evaluation.
//   - [Server] wires github.com/tliron/glsp's JSON-RPC handler to a
//     Session, translating each LSP callback into a session event and
//     each session event's eventual outcome back into a notification or
//     response.
//
// # Request correlation and cancellation
//
// Every incoming request is tracked in the Incoming table from receipt to
// response; $/cancelRequest transitions the matching entry to cancelled
// rather than removing it, so a response that arrives after cancellation
// is filtered into a single synthesized "request cancelled" reply instead
// of being delivered twice or not at all. Notifications bypass both
// tables entirely: they are fire-and-forget.
//
// # Edit intake and retry
//
// A document change notification rewrites the file's content in the
// backing virtual filesystem and bumps the File Store's revision for that
// file. An analysis already in flight against the old revision observes
// its context being cancelled; rather than failing the request outright,
// the main loop re-posts it onto the event channel as a retry, so the
// client still receives exactly one response, computed against the
// content that was current when the retry ran.
//
// # Position encoding
//
// Positions on the wire are 0-based and measured in UTF-16 code units:
// glsp implements LSP 3.16, which has no position encoding negotiation, so
// initialize always selects UTF-16. Outbound diagnostics are produced by
// [diag.Renderer], which already performs this conversion; inbound hover
// positions are converted with [location.LineIndex] via [PositionFromLSP].
//
// # Limitations
//
// Only file:// URIs are recognized; other schemes (untitled:,
// vscode-notebook-cell://, etc.) are ignored by didOpen. Only .py and
// .pyi files receive diagnostics; a notebook's constituent cells are
// addressed through the composite File the Virtual FS Layer exposes for
// it, not through separate per-cell URIs. Hover reports the message of a
// diagnostic covering the hovered position, computed by the Rule Runner;
// go-to-definition, completion, document symbols, and formatting are
// no-op entry points that return an empty reply without running any
// analysis.
package lsp
