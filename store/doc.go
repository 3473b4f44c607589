// Package store implements the file store: process-wide interning of
// paths into stable handles and the single choke point every byte of
// source text flows through on its way into the query engine.
//
// Store itself knows nothing about parsing, rules, or diagnostics — it
// only tracks identity (path -> File), liveness (deleted or not), and
// revision (how many times a handle's content has changed). Everything
// above it treats a File as an opaque dependency key.
package store
