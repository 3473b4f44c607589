// Package config loads caldera's configuration surface: which rules run,
// which files are discovered, the target Python version, and output
// formatting — from a TOML project file (`caldera.toml`) and from JSONC
// settings blocks an editor embeds directly (e.g. an LSP
// initializationOptions payload). Precedence is command-line flags over
// config file over environment variable over built-in default, with
// target-version provenance tracked through every layer so a diagnostic
// can report which one a rule actually consulted.
package config
