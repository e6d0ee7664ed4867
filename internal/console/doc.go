// Package console renders operator-facing output: warnings, progress bars,
// and summary tables. Diagnostic logging stays on the zap logger; this
// package only owns what a human watching the terminal needs to see.
package console
