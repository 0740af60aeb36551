package ui

// Symbols used in status output.
const (
	SymbolFail     = "✗"
	SymbolComplete = "✓"
	SymbolRetry    = "."
)
