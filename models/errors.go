package models

// Error types used across the engine, attached with errors.WithType so
// callers can branch on errors.IsType without string matching messages.
const (
	// ErrTypeConfig marks invalid size or threshold parameters. Raised before
	// any build work starts; an already published tree is never affected.
	ErrTypeConfig = "config_invalid"

	// ErrTypeGraphConsistency marks a containment invariant violation during
	// a hierarchical build. Fatal: no partial tree is published.
	ErrTypeGraphConsistency = "graph_inconsistent"
)
