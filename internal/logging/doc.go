// Package logging provides a unified logging interface for the search
// application. It abstracts the underlying logging implementation, allowing
// consistent logging across components while supporting multiple backends.
//
// The persisted run report is not produced here; see package report.
package logging
