// Package orchestration coordinates a fixed pool of search workers: it sizes
// the shared cursor, launches the workers, applies the wait-then-terminate
// timeout policy and collects the outcomes of the workers that finished in
// time. Presentation and metrics hook in through the Observer interface.
package orchestration
