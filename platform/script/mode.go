package script

// Mode selects how an evaluator runs a compiled snippet.
type Mode int

const (
	// Sync runs the snippet to completion without yielding the event loop.
	Sync Mode = iota

	// Async runs the snippet as a suspendable function. The evaluator yields
	// the event loop at each suspension point and replies once it settles.
	Async
)

func (m Mode) String() string {
	switch m {
	case Sync:
		return "sync"
	case Async:
		return "async"
	default:
		return "unknown"
	}
}
