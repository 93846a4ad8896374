package walk

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// Unlimited is the MaxDepth that never stops descent.
const Unlimited = math.MaxInt

// ErrInvalidDepth is returned for a negative MaxDepth.
var ErrInvalidDepth = errors.New("max depth must not be negative")

// Options configures a walk. The zero value visits only the root; use
// DefaultOptions for an unbounded walk.
type Options struct {
	// MaxDepth bounds descent. The root is depth 0, and a directory at
	// depth d is entered only when d < MaxDepth.
	MaxDepth int

	// FollowLinks reads attributes through symbolic links and descends
	// into linked directories. Loop detection is active only when set.
	FollowLinks bool

	// Logger receives debug records for failures reported as events.
	// Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns an unbounded walk that does not follow links.
func DefaultOptions() Options {
	return Options{MaxDepth: Unlimited}
}

func (o Options) validate() error {
	if o.MaxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, o.MaxDepth)
	}

	return nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return o.Logger
}
