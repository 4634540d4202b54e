package pathfinding

import (
	"io"
	"log"
	"time"
)

type Verbosity int

const (
	VerbosityNone Verbosity = iota
	VerbosityBasic
	VerbosityFull
)

type Config struct {
	// MaxRange bounds how many steps from the start a node may be expanded.
	MaxRange int
	// MinY is the world floor; resolved positions below it are rejected.
	MinY int

	AllowSwimming bool
	// PruneReverse skips the direction that would step straight back to the parent.
	PruneReverse bool
	// JumpPointSearch greedily repeats a move while it does not worsen the heuristic.
	// Faster, but can produce strange results.
	JumpPointSearch bool
	JumpPointLimit  int

	Verbosity Verbosity
	Logger    *log.Logger

	// Observer receives debug node sets when non-nil and enabled.
	Observer *DebugObserver
	// DebugSleep pauses after each expansion and publishes interim sets.
	DebugSleep time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRange:       64,
		MinY:           0,
		AllowSwimming:  true,
		PruneReverse:   true,
		JumpPointLimit: 16,
	}
}

func (c Config) logger() *log.Logger {
	if c.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return c.Logger
}
