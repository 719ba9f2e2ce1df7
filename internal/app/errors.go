package service

import "errors"

// Sentinel kinds for aggregation run errors.
var (
	// ErrRunInFlight rejects a trigger for a scope that already has a run
	// going. Triggers are rejected, not queued.
	ErrRunInFlight = errors.New("aggregation run already in flight for scope")
	// ErrInvalidRequest marks a trigger with no champion or an unknown
	// queue.
	ErrInvalidRequest = errors.New("invalid aggregation request")
	// ErrNoPlayers marks a run that could not seed any players from the
	// ladder.
	ErrNoPlayers = errors.New("no players seeded for aggregation run")
)
