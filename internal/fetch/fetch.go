// Package fetch models the lifecycle of one screen's data load.
//
// A State starts Idle, moves to Loading when Run starts the call, and ends
// in Loaded or Failed. Handlers build a State per request and render from it.
package fetch

import (
	"context"
)

// Status is the phase of a data load.
type Status int

const (
	Idle Status = iota
	Loading
	Loaded
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State holds the outcome of loading a value of type T.
// Data is only meaningful when Status is Loaded; Err only when Failed.
type State[T any] struct {
	Status Status
	Data   T
	Err    error
}

// Start moves an idle state to Loading. It reports false if the state
// already left Idle.
func (s *State[T]) Start() bool {
	if s.Status != Idle {
		return false
	}
	s.Status = Loading
	return true
}

// Resolve finishes a Loading state with data or err.
func (s *State[T]) Resolve(data T, err error) {
	if s.Status != Loading {
		return
	}
	if err != nil {
		var zero T
		s.Status, s.Data, s.Err = Failed, zero, err
		return
	}
	s.Status, s.Data, s.Err = Loaded, data, nil
}

func (s *State[T]) IsLoaded() bool { return s.Status == Loaded }
func (s *State[T]) IsFailed() bool { return s.Status == Failed }

// Run performs fn once and returns the resulting state.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) State[T] {
	var s State[T]
	s.Start()
	if err := ctx.Err(); err != nil {
		s.Resolve(s.Data, err)
		return s
	}
	s.Resolve(fn(ctx))
	return s
}
