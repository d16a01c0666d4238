package domain

import "errors"

// ErrGraphNotFound is returned when a graph ID cannot be found in the store.
var ErrGraphNotFound = errors.New("graph not found")

// ErrRunNotFound is returned when a run ID cannot be found in the store.
var ErrRunNotFound = errors.New("run not found")

// ErrInvalidGraph is returned when a graph definition fails validation.
var ErrInvalidGraph = errors.New("invalid graph")

// ErrInvalidInput is returned when an initial state does not match the graph's input schema.
var ErrInvalidInput = errors.New("invalid input")
