package domain

import "go.trai.ch/zerr"

var (
	// ErrTargetAlreadyExists is returned when attempting to add a target with a name that already exists.
	ErrTargetAlreadyExists = zerr.New("target already exists")

	// ErrMissingDependency is returned when a target references a dependency that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the target dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTargetNotFound is returned when a requested target is not found in the graph.
	ErrTargetNotFound = zerr.New("target not found")

	// ErrNoTargetsSpecified is returned when a build is requested with no target names.
	ErrNoTargetsSpecified = zerr.New("no targets specified")
)
