package graph

import (
	"errors"

	"github.com/flowforge/taskgraph/pkg/taskerr"
)

// Errors returned by graph mutation. The three that correspond to error
// kinds named in the engine's error design reuse taskerr's sentinels so
// callers can match with errors.Is(err, taskerr.ErrCycleDetected) regardless
// of whether the rejection happened in pkg/graph or deeper in the runner.
var (
	ErrDuplicateIdentity = taskerr.ErrDuplicateIdentity
	ErrDuplicateEdge     = taskerr.ErrDuplicateIdentity
	ErrMissingEndpoint   = taskerr.ErrMissingEndpoint
	ErrCycleDetected     = taskerr.ErrCycleDetected

	ErrNodeNotFound = errors.New("graph: node not found")
	ErrEdgeNotFound = errors.New("graph: edge not found")
)
