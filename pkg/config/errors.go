package config

import "errors"

// Sentinel errors for configuration validation.
var (
	ErrInvalidExecutionTime     = errors.New("invalid max execution time: must be non-negative")
	ErrInvalidNodeExecutionTime = errors.New("invalid max node execution time: must be non-negative")
	ErrInvalidMaxNodes          = errors.New("invalid max nodes: must be non-negative")
	ErrInvalidMaxEdges          = errors.New("invalid max edges: must be non-negative")
	ErrInvalidCacheTTL          = errors.New("invalid cache TTL: must be non-negative")
	ErrInvalidMaxCacheSize      = errors.New("invalid max cache size: must be non-negative")
	ErrInvalidMergeStrategy     = errors.New("invalid default merge strategy")
)
