package vectorstore

import "errors"

var (
	ErrUnknownBackend  = errors.New("unknown vector store backend")
	ErrUnknownMetric   = errors.New("unknown similarity metric")
	ErrNotConnected    = errors.New("vector store not connected")
	ErrUnreachable     = errors.New("vector store unreachable")
	ErrBatchMisaligned = errors.New("insert batch slices misaligned")
)
