package service

import "errors"

var (
	// ErrConfiguration means a tokenizer or embedding model could not be loaded.
	ErrConfiguration = errors.New("configuration failure")

	// ErrEmptyInput means ranking or indexing was asked to work on zero chunks.
	ErrEmptyInput = errors.New("empty input")

	// ErrIndexNotBuilt means retrieval was attempted before an index was built.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrProvider means an embedding provider call failed.
	ErrProvider = errors.New("embedding provider failure")

	// ErrBackendUnavailable means the index was built by a backend this process does not have.
	ErrBackendUnavailable = errors.New("embedding backend unavailable")

	// ErrDimensionMismatch means a query vector does not match the index dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnknownTier means the assembler was handed a tier outside T1..T4.
	ErrUnknownTier = errors.New("unknown tier")

	// ErrCorruptPayload means a serialized index could not be decoded.
	ErrCorruptPayload = errors.New("corrupt index payload")
)
