package models

import "errors"

var (
	ErrEmbeddingFailure       = errors.New("embedding failure")
	ErrIndexQueryFailure      = errors.New("index query failure")
	ErrGenerationFailure      = errors.New("generation failure")
	ErrPartialRecord          = errors.New("partial record")
	ErrInvalidEmbeddingConfig = errors.New("invalid embedding config")
)

var (
	ErrEmptyQuery    = errors.New("empty query")
	ErrSessionBusy   = errors.New("session busy")
	ErrTurnDiscarded = errors.New("turn discarded by reset")
)
