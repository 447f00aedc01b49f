package mocks

import "errors"

var (
	// ErrTextNotFound is returned by TextFetcher for URLs without canned text.
	ErrTextNotFound = errors.New("text not found")

	// ErrNoResponse is returned by LLMCaller when no response is queued.
	ErrNoResponse = errors.New("no llm response queued")
)
