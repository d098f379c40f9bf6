// Package domain holds shared sentinel errors for the recommendation core.
package domain

import "errors"

var (
	// ErrUnknownSlot signals an update against a slot name outside the recognized set.
	ErrUnknownSlot = errors.New("unknown slot")
	// ErrInvalidSlotValue signals a value outside a slot's declared domain.
	ErrInvalidSlotValue = errors.New("invalid slot value")
	// ErrSessionNotFound signals a missing conversation session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrLLMProviderError signals a chat-completion provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrMalformedResponse signals model output that failed every JSON extraction stage.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrNoDocuments signals an empty retrieval result.
	ErrNoDocuments = errors.New("no documents retrieved")
)
