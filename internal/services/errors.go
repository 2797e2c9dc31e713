package services

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

// ChatError is the single failure kind surfaced by a chat turn. The provider
// or storage error that caused it is kept for logging and errors.Is checks.
type ChatError struct {
	Err error
}

func (e *ChatError) Error() string { return "Failed to generate response: " + e.Err.Error() }

func (e *ChatError) Unwrap() error { return e.Err }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }
