package llm

import "fmt"

// APIError is a non-2xx response from the model host.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: status=%d", e.StatusCode)
}

// UnreachableError indicates the model host is not reachable, typically a
// local Ollama that is not running.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("model host unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("model host unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// ModelNotFoundError indicates the requested model is not pulled on the host.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model not found: %s", e.APIError.Error())
}

// BadRequestError indicates a 400 validation problem.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("bad request: %s", e.APIError.Error())
}

// RateLimitError indicates a 429 response; retried with backoff.
type RateLimitError struct{ *APIError }

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

// ServerError indicates a 5xx from the host; retried with backoff.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string {
	return fmt.Sprintf("model host error: %s", e.APIError.Error())
}
