// Package stage provides the uniform outcome returned by every pipeline stage.
package stage

// Status is the state of a stage result.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result wraps the outcome of one stage run. A failed result always carries
// a message and a successful one never does.
type Result[T any] struct {
	Status Status `json:"status"`
	Data   T      `json:"data"`
	Err    string `json:"error,omitempty"`
}

// Success builds a successful result.
func Success[T any](data T) Result[T] {
	return Result[T]{Status: StatusSuccess, Data: data}
}

// Failed builds a failed result. An empty message is replaced by "unknown error".
func Failed[T any](message string) Result[T] {
	if message == "" {
		message = "unknown error"
	}

	return Result[T]{Status: StatusFailed, Err: message}
}

// FailedErr builds a failed result from err.
func FailedErr[T any](err error) Result[T] {
	if err == nil {
		return Failed[T]("")
	}

	return Failed[T](err.Error())
}

// IsSuccess reports whether the stage succeeded.
func (r Result[T]) IsSuccess() bool {
	return r.Status == StatusSuccess
}

// IsPending reports whether the result was never filled.
func (r Result[T]) IsPending() bool {
	return r.Status == "" || r.Status == StatusPending
}
