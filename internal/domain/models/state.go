package models

// RequestStatus is the phase of a view-model request.
type RequestStatus string

const (
	StatusIdle    RequestStatus = "idle"
	StatusLoading RequestStatus = "loading"
	StatusSuccess RequestStatus = "success"
	StatusFailure RequestStatus = "failure"
)

// RequestState is a tagged variant: Payload is set only on Success, Message only on Failure.
// Generation is the ticket of the request that produced the state.
type RequestState[T any] struct {
	Status     RequestStatus `json:"status"`
	Payload    *T            `json:"payload,omitempty"`
	Message    string        `json:"message,omitempty"`
	Generation uint64        `json:"generation"`
}

func Idle[T any](gen uint64) RequestState[T] {
	return RequestState[T]{Status: StatusIdle, Generation: gen}
}

func Loading[T any](gen uint64) RequestState[T] {
	return RequestState[T]{Status: StatusLoading, Generation: gen}
}

func Success[T any](gen uint64, payload *T) RequestState[T] {
	return RequestState[T]{Status: StatusSuccess, Payload: payload, Generation: gen}
}

func Failure[T any](gen uint64, message string) RequestState[T] {
	return RequestState[T]{Status: StatusFailure, Message: message, Generation: gen}
}

func (s RequestState[T]) IsLoading() bool { return s.Status == StatusLoading }
