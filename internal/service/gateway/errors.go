package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	xhttp "StockTime/pkg/http"
)

const (
	DefaultPredictMessage  = "Failed to fetch prediction"
	DefaultTrackingMessage = "Failed to fetch tracking data"
)

// GatewayError is a transport or service failure. Status is 0 when no response was received.
type GatewayError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// MessageOf returns the human-readable message for a failed call, or fallback when err carries none.
func MessageOf(err error, fallback string) string {
	var ge *GatewayError
	if errors.As(err, &ge) && strings.TrimSpace(ge.Message) != "" {
		return ge.Message
	}
	return fallback
}

type errorBody struct {
	Error string `json:"error"`
}

func newGatewayError(op, fallback string, err error) *GatewayError {
	ge := &GatewayError{Op: op, Message: fallback, Err: err}

	var se *xhttp.StatusError
	if errors.As(err, &se) {
		ge.Status = se.Code
		var body errorBody
		if json.Unmarshal(se.Body, &body) == nil && strings.TrimSpace(body.Error) != "" {
			ge.Message = body.Error
		}
		return ge
	}
	// no response: surface the transport message
	if err != nil {
		ge.Message = err.Error()
	}
	return ge
}
