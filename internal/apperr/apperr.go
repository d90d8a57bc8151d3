// Package apperr defines the error taxonomy shared by the sync engine and
// its callers.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrConfig marks missing or invalid configuration. Operations fail fast
	// with it and never attempt I/O.
	ErrConfig = errors.New("configuration error")

	// ErrSource marks a database connectivity or procedure failure.
	ErrSource = errors.New("source error")

	// ErrTransmission marks a network-level failure reaching the remote API.
	ErrTransmission = errors.New("transmission error")

	// ErrAPIRejected marks a reachable API that declined or garbled the batch.
	ErrAPIRejected = errors.New("api rejected batch")

	// ErrAcknowledgment marks a failed local status update after the remote
	// API already accepted the batch.
	ErrAcknowledgment = errors.New("acknowledgment error")

	// ErrRunInProgress is returned when a run is requested while another holds the gate.
	ErrRunInProgress = errors.New("sync run already in progress")
)

// Kind returns a stable label for err, suitable for logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrConfig):
		return "config"

	case errors.Is(err, ErrSource):
		return "source"

	case errors.Is(err, ErrTransmission):
		return "transmission"

	case errors.Is(err, ErrAPIRejected):
		return "api_rejected"

	case errors.Is(err, ErrAcknowledgment):
		return "acknowledgment"

	case errors.Is(err, ErrRunInProgress):
		return "in_progress"

	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"

	case errors.Is(err, context.Canceled):
		return "canceled"

	default:
		return "internal"
	}
}

// HTTPStatus maps err to the status code the control surface answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrConfig):
		return http.StatusBadRequest

	case errors.Is(err, ErrRunInProgress):
		return http.StatusConflict

	case errors.Is(err, ErrSource),
		errors.Is(err, ErrAcknowledgment):
		return http.StatusServiceUnavailable

	case errors.Is(err, ErrTransmission),
		errors.Is(err, ErrAPIRejected):
		return http.StatusBadGateway

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}
