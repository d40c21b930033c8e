package httputil

import (
	"time"

	"github.com/matzehuels/footpredict/pkg/errors"
)

// Kind tags the result of a single attempt.
type Kind int

const (
	Success Kind = iota
	NetworkFailure
	Timeout
	HTTPError
	ParseFailure
)

// String returns the short name used in logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case NetworkFailure:
		return "network"
	case Timeout:
		return "timeout"
	case HTTPError:
		return "http"
	case ParseFailure:
		return "parse"
	default:
		return "unknown"
	}
}

// Outcome is the result of one attempt. Payload is set for Success, Status
// and Body for HTTPError, and Cause for the remaining failures.
type Outcome struct {
	Kind     Kind
	Payload  []byte
	Status   int
	Body     string
	Cause    error
	Duration time.Duration
}

// OK reports whether the attempt succeeded.
func (o Outcome) OK() bool { return o.Kind == Success }

// Err converts a failed outcome into the client error taxonomy.
// It returns nil for Success.
func (o Outcome) Err() error {
	switch o.Kind {
	case Success:
		return nil
	case Timeout:
		return errors.Wrap(errors.ErrCodeTimeout, o.Cause, "request timed out after %s", o.Duration.Round(time.Millisecond))
	case HTTPError:
		return &errors.StatusError{Status: o.Status, Body: o.Body}
	case ParseFailure:
		return errors.Wrap(errors.ErrCodeParse, o.Cause, "invalid response body")
	default:
		return errors.Wrap(errors.ErrCodeNetwork, o.Cause, "request failed")
	}
}

// serverFault reports whether the outcome says something about backend
// health, as opposed to a problem with the request itself.
func (o Outcome) serverFault() bool {
	switch o.Kind {
	case NetworkFailure, Timeout:
		return true
	case HTTPError:
		return o.Status >= 500
	default:
		return false
	}
}
