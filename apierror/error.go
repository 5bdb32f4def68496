package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a fetch failure so that callers can choose a retry or
// reporting strategy without string-matching error text.
type Kind string

const (
	// KindTransport is a network or HTTP-level failure.
	KindTransport Kind = "transport"
	// KindMalformed is a response whose JSON shape is unexpected and is not
	// the documented end-of-data signal.
	KindMalformed Kind = "malformed-response"
	// KindTimeout is a deadline exceeded while waiting for a response.
	KindTimeout Kind = "timeout"
)

// Error is the type of error returned by a network client. It carries the
// failure kind and, when available, an HTTP status code so that API clients
// can interpret the error message.
type Error struct {
	err    error
	status int
	kind   Kind
}

type ErrorMessage struct {
	Message string `json:",omitempty"`
	Status  int    `json:",omitempty"`
	Kind    Kind   `json:",omitempty"`
}

var serverError []byte

func init() {
	// Make sure there is always an error to return in case encoding fails
	e := ErrorMessage{
		Message: http.StatusText(http.StatusInternalServerError),
	}

	eb, err := json.Marshal(&e)
	if err != nil {
		panic(err)
	}
	serverError = eb
}

func New(kind Kind, err error, status int) *Error {
	return &Error{
		err:    err,
		status: status,
		kind:   kind,
	}
}

// FromResponse converts a non-OK HTTP response into a transport Error,
// preserving any error text carried in the response body.
func FromResponse(status int, body []byte) error {
	var err error
	text := strings.TrimSpace(string(body))
	if text != "" {
		err = errors.New(text)
	}
	if status == 0 {
		return err
	}
	return New(KindTransport, err, status)
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	if e.status == 0 {
		return string(e.kind)
	}
	// If there is only status, then return status text
	if text := http.StatusText(e.status); text != "" {
		return fmt.Sprintf("%d %s", e.status, text)
	}
	return fmt.Sprintf("%d", e.status)
}

func (e *Error) Status() int {
	return e.status
}

func (e *Error) Kind() Kind {
	return e.kind
}

func (e *Error) Text() string {
	parts := make([]string, 0, 7)
	if e.kind != "" {
		parts = append(parts, string(e.kind))
	}
	if e.status != 0 {
		if len(parts) != 0 {
			parts = append(parts, ": ")
		}
		parts = append(parts, fmt.Sprintf("%d", e.status))
		text := http.StatusText(e.status)
		if text != "" {
			parts = append(parts, " ")
			parts = append(parts, text)
		}
	}
	if e.err != nil {
		if len(parts) != 0 {
			parts = append(parts, ": ")
		}
		parts = append(parts, e.err.Error())
	}

	return strings.Join(parts, "")
}

func (e *Error) Unwrap() error {
	return e.err
}

// KindOf extracts the failure kind from err, or returns the empty Kind if err
// does not wrap an *Error.
func KindOf(err error) Kind {
	var apierr *Error
	if errors.As(err, &apierr) {
		return apierr.Kind()
	}
	return ""
}

func EncodeError(err error) []byte {
	if err == nil {
		return nil
	}

	e := ErrorMessage{
		Message: err.Error(),
	}
	var apierr *Error
	if errors.As(err, &apierr) {
		e.Status = apierr.Status()
		e.Kind = apierr.Kind()
	}

	data, err := json.Marshal(&e)
	if err != nil {
		return serverError
	}
	return data
}

func DecodeError(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var e ErrorMessage
	err := json.Unmarshal(data, &e)
	if err != nil {
		return fmt.Errorf("cannot decode error message: %s", err)
	}

	err = errors.New(e.Message)
	if e.Status == 0 && e.Kind == "" {
		return err
	}
	return New(e.Kind, err, e.Status)
}
