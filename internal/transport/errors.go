package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoSession is returned when no access token is available for the call.
var ErrNoSession = errors.New("no active session")

// FunctionError is a failure reported by the remote function itself.
type FunctionError struct {
	Function string
	Status   int
	Message  string
}

func (e *FunctionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("function %s returned %d: %s", e.Function, e.Status, msg)
}

// IsFunctionError reports whether err carries a *FunctionError.
func IsFunctionError(err error) bool {
	var fe *FunctionError
	return errors.As(err, &fe)
}
