package error

import (
	"errors"
	"net/http"
)

// GenericError is implemented by every error that knows how it should be reported over HTTP.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}

// StatusFor returns the HTTP status and error code carried by err, or 500 for plain errors.
func StatusFor(err error) (int, string) {
	var ge GenericError
	if errors.As(err, &ge) {
		return ge.StatusCode(), ge.ErrCode()
	}
	return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
}
