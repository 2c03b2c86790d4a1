package error

import "net/http"

// PreconditionError rejects an operation before any external system is contacted.
type PreconditionError string

func (err PreconditionError) Error() string {
	return string(err)
}

func (err PreconditionError) ErrCode() string {
	return "PRECONDITION_FAILED"
}

func (err PreconditionError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

type ConflictError string

func (err ConflictError) Error() string {
	return string(err)
}

func (err ConflictError) ErrCode() string {
	return "CONFLICT"
}

func (err ConflictError) StatusCode() int {
	return http.StatusConflict
}
