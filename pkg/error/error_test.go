package error

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	status, code := StatusFor(fmt.Errorf("wrapped: %w", NotFoundError("item not found")))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND_ERROR", code)

	status, code = StatusFor(PreconditionError("social posts not generated"))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "PRECONDITION_FAILED", code)

	status, _ = StatusFor(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}
