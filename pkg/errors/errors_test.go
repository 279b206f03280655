package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrFileTooLarge, "too big"))
	got := FromError(wrapped)
	assert.Equal(t, ErrFileTooLarge.Code, got.Code)
	assert.Equal(t, "too big", got.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(stdErrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
}

func TestIsMatchesByCode(t *testing.T) {
	err := WrapAs(stdErrors.New("db down"), ErrMetadataPersist, "")
	assert.True(t, stdErrors.Is(err, ErrMetadataPersist))
	assert.False(t, stdErrors.Is(err, ErrUploadFailed))
	assert.Equal(t, ErrMetadataPersist.Message, err.Message)
}

func TestNotFoundUsesGenericMessage(t *testing.T) {
	assert.Equal(t, GenericNotFoundMessage, ErrNotFound.Message)
}
