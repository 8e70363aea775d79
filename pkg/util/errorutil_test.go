package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"domain error passes through", NewForbidden("nope"), CodeForbidden, http.StatusForbidden},
		{"wrapped domain error", fmt.Errorf("wrap: %w", NewAlreadyConfirmed("done", nil)), CodeAlreadyConfirmed, http.StatusConflict},
		{"no rows becomes not found", pgx.ErrNoRows, CodeNotFound, http.StatusNotFound},
		{"fiber error keeps status", fiber.NewError(http.StatusUnauthorized, "token"), CodeUnauthorized, http.StatusUnauthorized},
		{"unknown error is internal", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}
}

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Nil(t, ToDomainError(nil))
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewAlreadyCompleted("summary already completed", nil))
	assert.True(t, HasCode(err, CodeAlreadyCompleted))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}
