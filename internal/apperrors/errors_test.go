package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad %s", "input"), http.StatusUnprocessableEntity},
		{"forbidden", Forbidden("no"), http.StatusForbidden},
		{"not found", NotFound("missing"), http.StatusNotFound},
		{"conflict", Conflict("locked"), http.StatusConflict},
		{"invalid state", InvalidState("inactive"), http.StatusConflict},
		{"invariant", Invariant("drift"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("outer: %w", Conflict("inner")), http.StatusConflict},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"nil", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, Translate(nil, "x"))
	assert.ErrorIs(t, Translate(gorm.ErrRecordNotFound, "order not found"), ErrNotFound)
	assert.ErrorIs(t, Translate(gorm.ErrDuplicatedKey, "dup"), ErrConflict)
	assert.ErrorIs(t, Translate(&pgconn.PgError{Code: "23505"}, "dup"), ErrConflict)
	assert.ErrorIs(t, Translate(errors.New("connection reset"), "save"), ErrUnexpected)

	kept := Validation("already classified")
	assert.Same(t, kept, Translate(kept, "ignored"))
}

func TestPublicMessage_HidesInternals(t *testing.T) {
	assert.Equal(t, "internal server error", PublicMessage(Invariant("account %s drifted", "a1")))
	assert.Equal(t, "internal server error", PublicMessage(Translate(errors.New("dial tcp"), "save")))
	assert.Contains(t, PublicMessage(Conflict("order %s is invoiced", "o1")), "order o1 is invoiced")
}
