package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFoundf("order not found"), http.StatusNotFound},
		{"bad request", BadRequestf("insufficient stock"), http.StatusBadRequest},
		{"unauthorized", Unauthorizedf("invalid credentials"), http.StatusUnauthorized},
		{"forbidden", Forbiddenf("admin only"), http.StatusForbidden},
		{"conflict", Conflictf("email already registered"), http.StatusConflict},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"nil-ish wrapped", fmt.Errorf("ctx: %w", NotFoundf("gone")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessageHidesInternals(t *testing.T) {
	err := errors.New("pq: connection refused")
	if got := Message(err); got != "internal server error" {
		t.Errorf("Message() leaked internals: %q", got)
	}

	wrapped := Wrap(BadRequest, err, "cart is empty")
	if got := Message(wrapped); got != "cart is empty" {
		t.Errorf("Message() = %q, want %q", got, "cart is empty")
	}
	if !errors.Is(wrapped, err) {
		t.Error("wrapped cause is not reachable via errors.Is")
	}
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	inner := Conflictf("duplicate slug")
	outer := fmt.Errorf("create product: %w", inner)
	if KindOf(outer) != Conflict {
		t.Errorf("KindOf() = %v, want Conflict", KindOf(outer))
	}
}
