package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"validation", Validation("dischargeDate", "before admission date"), http.StatusBadRequest},
		{"conflict", Conflict("already admitted"), http.StatusConflict},
		{"not found", NotFound("event"), http.StatusNotFound},
		{"wrapped forbidden", fmt.Errorf("discharge: %w", ErrForbidden), http.StatusForbidden},
		{"unknown", errors.New("pg down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTTPStatus(tc.err); got != tc.want {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := Validation("admissionDate", "must not be in the future")
	if err.Error() != "admissionDate: must not be in the future" {
		t.Errorf("unexpected message: %s", err.Error())
	}

	bare := &ValidationError{Msg: "missing required fields"}
	if bare.Error() != "missing required fields" {
		t.Errorf("unexpected message: %s", bare.Error())
	}
}

func TestMessageHidesInternalDetail(t *testing.T) {
	if got := Message(errors.New("dial tcp 10.0.0.5:5432: connection refused")); got != "internal server error" {
		t.Errorf("internal detail leaked: %s", got)
	}
	if got := Message(NotFound("event")); got != "event not found" {
		t.Errorf("unexpected message: %s", got)
	}
}
