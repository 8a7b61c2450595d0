package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestFromDB(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{"Given nil When classified Then stays nil", nil, ""},
		{"Given record not found When classified Then NOT_FOUND", gorm.ErrRecordNotFound, KindNotFound},
		{"Given wrapped not found When classified Then NOT_FOUND", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), KindNotFound},
		{"Given serialization failure When classified Then CONCURRENCY_ABORT", &pgconn.PgError{Code: "40001"}, KindConcurrency},
		{"Given deadlock When classified Then CONCURRENCY_ABORT", &pgconn.PgError{Code: "40P01"}, KindConcurrency},
		{"Given other pg error When classified Then INVARIANT_VIOLATION", &pgconn.PgError{Code: "23503"}, KindInvariant},
		{"Given classified error When classified Then passes through", Rejected(ReasonMaxExceeded, "too much"), KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDB(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if k := KindOf(got); k != tt.wantKind {
				t.Errorf("kind = %q, want %q", k, tt.wantKind)
			}
		})
	}
}

func TestReasonAndStatus(t *testing.T) {
	err := fmt.Errorf("add item: %w", Rejected(ReasonDeadlinePassed, "%s: deadline passed", "Jaja"))

	if r := ReasonOf(err); r != ReasonDeadlinePassed {
		t.Errorf("reason = %q, want %q", r, ReasonDeadlinePassed)
	}
	if s := HTTPStatus(err); s != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", s)
	}
	if s := HTTPStatus(NotFound("order")); s != http.StatusNotFound {
		t.Errorf("status = %d, want 404", s)
	}
	if s := HTTPStatus(Forbidden("not yours")); s != http.StatusForbidden {
		t.Errorf("status = %d, want 403", s)
	}
	if s := HTTPStatus(errors.New("boom")); s != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", s)
	}
}
