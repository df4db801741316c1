package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

func TestRetrier(t *testing.T) {
	serialization := &pgconn.PgError{Code: pgSerializationFailure}
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantCode  string
	}{
		{name: "success", errs: []error{nil}, wantCalls: 1},
		{name: "transient_then_success", errs: []error{serialization, nil}, wantCalls: 2},
		{name: "transient_exhausted", errs: []error{serialization, serialization, serialization}, wantCalls: 3, wantCode: apperrors.CodeStorage},
		{name: "domain_error_not_retried", errs: []error{apperrors.NewPollClosed("p")}, wantCalls: 1, wantCode: apperrors.CodePollClosed},
		{name: "permanent_error", errs: []error{&pgconn.PgError{Code: "42P01"}}, wantCalls: 1, wantCode: apperrors.CodeStorage},
		{name: "deadlock_retried", errs: []error{&pgconn.PgError{Code: pgDeadlockDetected}, nil}, wantCalls: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := retrier{maxRetries: 2, backoff: time.Millisecond}
			calls := 0
			err := r.do(context.Background(), func(context.Context) error {
				e := tt.errs[calls]
				calls++
				return e
			})
			if calls != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, calls)
			}
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestRetrierStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := retrier{maxRetries: 5, backoff: time.Hour}
	err := r.do(ctx, func(context.Context) error { return &pgconn.PgError{Code: pgSerializationFailure} })
	if !errors.Is(err, apperrors.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
