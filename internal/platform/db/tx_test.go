package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestRetryTransient_SucceedsAfterSerializationFailure(t *testing.T) {
	calls := 0
	err := retryTransient(context.Background(), 3, time.Millisecond, func(attempt int) error {
		calls++
		if attempt < 2 {
			return fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeSerializationFailure})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryTransient_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := retryTransient(context.Background(), 2, time.Millisecond, func(int) error {
		calls++
		return &pgconn.PgError{Code: CodeDeadlockDetected}
	})
	if !IsTransient(err) {
		t.Fatalf("expected the last transient error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 1 attempt + 2 retries, got %d calls", calls)
	}
}

func TestRetryTransient_DoesNotRetryOtherErrors(t *testing.T) {
	guard := errors.New("consultation is closed")
	calls := 0
	err := retryTransient(context.Background(), 5, time.Millisecond, func(int) error {
		calls++
		return guard
	})
	if !errors.Is(err, guard) {
		t.Fatalf("expected guard error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestRetryTransient_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := retryTransient(ctx, 5, time.Hour, func(int) error {
		calls++
		return &pgconn.PgError{Code: CodeSerializationFailure}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("create: %w", &pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "reviews_consultation_key"})
	fk := &pgconn.PgError{Code: CodeForeignKeyViolation, ConstraintName: "consultations_patient_id_fkey"}

	if !IsUniqueViolation(unique, "") {
		t.Error("expected unique violation")
	}
	if !IsUniqueViolation(unique, "reviews_consultation_key") {
		t.Error("expected unique violation on reviews_consultation_key")
	}
	if IsUniqueViolation(unique, "prescriptions_consultation_key") {
		t.Error("constraint name should be matched")
	}
	if IsUniqueViolation(fk, "") {
		t.Error("foreign key violation is not a unique violation")
	}
	if !IsForeignKeyViolation(fk, "consultations_patient_id_fkey") {
		t.Error("expected foreign key violation")
	}
	if IsTransient(unique) {
		t.Error("unique violation is not transient")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("plain errors are not transient")
	}
	if !IsNoRows(fmt.Errorf("get: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped ErrNoRows to match")
	}
}

func TestTxFromContext(t *testing.T) {
	if TxFromContext(context.Background()) != nil {
		t.Error("expected no transaction in a bare context")
	}
}
