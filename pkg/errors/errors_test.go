package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized},
		{code: CodeForbidden, status: http.StatusForbidden},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeInvalidTransition, status: http.StatusConflict, detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusConflict, detailsOK: true},
		{code: CodeQuantityMismatch, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeFineRequired, status: http.StatusUnprocessableEntity},
		{code: CodeDuplicateReturn, status: http.StatusConflict},
		{code: CodeAlreadyPaid, status: http.StatusConflict},
		{code: CodeNoFineOwed, status: http.StatusUnprocessableEntity},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s has no public message", tt.code)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestIsDomain(t *testing.T) {
	if !IsDomain(CodeFineRequired) || !IsDomain(CodeAlreadyPaid) {
		t.Fatalf("expected reconciliation codes to be domain codes")
	}
	if IsDomain(CodeDependency) || IsDomain(CodeValidation) {
		t.Fatalf("infrastructure codes must not be domain codes")
	}
}

func TestErrorConstructors(t *testing.T) {
	base := Newf(CodeQuantityMismatch, "split must total %d units", 5)
	if base.Code() != CodeQuantityMismatch {
		t.Fatalf("unexpected code %s", base.Code())
	}
	if base.Message() != "split must total 5 units" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}
	base.WithDetails(map[string]any{"quantity": 5})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "load loan")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if !HasCode(fmt.Errorf("outer: %w", wrapped), CodeDependency) {
		t.Fatalf("HasCode should see through wrapping")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpCapturesPostgresDetails(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "returns_loan_id_key", TableName: "returns"}
	err := Wrap(CodeDuplicateReturn, pgErr, "insert return")

	d := Dump(err)
	if d.Code != CodeDuplicateReturn {
		t.Fatalf("expected code to be captured, got %s", d.Code)
	}
	if d.SQLState != "23505" || d.Constraint != "returns_loan_id_key" || d.Table != "returns" {
		t.Fatalf("unexpected db fields %+v", d)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(d.Chain))
	}
}

func TestDumpReadsSQLiteConstraintText(t *testing.T) {
	err := Wrap(CodeDependency, fmt.Errorf("exec: UNIQUE constraint failed: returns.loan_id"), "insert return")

	d := Dump(err)
	if d.Constraint != "returns.loan_id" || d.Table != "returns" || d.Column != "loan_id" {
		t.Fatalf("unexpected sqlite fields %+v", d)
	}
	if !d.Retryable {
		t.Fatalf("dependency errors are retryable")
	}
}

func TestDumpFindsSQLiteConstraintDeepInChain(t *testing.T) {
	inner := Wrap(CodeDependency, fmt.Errorf("CHECK constraint failed: equipment_available_non_negative"), "reserve")
	err := Wrap(CodeConflict, fmt.Errorf("create loan: %w", inner), "loan rejected")

	d := Dump(err)
	if d.Constraint != "equipment_available_non_negative" {
		t.Fatalf("expected constraint from nested cause, got %+v", d)
	}
	if d.Table != "" || d.Column != "" {
		t.Fatalf("named check constraint has no table.column, got %+v", d)
	}
	if d.Code != CodeConflict {
		t.Fatalf("expected outer code, got %s", d.Code)
	}
}
