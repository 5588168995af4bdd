package domain

import (
    "context"
    "errors"
    "fmt"
    "testing"
)

func TestFailureKeepsTypedErrors(t *testing.T) {
    nf := NotFoundError{Resource: "booking"}
    if got := Failure("load", nf); !IsNotFound(got) || IsFailure(got) {
        t.Fatalf("typed error was rewrapped: %v", got)
    }
    raw := errors.New("driver: bad connection")
    got := Failure("load", raw)
    if !IsFailure(got) || !errors.Is(got, raw) {
        t.Fatalf("expected wrapped failure, got %v", got)
    }
    if Failure("load", nil) != nil {
        t.Fatalf("nil must stay nil")
    }
}

func TestFailureTimeout(t *testing.T) {
    fe := FailureError{Op: "create booking", Err: fmt.Errorf("lock wait: %w", context.DeadlineExceeded)}
    if !fe.Timeout() {
        t.Fatalf("expected timeout")
    }
    if (FailureError{Op: "x", Err: errors.New("disk full")}).Timeout() {
        t.Fatalf("unexpected timeout")
    }
}

func TestValidationErrorMessage(t *testing.T) {
    e := ValidationError{Fields: map[string]string{"quantity": "is required", "email": "must be a valid email address"}}
    want := "email: must be a valid email address; quantity: is required"
    if e.Error() != want {
        t.Fatalf("got %q want %q", e.Error(), want)
    }
    if (ValidationError{Msg: "no fields to update"}).Error() != "no fields to update" {
        t.Fatalf("Msg should win")
    }
}

func TestIsHelpersSeeThroughWrapping(t *testing.T) {
    err := fmt.Errorf("reserve: %w", InsufficientStockError{Available: 1, Requested: 2})
    if !IsInsufficientStock(err) || !IsTyped(err) {
        t.Fatalf("wrapped stock error not recognised")
    }
    if IsTyped(errors.New("plain")) {
        t.Fatalf("plain error is not typed")
    }
}
