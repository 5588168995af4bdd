package validation

import (
    "testing"

    "github.com/miraifest/ticket-booking/internal/domain"
)

type sample struct {
    Email    string  `json:"email" validate:"required,email"`
    Quantity int     `json:"quantity" validate:"required,gt=0"`
    Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
}

func TestValidateUsesJSONNames(t *testing.T) {
    bad := "root"
    err := Struct(sample{Email: "nope", Role: &bad})
    ve, ok := err.(domain.ValidationError)
    if !ok {
        t.Fatalf("expected ValidationError, got %T %v", err, err)
    }
    for _, f := range []string{"email", "quantity", "role"} {
        if _, ok := ve.Fields[f]; !ok {
            t.Fatalf("missing field %q in %v", f, ve.Fields)
        }
    }
}

func TestValidatePasses(t *testing.T) {
    if err := Struct(sample{Email: "rina@example.com", Quantity: 2}); err != nil {
        t.Fatalf("unexpected error %v", err)
    }
}
