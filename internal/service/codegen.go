package service

import (
    "context"
    "crypto/rand"
    "encoding/hex"
    "fmt"
    "io"
    "strings"
    "time"

    "github.com/miraifest/ticket-booking/internal/domain"
)

const (
    bookingCodePrefix = "MIRAI"
    qrCodePrefix      = "MF-"
    bookingCodeBytes  = 4
    qrCodeBytes       = 16

    defaultCodeAttempts = 10
)

// CodeExists reports whether a candidate code is already taken.
type CodeExists func(ctx context.Context, code string) (bool, error)

// CodeGenerator produces booking codes (MIRAI + yyyymmdd + 8 hex) and QR
// payload codes (MF- + 32 hex).  Candidates are checked against the store
// and regenerated on collision, at most maxAttempts times.
type CodeGenerator struct {
    rand        io.Reader
    now         func() time.Time
    maxAttempts int
}

// NewCodeGenerator returns a generator backed by crypto/rand.
func NewCodeGenerator(maxAttempts int) *CodeGenerator {
    if maxAttempts <= 0 {
        maxAttempts = defaultCodeAttempts
    }
    return &CodeGenerator{rand: rand.Reader, now: time.Now, maxAttempts: maxAttempts}
}

// WithSource returns a copy of g reading randomness from r and time from
// now.  Tests use it to force collisions.
func (g *CodeGenerator) WithSource(r io.Reader, now func() time.Time) *CodeGenerator {
    cp := *g
    if r != nil {
        cp.rand = r
    }
    if now != nil {
        cp.now = now
    }
    return &cp
}

// BookingCode returns an unused booking code.
func (g *CodeGenerator) BookingCode(ctx context.Context, exists CodeExists) (string, error) {
    return g.unique(ctx, "booking code", exists, func() (string, error) {
        h, err := g.hex(bookingCodeBytes)
        if err != nil {
            return "", err
        }
        return bookingCodePrefix + g.now().UTC().Format("20060102") + h, nil
    })
}

// QRPayloadCode returns an unused QR payload code.
func (g *CodeGenerator) QRPayloadCode(ctx context.Context, exists CodeExists) (string, error) {
    return g.unique(ctx, "qr code", exists, func() (string, error) {
        h, err := g.hex(qrCodeBytes)
        if err != nil {
            return "", err
        }
        return qrCodePrefix + h, nil
    })
}

func (g *CodeGenerator) unique(ctx context.Context, what string, exists CodeExists, next func() (string, error)) (string, error) {
    for i := 0; i < g.maxAttempts; i++ {
        code, err := next()
        if err != nil {
            return "", domain.Failure("generate "+what, err)
        }
        taken, err := exists(ctx, code)
        if err != nil {
            return "", fromRepo("check "+what, err)
        }
        if !taken {
            return code, nil
        }
    }
    return "", domain.FailureError{Op: "generate " + what, Err: fmt.Errorf("no unique code after %d attempts", g.maxAttempts)}
}

func (g *CodeGenerator) hex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := io.ReadFull(g.rand, buf); err != nil {
        return "", err
    }
    return strings.ToUpper(hex.EncodeToString(buf)), nil
}
