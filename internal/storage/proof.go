package storage

import (
    "context"
    "fmt"
    "io"
    "time"

    "github.com/gabriel-vasile/mimetype"

    "github.com/miraifest/ticket-booking/internal/domain"
)

// MaxProofBytes is the largest accepted payment proof.
const MaxProofBytes = 5 << 20

var proofTypes = map[string]string{
    "image/jpeg": "jpg",
    "image/png":  "png",
}

// ProofStore keeps payment proof images uploaded by buyers.
type ProofStore struct {
    root *Root
    now  func() time.Time
}

func NewProofStore(root *Root) *ProofStore {
    return &ProofStore{root: root, now: time.Now}
}

// Save sniffs the content of r, which must be a JPEG or PNG no larger than
// MaxProofBytes, and writes it as payment_proofs/<bookingID>_<unix>.<ext>.
// The declared filename and content type of the upload are ignored.
func (s *ProofStore) Save(ctx context.Context, bookingID uint64, r io.Reader) (string, error) {
    data, err := io.ReadAll(io.LimitReader(r, MaxProofBytes+1))
    if err != nil {
        return "", fmt.Errorf("read proof: %w", err)
    }
    if len(data) == 0 {
        return "", domain.NewValidationError("payment_proof", "file is empty")
    }
    if len(data) > MaxProofBytes {
        return "", domain.NewValidationError("payment_proof", "file exceeds 5MB")
    }
    mt := mimetype.Detect(data)
    ext := ""
    for m, e := range proofTypes {
        if mt.Is(m) {
            ext = e
            break
        }
    }
    if ext == "" {
        return "", domain.NewValidationError("payment_proof", "only JPEG and PNG images are accepted")
    }
    if err := ctx.Err(); err != nil {
        return "", err
    }
    ref := fmt.Sprintf("%s/%d_%d.%s", KindPaymentProofs, bookingID, s.now().Unix(), ext)
    if err := s.root.writeFile(ref, data); err != nil {
        return "", fmt.Errorf("write proof: %w", err)
    }
    return ref, nil
}

// Remove deletes a stored proof, e.g. when recording it on the booking
// failed.
func (s *ProofStore) Remove(ref string) error { return s.root.Remove(ref) }
