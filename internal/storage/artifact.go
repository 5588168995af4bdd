package storage

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "regexp"
    "time"

    "github.com/phpdave11/gofpdf"
    "github.com/shopspring/decimal"
    qrcode "github.com/skip2/go-qrcode"
)

// QRPayload is the JSON document encoded into a confirmed booking's QR
// image.  Gate staff scan it to look the booking up by code.
type QRPayload struct {
    BookingCode string          `json:"booking_code"`
    QRCode      string          `json:"qr_code"`
    TicketType  string          `json:"ticket_type"`
    Quantity    int             `json:"quantity"`
    UserName    string          `json:"user_name"`
    UserEmail   string          `json:"user_email"`
    TotalPrice  decimal.Decimal `json:"total_price"`
    ConfirmedAt time.Time       `json:"confirmed_at"`
}

var artifactName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ArtifactStore renders QR images and printable e-tickets for confirmed
// bookings.
type ArtifactStore struct {
    root *Root
    size int
}

// NewArtifactStore returns an ArtifactStore writing under root/qr_codes.
func NewArtifactStore(root *Root) *ArtifactStore {
    return &ArtifactStore{root: root, size: 300}
}

// StoreQR renders p as a PNG QR code plus a PDF e-ticket named after the
// booking code and returns the PNG reference.  Re-rendering the same code
// overwrites the previous files.
func (s *ArtifactStore) StoreQR(ctx context.Context, p QRPayload) (string, error) {
    if !artifactName.MatchString(p.BookingCode) {
        return "", fmt.Errorf("invalid artifact name %q", p.BookingCode)
    }
    if err := ctx.Err(); err != nil {
        return "", err
    }
    body, err := json.Marshal(p)
    if err != nil {
        return "", err
    }
    png, err := qrcode.Encode(string(body), qrcode.Medium, s.size)
    if err != nil {
        return "", fmt.Errorf("encode qr: %w", err)
    }
    pngRef := KindQRCodes + "/" + p.BookingCode + ".png"
    if err := s.root.writeFile(pngRef, png); err != nil {
        return "", fmt.Errorf("write qr: %w", err)
    }

    pdf, err := buildETicketPDF(p, png)
    if err != nil {
        _ = s.root.Remove(pngRef)
        return "", fmt.Errorf("render e-ticket: %w", err)
    }
    if err := s.root.writeFile(TicketPDFRef(p.BookingCode), pdf); err != nil {
        _ = s.root.Remove(pngRef)
        return "", fmt.Errorf("write e-ticket: %w", err)
    }
    return pngRef, nil
}

// Discard removes the artifacts rendered for bookingCode.  It is used when
// the confirmation that requested them did not commit.
func (s *ArtifactStore) Discard(bookingCode string) {
    if !artifactName.MatchString(bookingCode) {
        return
    }
    _ = s.root.Remove(KindQRCodes + "/" + bookingCode + ".png")
    _ = s.root.Remove(TicketPDFRef(bookingCode))
}

// TicketPDFRef is the reference of the e-ticket rendered next to a QR image.
func TicketPDFRef(bookingCode string) string {
    return KindQRCodes + "/" + bookingCode + ".pdf"
}

func buildETicketPDF(p QRPayload, png []byte) ([]byte, error) {
    pdf := gofpdf.New("P", "mm", "A4", "")
    pdf.SetTitle("E-Ticket "+p.BookingCode, false)
    pdf.AddPage()
    pdf.SetFont("Helvetica", "B", 18)
    pdf.Cell(0, 10, "MIRAI FEST E-TICKET")
    pdf.Ln(14)

    pdf.SetFont("Helvetica", "", 12)
    lines := []string{
        fmt.Sprintf("Booking Code : %s", p.BookingCode),
        fmt.Sprintf("Ticket       : %s", safe(p.TicketType, "-")),
        fmt.Sprintf("Quantity     : %d", p.Quantity),
        fmt.Sprintf("Name         : %s", safe(p.UserName, "-")),
        fmt.Sprintf("Email        : %s", safe(p.UserEmail, "-")),
        fmt.Sprintf("Total        : Rp %s", p.TotalPrice.StringFixed(2)),
        fmt.Sprintf("Confirmed    : %s", p.ConfirmedAt.UTC().Format("2006-01-02 15:04 MST")),
    }
    for _, l := range lines {
        pdf.Cell(0, 7, l)
        pdf.Ln(7)
    }

    opts := gofpdf.ImageOptions{ImageType: "PNG"}
    pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
    pdf.ImageOptions("qr", 10, pdf.GetY()+6, 60, 60, false, opts, 0, "")
    pdf.SetY(pdf.GetY() + 72)

    pdf.SetFont("Helvetica", "I", 10)
    pdf.MultiCell(0, 6, fmt.Sprintf("Valid for %d entr%s. Show this QR code at the gate.", p.Quantity, plural(p.Quantity, "y", "ies")), "", "", false)

    var buf bytes.Buffer
    if err := pdf.Output(&buf); err != nil {
        return nil, err
    }
    return buf.Bytes(), nil
}

func safe(s, def string) string {
    if s == "" {
        return def
    }
    return s
}

func plural(n int, one, many string) string {
    if n == 1 {
        return one
    }
    return many
}
