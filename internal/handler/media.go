package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/miraifest/ticket-booking/internal/model"
    "github.com/miraifest/ticket-booking/internal/storage"
)

// MediaURLs turns stored references into public URLs.
type MediaURLs struct {
    BaseURL string // e.g. https://api.example.com; empty yields root-relative URLs
}

func (m MediaURLs) url(ref *string) *string {
    if ref == nil || *ref == "" {
        return nil
    }
    u := strings.TrimRight(m.BaseURL, "/") + "/api/v1/media/" + strings.TrimLeft(*ref, "/")
    return &u
}

// decorate fills the URL fields of d.
func (m MediaURLs) decorate(d *model.BookingDetail) {
    if d == nil {
        return
    }
    d.PaymentProofURL = m.url(d.PaymentProof)
    d.QRImageURL = m.url(d.QRImage)
}

func (m MediaURLs) decorateAll(ds []model.BookingDetail) {
    for i := range ds {
        m.decorate(&ds[i])
    }
}

// MediaHandler serves stored proofs and QR artifacts.
type MediaHandler struct {
    Root *storage.Root
}

func NewMediaHandler(root *storage.Root) *MediaHandler { return &MediaHandler{Root: root} }

// Serve handles GET /api/v1/media/:kind/:file.
func (h *MediaHandler) Serve(c echo.Context) error {
    p, err := h.Root.Resolve(c.Param("kind"), c.Param("file"))
    if err != nil {
        return fail(c, http.StatusNotFound, "file not found", nil)
    }
    c.Response().Header().Set("Cache-Control", "private, max-age=300")
    c.Response().Header().Set("X-Content-Type-Options", "nosniff")
    return c.File(p)
}
