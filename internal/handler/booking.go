package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/miraifest/ticket-booking/internal/domain"
    "github.com/miraifest/ticket-booking/internal/service"
    "github.com/miraifest/ticket-booking/internal/storage"
)

// BookingHandler serves the buyer-facing booking endpoints.
type BookingHandler struct {
    Bookings *service.BookingService
    Media    MediaURLs
}

func NewBookingHandler(b *service.BookingService, media MediaURLs) *BookingHandler {
    return &BookingHandler{Bookings: b, Media: media}
}

type createBookingReq struct {
    TicketTypeID uint64 `json:"ticket_type_id" form:"ticket_type_id" validate:"required"`
    Quantity     int    `json:"quantity" form:"quantity" validate:"required,gt=0"`
}

// List: GET /api/v1/bookings
func (h *BookingHandler) List(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    out, err := h.Bookings.ListUserBookings(c.Request().Context(), uid)
    if err != nil {
        return writeError(c, err)
    }
    h.Media.decorateAll(out)
    return ok(c, http.StatusOK, "bookings retrieved", out)
}

// Create: POST /api/v1/bookings
func (h *BookingHandler) Create(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    var req createBookingReq
    if err := bind(c, &req); err != nil {
        return writeError(c, err)
    }
    d, err := h.Bookings.CreateBooking(c.Request().Context(), service.CreateBookingInput{
        UserID:       uid,
        TicketTypeID: req.TicketTypeID,
        Quantity:     req.Quantity,
    })
    if err != nil {
        return writeError(c, err)
    }
    h.Media.decorate(d)
    return ok(c, http.StatusCreated, "booking created, please upload your payment proof", d)
}

// Get: GET /api/v1/bookings/:id (own bookings only)
func (h *BookingHandler) Get(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    d, err := h.Bookings.GetBooking(c.Request().Context(), id, &uid)
    if err != nil {
        return writeError(c, err)
    }
    h.Media.decorate(d)
    return ok(c, http.StatusOK, "booking retrieved", d)
}

// UploadProof: POST /api/v1/bookings/:id/upload-proof (multipart field payment_proof)
func (h *BookingHandler) UploadProof(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, err)
    }
    fh, err := c.FormFile("payment_proof")
    if err != nil {
        return writeError(c, domain.NewValidationError("payment_proof", "is required"))
    }
    if fh.Size > storage.MaxProofBytes {
        return writeError(c, domain.NewValidationError("payment_proof", "file exceeds 5MB"))
    }
    f, err := fh.Open()
    if err != nil {
        return writeError(c, domain.Failure("open upload", err))
    }
    defer f.Close()

    d, err := h.Bookings.UploadProof(c.Request().Context(), uid, id, f)
    if err != nil {
        return writeError(c, err)
    }
    h.Media.decorate(d)
    return ok(c, http.StatusOK, "payment proof uploaded, waiting for verification", d)
}
