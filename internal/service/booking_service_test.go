package service

import (
    "bytes"
    "context"
    "errors"
    "os"
    "path/filepath"
    "regexp"
    "sync"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/miraifest/ticket-booking/internal/domain"
    "github.com/miraifest/ticket-booking/internal/model"
    "github.com/miraifest/ticket-booking/internal/repository"
    "github.com/miraifest/ticket-booking/internal/storage"
)

var (
    bookingCodeRe = regexp.MustCompile(`^MIRAI\d{8}[0-9A-F]{8}$`)
    qrCodeRe      = regexp.MustCompile(`^MF-[0-9A-F]{32}$`)
)

func TestCreateBooking_ReservesQuotaAndSnapshotsPrice(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "General Admission", "150000", 10)

    d := f.book(t, userActor.UserID, id, 3)

    assert.Equal(t, model.StatusPending, d.PaymentStatus)
    assert.Equal(t, 3, d.Quantity)
    assert.True(t, d.TotalPrice.Equal(decimal.RequireFromString("450000")), "total_price = %s", d.TotalPrice)
    assert.Regexp(t, bookingCodeRe, d.BookingCode)
    assert.Regexp(t, qrCodeRe, d.QRCode)
    assert.Nil(t, d.QRImage)
    assert.Equal(t, "General Admission", d.TicketName)
    assert.Equal(t, "rina@example.com", d.UserEmail)

    assert.Equal(t, 7, f.ticket(t, id).RemainingQuota)
    assert.Equal(t, 1, f.cache.count())
    f.requireLedgerBalanced(t, id)
}

func TestCreateBooking_PriceChangeDoesNotRewriteTotal(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "VIP", "350000", 5)
    d := f.book(t, userActor.UserID, id, 2)

    price := decimal.RequireFromString("500000")
    _, err := f.catalog.UpdateTicketType(context.Background(), adminActor, id, UpdateTicketTypeInput{Price: &price})
    require.NoError(t, err)

    got, err := f.svc.GetBooking(context.Background(), d.ID, nil)
    require.NoError(t, err)
    assert.True(t, got.TotalPrice.Equal(decimal.RequireFromString("700000")))
    assert.True(t, got.TicketPrice.Equal(price))
}

func TestCreateBooking_ValidationHappensBeforeAnyWrite(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "General Admission", "150000", 10)

    for _, qty := range []int{0, -2} {
        _, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{UserID: userActor.UserID, TicketTypeID: id, Quantity: qty})
        require.Error(t, err)
        var ve domain.ValidationError
        require.True(t, errors.As(err, &ve), "quantity %d: got %v", qty, err)
        assert.Contains(t, ve.Fields, "quantity")
    }

    _, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{UserID: userActor.UserID, Quantity: 1})
    require.True(t, domain.IsValidation(err), "missing ticket_type_id: got %v", err)

    assert.Equal(t, 10, f.ticket(t, id).RemainingQuota)
    assert.Equal(t, 0, f.cache.count())
}

func TestCreateBooking_UnknownTicketType(t *testing.T) {
    f := newFixture(t)

    _, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{UserID: userActor.UserID, TicketTypeID: 999, Quantity: 1})
    require.True(t, domain.IsNotFound(err), "got %v", err)
}

func TestCreateBooking_InsufficientStockReportsAvailable(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "Cosplayer", "250000", 10)
    f.book(t, userActor.UserID, id, 8)

    _, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{UserID: userActor.UserID, TicketTypeID: id, Quantity: 3})
    var ise domain.InsufficientStockError
    require.True(t, errors.As(err, &ise), "got %v", err)
    assert.Equal(t, 2, ise.Available)
    assert.Equal(t, 3, ise.Requested)
    assert.Equal(t, 2, f.ticket(t, id).RemainingQuota)
    f.requireLedgerBalanced(t, id)
}

func TestCreateBooking_ConcurrentBuyersNeverOversell(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "General Admission", "150000", 10)

    const buyers = 25
    var (
        wg        sync.WaitGroup
        mu        sync.Mutex
        succeeded int
        soldOut   int
        other     []error
    )
    for i := 0; i < buyers; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{UserID: userActor.UserID, TicketTypeID: id, Quantity: 1})
            mu.Lock()
            defer mu.Unlock()
            switch {
            case err == nil:
                succeeded++
            case domain.IsInsufficientStock(err):
                soldOut++
            default:
                other = append(other, err)
            }
        }()
    }
    wg.Wait()

    require.Empty(t, other)
    assert.Equal(t, 10, succeeded)
    assert.Equal(t, buyers-10, soldOut)
    assert.Equal(t, 0, f.ticket(t, id).RemainingQuota)
    f.requireLedgerBalanced(t, id)
}

func TestCreateBooking_LastUnitGoesToExactlyOneBuyer(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "Presale", "100000", 1)
    other := f.addUser(t, "Dimas", "dimas@example.com", model.RoleUser)

    errs := make([]error, 2)
    var wg sync.WaitGroup
    for i, uid := range []uint64{userActor.UserID, other} {
        wg.Add(1)
        go func(i int, uid uint64) {
            defer wg.Done()
            _, errs[i] = f.svc.CreateBooking(context.Background(), CreateBookingInput{UserID: uid, TicketTypeID: id, Quantity: 1})
        }(i, uid)
    }
    wg.Wait()

    wins := 0
    for _, err := range errs {
        if err == nil {
            wins++
            continue
        }
        var ise domain.InsufficientStockError
        require.True(t, errors.As(err, &ise), "got %v", err)
        assert.Equal(t, 0, ise.Available)
    }
    assert.Equal(t, 1, wins)
    f.requireLedgerBalanced(t, id)
}

func TestApproveBooking_ConfirmsOnceAndRendersArtifacts(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "VIP", "350000", 5)
    d := f.book(t, userActor.UserID, id, 2)

    got, err := f.svc.ApproveBooking(context.Background(), adminActor, d.ID)
    require.NoError(t, err)
    assert.Equal(t, model.StatusConfirmed, got.PaymentStatus)
    require.NotNil(t, got.QRImage)
    assert.Equal(t, "qr_codes/"+d.BookingCode+".png", *got.QRImage)
    assert.FileExists(t, filepath.Join(f.root.Dir(), *got.QRImage))
    assert.FileExists(t, filepath.Join(f.root.Dir(), storage.TicketPDFRef(d.BookingCode)))

    // approval never touches quota
    assert.Equal(t, 3, f.ticket(t, id).RemainingQuota)

    _, err = f.svc.ApproveBooking(context.Background(), adminActor, d.ID)
    var ite domain.InvalidTransitionError
    require.True(t, errors.As(err, &ite), "got %v", err)
    assert.Equal(t, "confirmed", ite.From)
    assert.Equal(t, "confirmed", ite.To)

    // the second attempt must not have removed the first attempt's files
    assert.FileExists(t, filepath.Join(f.root.Dir(), *got.QRImage))

    require.Len(t, f.events.confirmed, 1)
    ev := f.events.confirmed[0]
    assert.Equal(t, d.ID, ev.BookingID)
    assert.Equal(t, d.BookingCode, ev.BookingCode)
    assert.Equal(t, "700000.00", ev.TotalPrice)
    assert.Equal(t, *got.QRImage, ev.QRImage)
    f.requireLedgerBalanced(t, id)
}

func TestApproveBooking_LosingToRejectDiscardsArtifacts(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "VIP", "350000", 5)
    d := f.book(t, userActor.UserID, id, 2)

    // the reject lands after the approve read the booking as pending
    raced := false
    f.svc.now = func() time.Time {
        if !raced {
            raced = true
            _, err := f.svc.RejectBooking(context.Background(), adminActor, d.ID, "duplicate transfer")
            require.NoError(t, err)
        }
        return time.Now()
    }

    _, err := f.svc.ApproveBooking(context.Background(), adminActor, d.ID)
    var ite domain.InvalidTransitionError
    require.True(t, errors.As(err, &ite), "got %v", err)
    assert.Equal(t, "cancelled", ite.From)

    assert.NoFileExists(t, filepath.Join(f.root.Dir(), "qr_codes", d.BookingCode+".png"))
    assert.NoFileExists(t, filepath.Join(f.root.Dir(), storage.TicketPDFRef(d.BookingCode)))
    assert.Empty(t, f.events.confirmed)
    assert.Equal(t, 5, f.ticket(t, id).RemainingQuota)
    f.requireLedgerBalanced(t, id)
}

func TestApproveBooking_Missing(t *testing.T) {
    f := newFixture(t)

    _, err := f.svc.ApproveBooking(context.Background(), adminActor, 404)
    require.True(t, domain.IsNotFound(err), "got %v", err)
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "VIP", "350000", 5)
    d := f.book(t, userActor.UserID, id, 1)

    _, err := f.svc.ApproveBooking(context.Background(), userActor, d.ID)
    assert.True(t, domain.IsForbidden(err), "approve: got %v", err)
    _, err = f.svc.RejectBooking(context.Background(), userActor, d.ID, "")
    assert.True(t, domain.IsForbidden(err), "reject: got %v", err)
    _, err = f.svc.ListPending(context.Background(), userActor)
    assert.True(t, domain.IsForbidden(err), "pending: got %v", err)
    _, _, err = f.svc.History(context.Background(), userActor, repository.HistoryFilter{})
    assert.True(t, domain.IsForbidden(err), "history: got %v", err)

    got, err := f.svc.GetBooking(context.Background(), d.ID, nil)
    require.NoError(t, err)
    assert.Equal(t, model.StatusPending, got.PaymentStatus)
}

func TestRejectBooking_RestoresQuota(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "General Admission", "150000", 10)
    d := f.book(t, userActor.UserID, id, 3)
    require.Equal(t, 7, f.ticket(t, id).RemainingQuota)

    res, err := f.svc.RejectBooking(context.Background(), adminActor, d.ID, "  ")
    require.NoError(t, err)
    assert.Equal(t, d.ID, res.BookingID)
    assert.Equal(t, 3, res.QuotaRestored)
    assert.Equal(t, DefaultRejectReason, res.Reason)
    assert.Equal(t, 10, f.ticket(t, id).RemainingQuota)

    got, err := f.svc.GetBooking(context.Background(), d.ID, nil)
    require.NoError(t, err)
    assert.Equal(t, model.StatusCancelled, got.PaymentStatus)
    require.NotNil(t, got.RejectionReason)
    assert.Equal(t, DefaultRejectReason, *got.RejectionReason)

    require.Len(t, f.events.cancelled, 1)
    assert.Equal(t, 3, f.events.cancelled[0].QuotaRestored)
    f.requireLedgerBalanced(t, id)
}

func TestRejectBooking_TerminalStatesAreFinal(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "General Admission", "150000", 10)
    confirmed := f.book(t, userActor.UserID, id, 2)
    cancelled := f.book(t, userActor.UserID, id, 1)

    _, err := f.svc.ApproveBooking(context.Background(), adminActor, confirmed.ID)
    require.NoError(t, err)
    _, err = f.svc.RejectBooking(context.Background(), adminActor, cancelled.ID, "duplicate transfer")
    require.NoError(t, err)
    before := f.ticket(t, id).RemainingQuota

    _, err = f.svc.RejectBooking(context.Background(), adminActor, confirmed.ID, "changed my mind")
    assert.True(t, domain.IsInvalidTransition(err), "reject confirmed: got %v", err)
    _, err = f.svc.RejectBooking(context.Background(), adminActor, cancelled.ID, "again")
    assert.True(t, domain.IsInvalidTransition(err), "reject cancelled: got %v", err)
    _, err = f.svc.ApproveBooking(context.Background(), adminActor, cancelled.ID)
    assert.True(t, domain.IsInvalidTransition(err), "approve cancelled: got %v", err)

    // failed transitions leave quota untouched
    assert.Equal(t, before, f.ticket(t, id).RemainingQuota)
    f.requireLedgerBalanced(t, id)
}

func TestRejectBooking_ConcurrentAdminsReleaseOnce(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "General Admission", "150000", 10)
    d := f.book(t, userActor.UserID, id, 4)

    const admins = 5
    errs := make([]error, admins)
    var wg sync.WaitGroup
    for i := 0; i < admins; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            _, errs[i] = f.svc.RejectBooking(context.Background(), adminActor, d.ID, "payment not received")
        }(i)
    }
    wg.Wait()

    ok := 0
    for _, err := range errs {
        if err == nil {
            ok++
            continue
        }
        assert.True(t, domain.IsInvalidTransition(err), "got %v", err)
    }
    assert.Equal(t, 1, ok)
    assert.Equal(t, 10, f.ticket(t, id).RemainingQuota)
    f.requireLedgerBalanced(t, id)
}

func TestRoundTrip_BookAndRejectRestoresPool(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "General Admission", "150000", 10)

    d := f.book(t, userActor.UserID, id, 3)
    assert.Equal(t, 7, f.ticket(t, id).RemainingQuota)
    _, err := f.svc.RejectBooking(context.Background(), adminActor, d.ID, "")
    require.NoError(t, err)
    assert.Equal(t, 10, f.ticket(t, id).RemainingQuota)
}

func TestListPendingAndHistory(t *testing.T) {
    f := newFixture(t)
    ga := f.addTicket(t, "General Admission", "150000", 10)
    vip := f.addTicket(t, "VIP", "350000", 10)
    first := f.book(t, userActor.UserID, ga, 1)
    second := f.book(t, userActor.UserID, vip, 1)
    third := f.book(t, userActor.UserID, ga, 2)
    _, err := f.svc.ApproveBooking(context.Background(), adminActor, second.ID)
    require.NoError(t, err)

    pending, err := f.svc.ListPending(context.Background(), adminActor)
    require.NoError(t, err)
    require.Len(t, pending, 2)
    assert.Equal(t, first.ID, pending[0].ID)
    assert.Equal(t, third.ID, pending[1].ID)

    items, total, err := f.svc.History(context.Background(), adminActor, repository.HistoryFilter{TicketTypeID: ga})
    require.NoError(t, err)
    assert.Equal(t, 2, total)
    assert.Len(t, items, 2)

    items, total, err = f.svc.History(context.Background(), adminActor, repository.HistoryFilter{Status: model.StatusConfirmed})
    require.NoError(t, err)
    assert.Equal(t, 1, total)
    require.Len(t, items, 1)
    assert.Equal(t, second.ID, items[0].ID)

    items, total, err = f.svc.History(context.Background(), adminActor, repository.HistoryFilter{Search: first.BookingCode})
    require.NoError(t, err)
    assert.Equal(t, 1, total)
    require.Len(t, items, 1)
    assert.Equal(t, first.ID, items[0].ID)

    _, _, err = f.svc.History(context.Background(), adminActor, repository.HistoryFilter{Status: "refunded"})
    assert.True(t, domain.IsValidation(err), "got %v", err)
}

func TestGetBooking_ScopedToOwner(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "General Admission", "150000", 10)
    other := f.addUser(t, "Dimas", "dimas@example.com", model.RoleUser)
    d := f.book(t, userActor.UserID, id, 1)

    owner := userActor.UserID
    _, err := f.svc.GetBooking(context.Background(), d.ID, &owner)
    require.NoError(t, err)

    _, err = f.svc.GetBooking(context.Background(), d.ID, &other)
    assert.True(t, domain.IsNotFound(err), "got %v", err)

    list, err := f.svc.ListUserBookings(context.Background(), other)
    require.NoError(t, err)
    assert.Empty(t, list)
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestUploadProof(t *testing.T) {
    f := newFixture(t)
    id := f.addTicket(t, "General Admission", "150000", 10)
    d := f.book(t, userActor.UserID, id, 1)

    got, err := f.svc.UploadProof(context.Background(), userActor.UserID, d.ID, bytes.NewReader(pngHeader))
    require.NoError(t, err)
    require.NotNil(t, got.PaymentProof)
    assert.Regexp(t, `^payment_proofs/\d+_\d+\.png$`, *got.PaymentProof)
    _, err = os.Stat(filepath.Join(f.root.Dir(), *got.PaymentProof))
    require.NoError(t, err)

    _, err = f.svc.UploadProof(context.Background(), userActor.UserID, d.ID, bytes.NewReader([]byte("%PDF-1.4 not an image")))
    assert.True(t, domain.IsValidation(err), "pdf: got %v", err)

    _, err = f.svc.UploadProof(context.Background(), 99, d.ID, bytes.NewReader(pngHeader))
    assert.True(t, domain.IsNotFound(err), "stranger: got %v", err)

    _, err = f.svc.ApproveBooking(context.Background(), adminActor, d.ID)
    require.NoError(t, err)
    _, err = f.svc.UploadProof(context.Background(), userActor.UserID, d.ID, bytes.NewReader(pngHeader))
    assert.True(t, domain.IsConflict(err), "confirmed: got %v", err)
}
