package service

import (
    "context"
    "database/sql"
    "path/filepath"
    "sync"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/require"
    _ "modernc.org/sqlite"

    "github.com/miraifest/ticket-booking/internal/model"
    "github.com/miraifest/ticket-booking/internal/queue"
    "github.com/miraifest/ticket-booking/internal/repository"
    "github.com/miraifest/ticket-booking/internal/storage"
)

// sqliteSchema mirrors database/schema.sql in the SQLite dialect.
var sqliteSchema = []string{
    `CREATE TABLE users (
        id            INTEGER PRIMARY KEY AUTOINCREMENT,
        name          TEXT     NOT NULL,
        email         TEXT     NOT NULL UNIQUE,
        phone         TEXT     NULL,
        password_hash TEXT     NOT NULL,
        role          TEXT     NOT NULL DEFAULT 'user' CHECK (role IN ('user','admin')),
        session_token TEXT     NULL,
        created_at    DATETIME NOT NULL,
        updated_at    DATETIME NOT NULL
    )`,
    `CREATE TABLE ticket_types (
        id              INTEGER PRIMARY KEY AUTOINCREMENT,
        name            TEXT     NOT NULL,
        description     TEXT     NULL,
        price           NUMERIC  NOT NULL,
        quota           INTEGER  NOT NULL CHECK (quota >= 0),
        remaining_quota INTEGER  NOT NULL CHECK (remaining_quota >= 0 AND remaining_quota <= quota),
        created_at      DATETIME NOT NULL,
        updated_at      DATETIME NOT NULL
    )`,
    `CREATE TABLE bookings (
        id               INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id          INTEGER  NOT NULL REFERENCES users (id),
        ticket_type_id   INTEGER  NOT NULL REFERENCES ticket_types (id),
        quantity         INTEGER  NOT NULL CHECK (quantity > 0),
        total_price      NUMERIC  NOT NULL,
        booking_code     TEXT     NOT NULL UNIQUE,
        qr_code          TEXT     NOT NULL UNIQUE,
        qr_image         TEXT     NULL,
        payment_proof    TEXT     NULL,
        payment_status   TEXT     NOT NULL DEFAULT 'pending' CHECK (payment_status IN ('pending','confirmed','cancelled')),
        rejection_reason TEXT     NULL,
        created_at       DATETIME NOT NULL,
        updated_at       DATETIME NOT NULL
    )`,
}

var (
    adminActor = model.Actor{UserID: 1, Role: model.RoleAdmin}
    userActor  = model.Actor{UserID: 2, Role: model.RoleUser}
)

type recordingEvents struct {
    mu        sync.Mutex
    confirmed []queue.BookingConfirmedEvent
    cancelled []queue.BookingCancelledEvent
}

func (r *recordingEvents) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.confirmed = append(r.confirmed, ev)
    return nil
}

func (r *recordingEvents) PublishBookingCancelled(_ context.Context, ev queue.BookingCancelledEvent) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.cancelled = append(r.cancelled, ev)
    return nil
}

type countingPurger struct {
    mu sync.Mutex
    n  int
}

func (c *countingPurger) Purge(context.Context) error {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.n++
    return nil
}

func (c *countingPurger) count() int {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.n
}

type fixture struct {
    db       *sql.DB
    tickets  *repository.TicketTypeRepo
    bookings *repository.BookingRepo
    ledger   *QuotaLedger
    svc      *BookingService
    catalog  *TicketService
    root     *storage.Root
    events   *recordingEvents
    cache    *countingPurger
}

// newFixture opens a fresh SQLite file with one admin (id 1) and one
// buyer (id 2).  A single connection serialises transactions the way
// InnoDB row locks serialise them on the ticket row.
func newFixture(t *testing.T) *fixture {
    t.Helper()
    dir := t.TempDir()
    dsn := "file:" + filepath.Join(dir, "booking.db") +
        "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
    db, err := sql.Open("sqlite", dsn)
    require.NoError(t, err)
    db.SetMaxOpenConns(1)
    t.Cleanup(func() { _ = db.Close() })

    ctx := context.Background()
    for _, stmt := range sqliteSchema {
        _, err := db.ExecContext(ctx, stmt)
        require.NoError(t, err)
    }

    root, err := storage.NewRoot(filepath.Join(dir, "uploads"))
    require.NoError(t, err)

    f := &fixture{
        db:       db,
        tickets:  repository.NewTicketTypeRepo(db),
        bookings: repository.NewBookingRepo(db),
        root:     root,
        events:   &recordingEvents{},
        cache:    &countingPurger{},
    }
    f.ledger = NewQuotaLedger(f.tickets, 5*time.Second)
    f.svc = NewBookingService(BookingDeps{
        DB:        db,
        Bookings:  f.bookings,
        Tickets:   f.tickets,
        Ledger:    f.ledger,
        Codes:     NewCodeGenerator(10),
        Artifacts: storage.NewArtifactStore(root),
        Proofs:    storage.NewProofStore(root),
        Events:    f.events,
        Cache:     f.cache,
        TxTimeout: 5 * time.Second,
    })
    f.catalog = NewTicketService(db, f.tickets, f.ledger, f.cache, nil, 5*time.Second)

    f.addUser(t, "Festival Admin", "admin@miraifest.test", model.RoleAdmin)
    f.addUser(t, "Rina Buyer", "rina@example.com", model.RoleUser)
    return f
}

func (f *fixture) addUser(t *testing.T, name, email, role string) uint64 {
    t.Helper()
    now := time.Now().UTC().Truncate(time.Second)
    res, err := f.db.Exec(
        `INSERT INTO users (name, email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
        name, email, "$2a$04$not-a-real-hash", role, now, now)
    require.NoError(t, err)
    id, err := res.LastInsertId()
    require.NoError(t, err)
    return uint64(id)
}

func (f *fixture) addTicket(t *testing.T, name, price string, quota int) uint64 {
    t.Helper()
    tt := &model.TicketType{Name: name, Price: decimal.RequireFromString(price), Quota: quota}
    require.NoError(t, f.tickets.Create(context.Background(), tt))
    return tt.ID
}

func (f *fixture) ticket(t *testing.T, id uint64) *model.TicketType {
    t.Helper()
    tt, err := f.tickets.GetByID(context.Background(), id)
    require.NoError(t, err)
    return tt
}

// requireLedgerBalanced checks that quota - remaining equals the units held
// by pending and confirmed bookings.
func (f *fixture) requireLedgerBalanced(t *testing.T, id uint64) {
    t.Helper()
    tt := f.ticket(t, id)
    held, err := f.bookings.HeldUnits(context.Background(), id)
    require.NoError(t, err)
    require.GreaterOrEqual(t, tt.RemainingQuota, 0)
    require.LessOrEqual(t, tt.RemainingQuota, tt.Quota)
    if held <= tt.Quota {
        require.Equal(t, held, tt.Quota-tt.RemainingQuota, "ledger out of balance for ticket type %d", id)
    }
}

func (f *fixture) book(t *testing.T, userID, ticketTypeID uint64, qty int) *model.BookingDetail {
    t.Helper()
    d, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{UserID: userID, TicketTypeID: ticketTypeID, Quantity: qty})
    require.NoError(t, err)
    return d
}
