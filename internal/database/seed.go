package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/miraifest/ticket-booking/internal/utils"
)

// SeedAdmin describes the bootstrap administrator.
type SeedAdmin struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

type seedTicket struct {
	name        string
	description string
	price       int64
	quota       int
}

var defaultTickets = []seedTicket{
	{"General Admission (GA)", "Access to all festival areas: main stage, vendor booths, photo spots and the cosplay competition as audience.", 150000, 500},
	{"VIP Pass", "All GA benefits plus meet & greet with guest stars, VIP seating, exclusive merchandise and priority entry.", 350000, 150},
	{"Cosplayer Pass", "All GA benefits plus backstage and changing room access, cosplay competition entry, photoshoot corner and cosplayer lounge.", 250000, 200},
}

// Seed inserts the bootstrap admin and the default ticket types.  Existing
// rows are left alone: the admin is matched by email and ticket types are
// only seeded into an empty table.
func Seed(ctx context.Context, db *sql.DB, admin SeedAdmin, bcryptCost int) error {
	if admin.Email == "" || admin.Password == "" {
		return errors.New("seed: admin email and password are required")
	}
	now := time.Now().UTC().Truncate(time.Second)

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email=?", admin.Email).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		hash, err := utils.HashPassword(admin.Password, bcryptCost)
		if err != nil {
			return err
		}
		var phone any
		if admin.Phone != "" {
			phone = admin.Phone
		}
		if _, err := db.ExecContext(ctx,
			"INSERT INTO users (name, email, phone, password_hash, role, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
			admin.Name, admin.Email, phone, hash, "admin", now, now); err != nil {
			return err
		}
	}

	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ticket_types").Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, t := range defaultTickets {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO ticket_types (name, description, price, quota, remaining_quota, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
			t.name, t.description, decimal.NewFromInt(t.price), t.quota, t.quota, now, now); err != nil {
			return err
		}
	}
	return nil
}
