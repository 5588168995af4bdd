package database

import (
	"context"
	"database/sql"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options tunes the connection.  Zero values fall back to defaults.
type Options struct {
	// LockWaitSeconds bounds how long a booking waits on a locked
	// ticket_types row before MySQL gives up on the statement.
	LockWaitSeconds int
	MaxOpenConns    int
}

func (o Options) withDefaults() Options {
	if o.LockWaitSeconds <= 0 {
		o.LockWaitSeconds = 5
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 25
	}
	return o
}

// DSN renders the driver connection string.  Times are parsed into
// time.Time in UTC; unknown params reach the server as session variables.
func DSN(user, pass, host, port, name string, opts Options) string {
	opts = opts.withDefaults()
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{
		"charset":                  "utf8mb4",
		"innodb_lock_wait_timeout": strconv.Itoa(opts.LockWaitSeconds),
	}
	return cfg.FormatDSN()
}

// Open connects to MySQL and pings it before handing the pool back.
func Open(user, pass, host, port, name string, opts Options) (*sql.DB, error) {
	opts = opts.withDefaults()
	db, err := sql.Open("mysql", DSN(user, pass, host, port, name, opts))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
