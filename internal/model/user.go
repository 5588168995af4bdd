package model

import "time"

// Roles carried in the JWT role claim and stored in users.role.
const (
    RoleUser  = "user"
    RoleAdmin = "admin"
)

// User represents an application user record as stored in the `users`
// table.  PasswordHash and SessionToken never leave the server; handlers
// expose users through UserView.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique email address (lower-cased).
//  Phone        – optional phone number.
//  PasswordHash – bcrypt hashed password.
//  Role         – user or admin.
//  SessionToken – SHA-256 of the access token issued at last login; cleared on logout.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64
    Name         string
    Email        string
    Phone        *string
    PasswordHash string
    Role         string
    SessionToken *string
    CreatedAt    time.Time
    UpdatedAt    time.Time
}

// UserView is the JSON-safe projection of a User.
type UserView struct {
    ID        uint64    `json:"id"`
    Name      string    `json:"name"`
    Email     string    `json:"email"`
    Phone     *string   `json:"phone"`
    Role      string    `json:"role"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}

// View strips credentials from u.
func (u User) View() UserView {
    return UserView{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: u.Role, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

// Actor is the authenticated caller as seen by the service layer.  Handlers
// build it from the JWT claims and pass it explicitly into admin-only
// operations.
type Actor struct {
    UserID uint64
    Role   string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
