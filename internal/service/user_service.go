package service

import (
    "context"
    "errors"
    "strings"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/miraifest/ticket-booking/internal/domain"
    "github.com/miraifest/ticket-booking/internal/model"
    "github.com/miraifest/ticket-booking/internal/repository"
    "github.com/miraifest/ticket-booking/internal/utils"
    "github.com/miraifest/ticket-booking/internal/validation"
)

// RegisterInput is the public sign-up request.
type RegisterInput struct {
    Name     string  `json:"name" validate:"required,min=3,max=255"`
    Email    string  `json:"email" validate:"required,email,max=255"`
    Phone    *string `json:"phone" validate:"omitempty,min=10,max=20"`
    Password string  `json:"password" validate:"required,min=6,max=72"`
}

// LoginInput carries credentials.
type LoginInput struct {
    Email    string `json:"email" validate:"required,email"`
    Password string `json:"password" validate:"required"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
    Token     string         `json:"token"`
    ExpiresAt time.Time      `json:"expires_at"`
    User      model.UserView `json:"user"`
}

// ProfileInput holds the fields a user may change about themselves.
type ProfileInput struct {
    Name     *string `json:"name" validate:"omitempty,min=3,max=255"`
    Phone    *string `json:"phone" validate:"omitempty,min=10,max=20"`
    Password *string `json:"password" validate:"omitempty,min=6,max=72"`
}

// AdminUserInput holds the fields an admin may change on any account.
type AdminUserInput struct {
    Name     *string `json:"name" validate:"omitempty,min=3,max=255"`
    Email    *string `json:"email" validate:"omitempty,email,max=255"`
    Phone    *string `json:"phone" validate:"omitempty,min=10,max=20"`
    Role     *string `json:"role" validate:"omitempty,oneof=user admin"`
    Password *string `json:"password" validate:"omitempty,min=6,max=72"`
}

// UserService covers accounts: registration, sessions, profiles and admin
// user management.
type UserService struct {
    users      *repository.UserRepo
    sessions   *repository.SessionRepo
    jwtSecret  string
    accessTTL  int
    bcryptCost int
    log        *zap.Logger
}

func NewUserService(users *repository.UserRepo, sessions *repository.SessionRepo, jwtSecret string, accessTTLMin, bcryptCost int, log *zap.Logger) *UserService {
    if log == nil {
        log = zap.NewNop()
    }
    return &UserService{users: users, sessions: sessions, jwtSecret: jwtSecret, accessTTL: accessTTLMin, bcryptCost: bcryptCost, log: log.Named("users")}
}

// Register creates a user account with the user role.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.UserView, error) {
    in.Name = strings.TrimSpace(in.Name)
    in.Email = strings.ToLower(strings.TrimSpace(in.Email))
    if err := validation.Struct(in); err != nil {
        return nil, err
    }
    id, err := s.users.Create(ctx, repository.NewUser{Name: in.Name, Email: in.Email, Phone: in.Phone, Password: in.Password, Role: model.RoleUser}, s.bcryptCost)
    if err != nil {
        return nil, fromRepo("register", err)
    }
    u, err := s.users.GetByID(ctx, id)
    if err != nil {
        return nil, fromRepo("load user", err)
    }
    s.log.Info("user registered", zap.Uint64("user_id", id))
    v := u.View()
    return &v, nil
}

// Login verifies credentials, issues an access token and records its hash
// as the user's only live session.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
    in.Email = strings.ToLower(strings.TrimSpace(in.Email))
    if err := validation.Struct(in); err != nil {
        return nil, err
    }
    u, err := s.users.GetByEmail(ctx, in.Email)
    if errors.Is(err, repository.ErrUserNotFound) {
        return nil, domain.UnauthorizedError{Msg: "invalid credentials"}
    }
    if err != nil {
        return nil, fromRepo("login", err)
    }
    if !utils.VerifyPassword(u.PasswordHash, in.Password) {
        return nil, domain.UnauthorizedError{Msg: "invalid credentials"}
    }
    access, err := utils.NewAccessToken(s.jwtSecret, u.ID, u.Role, s.accessTTL, uuid.NewString())
    if err != nil {
        return nil, domain.Failure("issue token", err)
    }
    if err := s.sessions.Store(ctx, u.ID, utils.HashToken(access.Token)); err != nil {
        return nil, fromRepo("store session", err)
    }
    s.log.Info("user logged in", zap.Uint64("user_id", u.ID))
    return &LoginResult{Token: access.Token, ExpiresAt: access.Exp, User: u.View()}, nil
}

// Logout ends the user's session so the current token stops working.
func (s *UserService) Logout(ctx context.Context, userID uint64) error {
    if err := s.sessions.Clear(ctx, userID); err != nil {
        return fromRepo("logout", err)
    }
    return nil
}

// VerifySession reports whether rawToken is the session the user last
// logged in with.
func (s *UserService) VerifySession(ctx context.Context, userID uint64, rawToken string) (bool, error) {
    return s.sessions.Validate(ctx, userID, utils.HashToken(rawToken))
}

// Profile returns the caller's account.
func (s *UserService) Profile(ctx context.Context, userID uint64) (*model.UserView, error) {
    u, err := s.users.GetByID(ctx, userID)
    if err != nil {
        return nil, fromRepo("load profile", err)
    }
    v := u.View()
    return &v, nil
}

// UpdateProfile changes the caller's name, phone or password.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, in ProfileInput) (*model.UserView, error) {
    if err := validation.Struct(in); err != nil {
        return nil, err
    }
    patch := repository.UserPatch{Name: in.Name, Phone: in.Phone}
    if in.Password != nil {
        h, err := utils.HashPassword(*in.Password, s.bcryptCost)
        if err != nil {
            return nil, domain.Failure("hash password", err)
        }
        patch.PasswordHash = &h
    }
    if err := s.users.Update(ctx, userID, patch); err != nil {
        return nil, fromRepo("update profile", err)
    }
    return s.Profile(ctx, userID)
}

// ListUsers returns one page of accounts.
func (s *UserService) ListUsers(ctx context.Context, actor model.Actor, search, role string, page, perPage int) ([]model.UserView, int, error) {
    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return nil, 0, err
    }
    if role != "" && role != model.RoleUser && role != model.RoleAdmin {
        return nil, 0, domain.NewValidationError("role", "must be one of: user admin")
    }
    if perPage > 100 {
        perPage = 100
    }
    us, total, err := s.users.List(ctx, search, role, page, perPage)
    if err != nil {
        return nil, 0, fromRepo("list users", err)
    }
    out := make([]model.UserView, 0, len(us))
    for _, u := range us {
        out = append(out, u.View())
    }
    return out, total, nil
}

// GetUser returns any account.
func (s *UserService) GetUser(ctx context.Context, actor model.Actor, id uint64) (*model.UserView, error) {
    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return nil, err
    }
    return s.Profile(ctx, id)
}

// UpdateUser changes any account.  Admins cannot demote themselves.
func (s *UserService) UpdateUser(ctx context.Context, actor model.Actor, id uint64, in AdminUserInput) (*model.UserView, error) {
    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return nil, err
    }
    if err := validation.Struct(in); err != nil {
        return nil, err
    }
    if id == actor.UserID && in.Role != nil && *in.Role != model.RoleAdmin {
        return nil, domain.ConflictError{Resource: "user", Msg: "cannot remove your own admin role"}
    }
    patch := repository.UserPatch{Name: in.Name, Email: in.Email, Phone: in.Phone, Role: in.Role}
    if in.Password != nil {
        h, err := utils.HashPassword(*in.Password, s.bcryptCost)
        if err != nil {
            return nil, domain.Failure("hash password", err)
        }
        patch.PasswordHash = &h
    }
    if err := s.users.Update(ctx, id, patch); err != nil {
        return nil, fromRepo("update user", err)
    }
    if in.Role != nil || in.Password != nil {
        // role and password changes force a fresh login
        if err := s.sessions.Clear(ctx, id); err != nil {
            s.log.Warn("clear session failed", zap.Uint64("user_id", id), zap.Error(err))
        }
    }
    s.log.Info("user updated", zap.Uint64("user_id", id), zap.Uint64("admin_id", actor.UserID))
    return s.Profile(ctx, id)
}

// DeleteUser removes an account without bookings.
func (s *UserService) DeleteUser(ctx context.Context, actor model.Actor, id uint64) error {
    if err := requireRole(actor, model.RoleAdmin); err != nil {
        return err
    }
    if id == actor.UserID {
        return domain.ConflictError{Resource: "user", Msg: "cannot delete your own account"}
    }
    if err := s.users.Delete(ctx, id); err != nil {
        if errors.Is(err, repository.ErrConflict) {
            return domain.ConflictError{Resource: "user", Msg: "user has bookings"}
        }
        return fromRepo("delete user", err)
    }
    s.log.Info("user deleted", zap.Uint64("user_id", id), zap.Uint64("admin_id", actor.UserID))
    return nil
}
