package service

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"

    "github.com/miraifest/ticket-booking/internal/domain"
    "github.com/miraifest/ticket-booking/internal/model"
    "github.com/miraifest/ticket-booking/internal/repository"
    "github.com/miraifest/ticket-booking/internal/utils"
)

func newUserService(f *fixture) *UserService {
    return NewUserService(repository.NewUserRepo(f.db), repository.NewSessionRepo(f.db), "test-secret", 60, bcrypt.MinCost, nil)
}

func TestUserService_RegisterLoginLogout(t *testing.T) {
    f := newFixture(t)
    s := newUserService(f)
    ctx := context.Background()

    u, err := s.Register(ctx, RegisterInput{Name: "Sakura Hana", Email: " Sakura@Example.com ", Password: "secret123"})
    require.NoError(t, err)
    assert.Equal(t, "sakura@example.com", u.Email)
    assert.Equal(t, model.RoleUser, u.Role)

    _, err = s.Register(ctx, RegisterInput{Name: "Sakura Again", Email: "sakura@example.com", Password: "secret123"})
    assert.True(t, domain.IsConflict(err), "duplicate: got %v", err)

    _, err = s.Login(ctx, LoginInput{Email: "sakura@example.com", Password: "wrong-pass"})
    assert.True(t, domain.IsUnauthorized(err), "bad password: got %v", err)
    _, err = s.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret123"})
    assert.True(t, domain.IsUnauthorized(err), "unknown email: got %v", err)

    res, err := s.Login(ctx, LoginInput{Email: "SAKURA@example.com", Password: "secret123"})
    require.NoError(t, err)
    claims, err := utils.ParseAccessToken("test-secret", res.Token)
    require.NoError(t, err)
    assert.Equal(t, u.ID, claims.UserID)
    assert.Equal(t, model.RoleUser, claims.Role)

    ok, err := s.VerifySession(ctx, u.ID, res.Token)
    require.NoError(t, err)
    assert.True(t, ok)

    // a second login replaces the first session
    res2, err := s.Login(ctx, LoginInput{Email: "sakura@example.com", Password: "secret123"})
    require.NoError(t, err)
    ok, err = s.VerifySession(ctx, u.ID, res.Token)
    require.NoError(t, err)
    assert.False(t, ok)

    require.NoError(t, s.Logout(ctx, u.ID))
    ok, err = s.VerifySession(ctx, u.ID, res2.Token)
    require.NoError(t, err)
    assert.False(t, ok)
}

func TestUserService_RegisterValidation(t *testing.T) {
    f := newFixture(t)
    s := newUserService(f)

    _, err := s.Register(context.Background(), RegisterInput{Name: "Al", Email: "not-an-email", Password: "123"})
    var ve domain.ValidationError
    require.ErrorAs(t, err, &ve)
    assert.Contains(t, ve.Fields, "name")
    assert.Contains(t, ve.Fields, "email")
    assert.Contains(t, ve.Fields, "password")
}

func TestUserService_AdminManagement(t *testing.T) {
    f := newFixture(t)
    s := newUserService(f)
    ctx := context.Background()
    id := f.addTicket(t, "General Admission", "150000", 10)
    f.book(t, userActor.UserID, id, 1)
    spare := f.addUser(t, "Spare Account", "spare@example.com", model.RoleUser)

    users, total, err := s.ListUsers(ctx, adminActor, "example.com", "", 1, 10)
    require.NoError(t, err)
    assert.Equal(t, 2, total)
    assert.Len(t, users, 2)

    _, _, err = s.ListUsers(ctx, userActor, "", "", 1, 10)
    assert.True(t, domain.IsForbidden(err), "got %v", err)

    demote := model.RoleUser
    _, err = s.UpdateUser(ctx, adminActor, adminActor.UserID, AdminUserInput{Role: &demote})
    assert.True(t, domain.IsConflict(err), "self demote: got %v", err)

    promote := model.RoleAdmin
    v, err := s.UpdateUser(ctx, adminActor, spare, AdminUserInput{Role: &promote})
    require.NoError(t, err)
    assert.Equal(t, model.RoleAdmin, v.Role)

    err = s.DeleteUser(ctx, adminActor, userActor.UserID)
    assert.True(t, domain.IsConflict(err), "has bookings: got %v", err)
    err = s.DeleteUser(ctx, adminActor, adminActor.UserID)
    assert.True(t, domain.IsConflict(err), "self: got %v", err)
    require.NoError(t, s.DeleteUser(ctx, adminActor, spare))
    _, err = s.GetUser(ctx, adminActor, spare)
    assert.True(t, domain.IsNotFound(err), "got %v", err)
}
