package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/eazyeats/internal/auth"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/repository"
	"github.com/d60-Lab/eazyeats/internal/service"
	"github.com/d60-Lab/eazyeats/internal/testutil"
)

func newAuth(t *testing.T) (service.AuthService, *auth.Tokens, repository.UserRepository) {
	t.Helper()
	users := repository.NewUserRepository(testutil.NewDB(t))
	tokens := auth.NewTokens("access-secret", "refresh-secret", 15*time.Minute, time.Hour)
	return service.NewAuthService(users, tokens), tokens, users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, tokens, _ := newAuth(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, service.RegisterInput{Email: "Meera@Example.com ", Password: "secret1", Name: "Meera"})
	require.NoError(t, err)
	assert.Equal(t, "meera@example.com", sess.User.Email)
	assert.Equal(t, model.RoleUser, sess.User.Role)

	p, err := tokens.VerifyAccess(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, p.UserID)
	_, err = tokens.VerifyRefresh(sess.RefreshToken)
	require.NoError(t, err)

	_, err = svc.Register(ctx, service.RegisterInput{Email: "meera@example.com", Password: "secret2", Name: "Other"})
	assert.ErrorIs(t, err, service.ErrEmailTaken)

	sess, err = svc.Login(ctx, "MEERA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Meera", sess.User.Name)

	_, err = svc.Login(ctx, "meera@example.com", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestRegisterWithEmployeeIDIsStaff(t *testing.T) {
	svc, _, _ := newAuth(t)

	sess, err := svc.Register(context.Background(), service.RegisterInput{
		Email: "cook@example.com", Password: "secret1", Name: "Cook", EmployeeID: "E-42",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, sess.User.Role)
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	svc, tokens, users := newAuth(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, service.RegisterInput{Email: "ravi@example.com", Password: "secret1", Name: "Ravi"})
	require.NoError(t, err)
	_, err = users.UpdateRole(ctx, sess.User.ID, model.RoleAdmin)
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	p, err := tokens.VerifyAccess(next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, p.Role)

	_, err = svc.Refresh(ctx, sess.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestEnsureRole(t *testing.T) {
	svc, _, _ := newAuth(t)
	ctx := context.Background()

	_, _, err := svc.EnsureRole(ctx, service.RegisterInput{Email: "boss@example.com", Password: "pw"}, "owner")
	assert.ErrorIs(t, err, service.ErrInvalidRole)

	_, _, err = svc.EnsureRole(ctx, service.RegisterInput{Email: "boss@example.com"}, model.RoleAdmin)
	assert.Error(t, err)

	u, created, err := svc.EnsureRole(ctx, service.RegisterInput{Email: "boss@example.com", Password: "secret1"}, model.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "boss", u.Name)
	assert.Equal(t, model.RoleAdmin, u.Role)

	u, created, err = svc.EnsureRole(ctx, service.RegisterInput{Email: "boss@example.com", Name: "The Boss", Password: "secret2"}, model.RoleStaff)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "The Boss", u.Name)
	assert.Equal(t, model.RoleStaff, u.Role)

	sess, err := svc.Login(ctx, "boss@example.com", "secret2")
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, sess.User.Role)
}
