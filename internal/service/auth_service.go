package service

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/d60-Lab/eazyeats/internal/auth"
	"github.com/d60-Lab/eazyeats/internal/model"
	"github.com/d60-Lab/eazyeats/internal/repository"
)

type RegisterInput struct {
	Email      string
	Password   string
	Name       string
	EmployeeID string
}

// Session 登录后返回给客户端的凭证
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *model.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	// EnsureRole creates the user or updates role, and name/password when non-empty.
	EnsureRole(ctx context.Context, in RegisterInput, role model.Role) (*model.User, bool, error)
}

type authService struct {
	users  repository.UserRepository
	tokens *auth.Tokens
}

func NewAuthService(users repository.UserRepository, tokens *auth.Tokens) AuthService {
	return &authService{users: users, tokens: tokens}
}

func (s *authService) session(u *model.User) (*Session, error) {
	access, err := s.tokens.SignAccess(u)
	if err != nil {
		return nil, errors.Wrap(err, "sign access token")
	}
	refresh, err := s.tokens.SignRefresh(u)
	if err != nil {
		return nil, errors.Wrap(err, "sign refresh token")
	}
	return &Session{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// Register 带工号注册即为员工
func (s *authService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	role := model.RoleUser
	if strings.TrimSpace(in.EmployeeID) != "" {
		role = model.RoleStaff
	}
	u := &model.User{Email: in.Email, PasswordHash: hash, Name: strings.TrimSpace(in.Name), Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return s.session(u)
}

func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

// Refresh 重新读取用户，角色变更在新访问令牌中生效
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	p, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *authService) EnsureRole(ctx context.Context, in RegisterInput, role model.Role) (*model.User, bool, error) {
	if !role.Valid() {
		return nil, false, ErrInvalidRole
	}
	u, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		if in.Password == "" {
			return nil, false, errors.New("password required to create a user")
		}
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, false, err
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = strings.Split(in.Email, "@")[0]
		}
		u = &model.User{Email: in.Email, PasswordHash: hash, Name: name, Role: role}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, false, err
		}
		return u, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	u.Role = role
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = name
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, false, err
		}
		u.PasswordHash = hash
	}
	if err := s.users.Save(ctx, u); err != nil {
		return nil, false, err
	}
	return u, false, nil
}
