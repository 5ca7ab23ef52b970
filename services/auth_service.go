package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cppla/devboard/models"
	"github.com/cppla/devboard/stores"
	"github.com/cppla/devboard/utils"
)

// DefaultTokenTTL is the lifetime of issued tokens when none is configured.
const DefaultTokenTTL = 7 * 24 * time.Hour

// SignupInput is the registration payload.
type SignupInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// ProviderIdentity is what a third-party login provider tells us about a user.
type ProviderIdentity struct {
	Provider string
	Email    string
	Name     string
}

// AuthResult is returned by every successful login.
type AuthResult struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// AuthService registers users and issues and checks bearer tokens.
type AuthService struct {
	users     stores.UserStore
	secret    []byte
	tokenTTL  time.Duration
	blacklist *utils.TokenBlacklist
	validate  *validator.Validate
}

// NewAuthService creates an AuthService. A nil blacklist gets an in-memory one.
func NewAuthService(users stores.UserStore, secret []byte, tokenTTL time.Duration, blacklist *utils.TokenBlacklist) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	if blacklist == nil {
		blacklist = utils.NewTokenBlacklist(nil)
	}
	return &AuthService{
		users:     users,
		secret:    secret,
		tokenTTL:  tokenTTL,
		blacklist: blacklist,
		validate:  newValidator(),
	}
}

// Signup creates an account and logs it in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Username = utils.SanitizePlain(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}
	if len(in.Password) > utils.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, utils.MaxPasswordBytes)
	}

	if _, err := s.users.FindUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, stores.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, stores.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.issue(user)
}

// Login checks credentials. Unknown email and wrong password fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

// ValidateToken resolves a bearer token to its user.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := utils.ParseToken(s.secret, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if s.blacklist.IsRevoked(ctx, claims.ID) {
		return nil, ErrInvalidToken
	}
	user, err := s.users.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// Logout revokes token for the rest of its lifetime. Other sessions of the same
// user stay valid.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := utils.ParseToken(s.secret, token)
	if err != nil {
		return ErrInvalidToken
	}
	expiresAt := time.Now().Add(s.tokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// LoginWithProvider signs in a user vouched for by an OAuth provider, creating the
// account on first use. Such accounts have no usable password.
func (s *AuthService) LoginWithProvider(ctx context.Context, id ProviderIdentity) (*AuthResult, error) {
	email := normalizeEmail(id.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: %s account has no email", ErrValidation, id.Provider)
	}

	user, err := s.users.FindUserByEmail(ctx, email)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, stores.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	user = &models.User{
		Username: providerUsername(id.Name, email),
		Email:    email,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, stores.ErrDuplicate) {
			return nil, fmt.Errorf("create user: %w", err)
		}
		// Lost a race with a concurrent first login.
		if user, err = s.users.FindUserByEmail(ctx, email); err != nil {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := utils.GenerateToken(s.secret, user.ID, user.Email, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func providerUsername(name, email string) string {
	if n := utils.SanitizePlain(name); n != "" {
		if len([]rune(n)) > 64 {
			n = string([]rune(n)[:64])
		}
		return n
	}
	return strings.SplitN(email, "@", 2)[0]
}
