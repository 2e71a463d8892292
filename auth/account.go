package auth

import (
	"context"
	"errors"
	"log"
	"strings"

	"shophub/apperr"
	"shophub/globals"
	"shophub/models"
	"shophub/mq"
	"shophub/rdx"
	"shophub/store"

	"golang.org/x/crypto/bcrypt"
)

// Service covers password registration and login for the storefront.
type Service struct {
	accounts store.AccountStore
	tokens   TokenService
	notifier mq.Notifier
	cache    rdx.Invalidator
}

func NewService(accounts store.AccountStore, tokens TokenService, notifier mq.Notifier, cache rdx.Invalidator) *Service {
	return &Service{accounts: accounts, tokens: tokens, notifier: notifier, cache: cache}
}

type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginResult is returned by Login and AdminLogin.
type LoginResult struct {
	Token string             `json:"token"`
	User  models.AccountView `json:"user"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.AccountView, error) {
	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		return nil, apperr.InvalidArgument("email and password are required")
	}

	_, err := s.accounts.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperr.Conflict("user already exists")
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, apperr.InvalidArgument("password must be at most 72 bytes")
	}
	if err != nil {
		log.Printf("Failed to hash password for %s: %v", in.Email, err)
		return nil, apperr.Internal(err)
	}

	acc := &models.Account{
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Email:          in.Email,
		Password:       string(hash),
		Roles:          []string{globals.RoleUser},
		CartItems:      []models.CartLine{},
		Addresses:      []string{},
		BuyingProducts: []string{},
		Orders:         []string{},
	}
	if err := s.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}

	log.Printf("Registered user %s", acc.Email)
	s.notifier.SendWelcome(acc.Email, acc.FullName())
	view := acc.View()
	return &view, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	acc, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, acc)
}

// AdminLogin is Login restricted to accounts holding the ADMIN role.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	acc, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !acc.HasRole(globals.RoleAdmin) {
		return nil, apperr.Forbidden("admin access required")
	}
	return s.startSession(ctx, acc)
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	acc, err := s.accounts.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if acc.IsProviderOnly() {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.Password), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return acc, nil
}

func (s *Service) startSession(ctx context.Context, acc *models.Account) (*LoginResult, error) {
	token, err := s.tokens.Issue(acc.ID, acc.Email, acc.FirstName, acc.LastName)
	if err != nil {
		return nil, err
	}
	acc.JwtToken = token
	if err := s.accounts.Save(ctx, acc); err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: acc.View()}, nil
}

// Logout drops the token stored on the caller's account. Issued tokens stay
// valid until they expire.
func (s *Service) Logout(ctx context.Context, id models.Identity) error {
	acc, err := s.accounts.FindByID(ctx, id.AccountID)
	if err != nil {
		return err
	}
	acc.JwtToken = ""
	if err := s.accounts.Save(ctx, acc); err != nil {
		return err
	}
	rdx.Evict(ctx, s.cache, acc.Email)
	return nil
}
