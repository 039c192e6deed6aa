package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/rosterly/rosterly/internal/directory"
	"github.com/rosterly/rosterly/internal/identity"
)

// ErrInvalidCredentials indicates login failure.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Service wraps authentication business rules.
type Service struct {
	accounts directory.AccountFinder
}

// NewService constructs a new Service.
func NewService(accounts directory.AccountFinder) *Service {
	return &Service{accounts: accounts}
}

// Authenticate validates email/password credentials and returns the verified
// principal.
func (s *Service) Authenticate(ctx context.Context, email, password string) (identity.Principal, error) {
	acct, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return identity.Principal{}, ErrInvalidCredentials
	}
	if !acct.IsActive {
		return identity.Principal{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return identity.Principal{}, ErrInvalidCredentials
	}
	return acct.Principal, nil
}
