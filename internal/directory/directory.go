// Package directory resolves principals from the user store.
package directory

import (
	"context"
	"errors"

	"github.com/rosterly/rosterly/internal/identity"
)

// ErrNotFound indicates the requested user does not exist or is inactive.
var ErrNotFound = errors.New("directory: user not found")

// Directory looks up principals by id.
type Directory interface {
	Lookup(ctx context.Context, id int64) (identity.Principal, error)
}

// Account couples a principal with its credential material. Only the auth
// flow sees this shape; everything else works with identity.Principal.
type Account struct {
	Principal    identity.Principal
	PasswordHash string
	IsActive     bool
}

// AccountFinder resolves accounts for credential checks.
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
}
