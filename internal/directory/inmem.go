package directory

import (
	"context"
	"sync"

	"github.com/rosterly/rosterly/internal/identity"
)

// InMemory is a map-backed Directory for tests and local bootstrapping.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[int64]Account
}

// NewInMemory constructs an empty InMemory directory.
func NewInMemory() *InMemory {
	return &InMemory{accounts: make(map[int64]Account)}
}

// Add registers an account.
func (d *InMemory) Add(acct Account) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts[acct.Principal.ID] = acct
}

// Lookup returns the active principal with the given id.
func (d *InMemory) Lookup(ctx context.Context, id int64) (identity.Principal, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	acct, ok := d.accounts[id]
	if !ok || !acct.IsActive {
		return identity.Principal{}, ErrNotFound
	}
	return acct.Principal, nil
}

// FindByEmail returns the account registered under the email.
func (d *InMemory) FindByEmail(ctx context.Context, email string) (Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, acct := range d.accounts {
		if acct.Principal.Email == email {
			return acct, nil
		}
	}
	return Account{}, ErrNotFound
}

var (
	_ Directory     = (*InMemory)(nil)
	_ AccountFinder = (*InMemory)(nil)
)
