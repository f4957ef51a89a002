// internal/auth/authenticator.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jason-s-yu/cardmage/internal/models"
)

// ErrRejected is returned for wrong credentials of any kind.
var ErrRejected = errors.New("credentials rejected")

// Authenticator turns a username and password into an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (models.Identity, error)
}

// UserLookup finds a stored account by name. It returns models.ErrUserNotFound
// when there is none.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}

// PasswordAuthenticator checks credentials against stored Argon2id hashes.
type PasswordAuthenticator struct {
	Users UserLookup
}

func (a PasswordAuthenticator) Authenticate(ctx context.Context, username, password string) (models.Identity, error) {
	u, err := a.Users.GetUserByUsername(ctx, username)
	if errors.Is(err, models.ErrUserNotFound) {
		return models.Identity{}, ErrRejected
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("failed to look up %q: %w", username, err)
	}
	ok, err := VerifyPassword(password, u.PasswordHash)
	if err != nil {
		return models.Identity{}, fmt.Errorf("stored hash for %q: %w", username, err)
	}
	if !ok {
		return models.Identity{}, ErrRejected
	}
	return u.Identity(), nil
}

// DevPrefix marks usernames the development authenticator accepts.
const DevPrefix = "test"

// DevAuthenticator accepts any username of at least six characters that
// starts with "test", whatever the password. Each new name gets the next id
// from 1 up; repeated logins keep their id.
type DevAuthenticator struct {
	mu   sync.Mutex
	ids  map[string]int32
	next int32
}

func NewDevAuthenticator() *DevAuthenticator {
	return &DevAuthenticator{ids: make(map[string]int32), next: 1}
}

func (a *DevAuthenticator) Authenticate(_ context.Context, username, _ string) (models.Identity, error) {
	if len(username) < 6 || !strings.HasPrefix(username, DevPrefix) {
		return models.Identity{}, ErrRejected
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.ids[username]
	if !ok {
		id = a.next
		a.next++
		a.ids[username] = id
	}
	return models.Identity{ID: id, Name: username, Decks: []models.Deck{models.DefaultDeck()}}, nil
}

// Chain tries each authenticator in turn and returns the first success. An
// infrastructure error stops the chain.
type Chain []Authenticator

func (c Chain) Authenticate(ctx context.Context, username, password string) (models.Identity, error) {
	for _, a := range c {
		id, err := a.Authenticate(ctx, username, password)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrRejected) {
			return models.Identity{}, err
		}
	}
	return models.Identity{}, ErrRejected
}
