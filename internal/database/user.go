// internal/database/user.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/cardmage/internal/auth"
	"github.com/jason-s-yu/cardmage/internal/models"
)

// CreateUser hashes password and inserts a player row. The returned user has
// its id filled in.
func (s *Store) CreateUser(ctx context.Context, username, password string, decks []models.Deck) (models.User, error) {
	hash, err := auth.HashPassword(password, auth.DefaultHashParams)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	if decks == nil {
		decks = []models.Deck{}
	}
	deckJSON, err := json.Marshal(decks)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to marshal decks: %w", err)
	}

	u := models.User{Username: username, PasswordHash: hash, Decks: decks}
	q := `INSERT INTO players (username, password_hash, decks)
	      VALUES ($1, $2, $3)
	      RETURNING id, created_at`
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q, username, hash, deckJSON).Scan(&u.ID, &u.CreatedAt)
	})
	if err != nil {
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

// GetUserByUsername implements auth.UserLookup.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var (
		u        models.User
		deckJSON []byte
	)
	q := `
	SELECT id, username, password_hash, decks, created_at
	FROM players
	WHERE username=$1
	`
	err := s.pool.QueryRow(ctx, q, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &deckJSON, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, models.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	if err := json.Unmarshal(deckJSON, &u.Decks); err != nil {
		return models.User{}, fmt.Errorf("failed to decode decks of %q: %w", username, err)
	}
	return u, nil
}
