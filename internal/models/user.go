package models

import (
	"errors"
	"time"
)

// ErrUserNotFound is returned by user lookups that match no row.
var ErrUserNotFound = errors.New("user not found")

// User is a row of the players table.
type User struct {
	ID           int32     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Decks        []Deck    `json:"decks"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the in-game view of the user. A user without decks gets the starter deck.
func (u User) Identity() Identity {
	decks := u.Decks
	if len(decks) == 0 {
		decks = []Deck{DefaultDeck()}
	}
	return Identity{ID: u.ID, Name: u.Username, Decks: decks}
}
