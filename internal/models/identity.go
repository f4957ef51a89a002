// internal/models/identity.go
package models

// Identity is what other players see of a player: a numeric id and a display name.
// Logged-in players have positive ids, guests negative ones; 0 marks an empty seat on the wire.
type Identity struct {
	ID    int32  `json:"id"`
	Name  string `json:"name"`
	Decks []Deck `json:"decks,omitempty"`
}

// IsGuest reports whether the identity was generated for an unauthenticated connection.
func (i Identity) IsGuest() bool {
	return i.ID < 0
}

// Deck is an ordered list of card template ids.
type Deck struct {
	Name    string  `json:"name" yaml:"name"`
	CardIDs []int32 `json:"card_ids" yaml:"cards"`
}

// DefaultDeck alternates the two starter monsters, ten of each.
func DefaultDeck() Deck {
	ids := make([]int32, 0, 20)
	for i := 0; i < 10; i++ {
		ids = append(ids, 0, 1)
	}
	return Deck{Name: "starter", CardIDs: ids}
}
