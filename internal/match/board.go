// internal/match/board.go
package match

import (
	"math/rand"

	"github.com/jason-s-yu/cardmage/internal/cards"
)

// Location is the pile a card sits in. Values go on the wire.
type Location byte

const (
	LocationDeck Location = iota
	LocationHand
	LocationField
	LocationGraveyard
)

// Card is one instantiated card in a match.
type Card struct {
	Instance int32
	Template cards.Template
	Owner    int
	Location Location
	// known[s] is true once seat s has been shown the card's face.
	known []bool
}

// Board holds one seat's piles. The top of the deck is the last element.
type Board struct {
	Deck      []*Card
	Hand      []*Card
	Field     []*Card
	Graveyard []*Card
}

func (b *Board) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(b.Deck), func(i, j int) {
		b.Deck[i], b.Deck[j] = b.Deck[j], b.Deck[i]
	})
}

// Draw moves the top card of the deck to the hand. It returns nil on an empty deck.
func (b *Board) Draw() *Card {
	if len(b.Deck) == 0 {
		return nil
	}
	c := b.Deck[len(b.Deck)-1]
	b.Deck = b.Deck[:len(b.Deck)-1]
	c.Location = LocationHand
	b.Hand = append(b.Hand, c)
	return c
}

// Play moves c from the hand to the field.
func (b *Board) Play(c *Card) bool {
	for i, h := range b.Hand {
		if h == c {
			b.Hand = append(b.Hand[:i], b.Hand[i+1:]...)
			c.Location = LocationField
			b.Field = append(b.Field, c)
			return true
		}
	}
	return false
}

// Unit is a monster on the map.
type Unit struct {
	ID            int32
	Owner         int
	Card          int32
	X, Y          int
	Health        int
	Damage        int
	MovementRange int
}
