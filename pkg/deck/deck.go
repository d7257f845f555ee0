package deck

import (
	"crypto/sha1" // nolint:gosec
	"encoding/hex"
	"errors"

	"blackjack-server/internal/rng"
)

// ErrEndOfDeck is an error when Draw() is attempted and there are no more cards
var ErrEndOfDeck = errors.New("end of deck reached")

// Size is the number of cards in a full deck
const Size = 52

// Deck represents a playing deck
// Cards are only ever removed from the top
type Deck struct {
	Cards []*Card `json:"cards"`
}

// New returns a new deck of cards.
// Important! this deck is unshuffled. Use NewShuffled() for a playable deck
func New() *Deck {
	return &Deck{Cards: buildCards()}
}

// NewShuffled returns a freshly built deck shuffled with the generator
func NewShuffled(g rng.Generator) *Deck {
	return &Deck{Cards: Shuffle(buildCards(), g)}
}

// FromCards returns a deck that will deal the cards in the order provided
func FromCards(cards []*Card) *Deck {
	c := make([]*Card, len(cards))
	copy(c, cards)

	return &Deck{Cards: c}
}

func buildCards() []*Card {
	cards := make([]*Card, 0, Size)
	for _, suit := range Suits {
		for rank := 2; rank <= Ace; rank++ {
			cards = append(cards, &Card{
				Rank: rank,
				Suit: suit,
			})
		}
	}

	return cards
}

// Shuffle returns a uniformly random permutation of cards (Fisher-Yates)
// The provided slice is not modified
func Shuffle(cards []*Card, g rng.Generator) []*Card {
	shuffled := make([]*Card, len(cards))
	copy(shuffled, cards)

	for j := len(shuffled) - 1; j > 0; j-- {
		i := g.Intn(j + 1)

		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}

// HashCode returns a SHA1 hash code of the deck.
func (d *Deck) HashCode() string {
	hash := sha1.New() // nolint:gosec
	for _, card := range d.Cards {
		_, _ = hash.Write([]byte(card.String()))
	}

	return hex.EncodeToString(hash.Sum(nil)[:])
}

// Draw will draw the next card
// If there are no more cards, an ErrEndOfDeck is returned along with a nil card.
func (d *Deck) Draw() (*Card, error) {
	if len(d.Cards) <= 0 {
		return nil, ErrEndOfDeck
	}

	card := d.Cards[0]
	d.Cards = d.Cards[1:]

	return card, nil
}

// CanDraw returns true if there are {want} cards left in the deck
func (d *Deck) CanDraw(want int) bool {
	return len(d.Cards) >= want
}

// CardsLeft returns the number of cards left in the deck
func (d *Deck) CardsLeft() int {
	return len(d.Cards)
}
