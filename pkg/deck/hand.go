package deck

import (
	"github.com/sirupsen/logrus"
)

// Blackjack is the best possible hand value
const Blackjack = 21

// Hand represents a collection of cards
type Hand []*Card

// AddCard adds a card to the hand
func (h *Hand) AddCard(card *Card) {
	*h = append(*h, card)
}

// Value returns the blackjack value of the hand
// Aces count as 11 and are softened to 1, one at a time, while the total is over 21.
// Unknown cards contribute nothing.
func (h Hand) Value() int {
	value, _ := h.value()
	return value
}

// IsSoft returns true if at least one ace is still counted as 11
func (h Hand) IsSoft() bool {
	_, softAces := h.value()
	return softAces > 0
}

// IsBlackjack returns true for a two-card 21
func (h Hand) IsBlackjack() bool {
	return len(h) == 2 && h.Value() == Blackjack
}

// IsBust returns true if the hand is over 21
func (h Hand) IsBust() bool {
	return h.Value() > Blackjack
}

func (h Hand) value() (int, int) {
	value := 0
	aces := 0
	for _, card := range h {
		points := cardPoints(card)
		if points == 11 {
			aces++
		}

		value += points
	}

	for value > Blackjack && aces > 0 {
		value -= 10
		aces--
	}

	return value, aces
}

func cardPoints(card *Card) int {
	if card == nil {
		logrus.Warn("nil card found in hand")
		return 0
	}

	if !card.IsValid() {
		logrus.WithField("card", CardToString(card)).Warn("invalid card found in hand")
		return 0
	}

	return card.Points()
}

func (h Hand) String() string {
	return CardsToString(h)
}

// Clone returns a clone of the hand
func (h Hand) Clone() Hand {
	h2 := make(Hand, len(h))
	copy(h2, h)

	return h2
}
