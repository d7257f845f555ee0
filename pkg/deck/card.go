package deck

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Suit represents a card suit
type Suit string

// suit constants
const (
	Hearts   Suit = "hearts"
	Clubs    Suit = "clubs"
	Diamonds Suit = "diamonds"
	Spades   Suit = "spades"
)

// Suits is every suit in deck order
var Suits = []Suit{Spades, Hearts, Diamonds, Clubs}

// face cards
const (
	Jack  = 11
	Queen = 12
	King  = 13
	Ace   = 14
)

var suitSymbols = map[Suit]string{
	Spades:   "♠",
	Hearts:   "♡",
	Diamonds: "♢",
	Clubs:    "♣",
}

var suitCodes = map[Suit]string{
	Spades:   "s",
	Hearts:   "h",
	Diamonds: "d",
	Clubs:    "c",
}

var rankLabels = map[int]string{
	Jack:  "J",
	Queen: "Q",
	King:  "K",
	Ace:   "A",
}

// Card is an individual playing card
// A card is never modified after it's created
type Card struct {
	Rank int  `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c *Card) String() string {
	label, ok := rankLabels[c.Rank]
	if !ok {
		label = strconv.Itoa(c.Rank)
	}

	symbol, ok := suitSymbols[c.Suit]
	if !ok {
		symbol = "?"
	}

	return label + symbol
}

// Equal returns true if the cards are equal (matches suit and rank)
func (c *Card) Equal(card *Card) bool {
	return c.Suit == card.Suit && c.Rank == card.Rank
}

// IsValid returns true if the card has a known rank and suit
func (c *Card) IsValid() bool {
	_, ok := suitCodes[c.Suit]
	return ok && c.Rank >= 2 && c.Rank <= Ace
}

// Points returns what the card counts for in blackjack, with an ace counted high
func (c *Card) Points() int {
	switch {
	case c.Rank == Ace:
		return 11
	case c.Rank >= Jack:
		return 10
	}

	return c.Rank
}

var cardRx = regexp.MustCompile(`(?i)^([2-9]|1[0-4])([cdhs])\z`)

// CardFromString parses a card in the format <rank><suit>, "14c" for the ace of clubs
// Used to build decks in tests, so anything unparsable panics.
func CardFromString(s string) *Card {
	if s == "" {
		return nil
	}

	match := cardRx.FindStringSubmatch(s)
	if match == nil {
		panic(fmt.Sprintf("could not parse card: %s", s))
	}

	rank, _ := strconv.Atoi(match[1])
	code := strings.ToLower(match[2])
	for suit, c := range suitCodes {
		if c == code {
			return &Card{Rank: rank, Suit: suit}
		}
	}

	panic(fmt.Sprintf("unknown suit in card: %s", s))
}

// CardsFromString parses a comma-separated list of cards
func CardsFromString(s string) []*Card {
	if s == "" {
		return []*Card{}
	}

	parts := strings.Split(s, ",")
	cards := make([]*Card, len(parts))
	for i, part := range parts {
		cards[i] = CardFromString(strings.TrimSpace(part))
	}

	return cards
}

// CardToString is the inverse of CardFromString
func CardToString(card *Card) string {
	if card == nil {
		return ""
	}

	return strconv.Itoa(card.Rank) + suitCodes[card.Suit]
}

// CardsToString will convert a slice of cards to a string in the format of 2c,3h,4s,...
func CardsToString(cards []*Card) string {
	c := make([]string, len(cards))
	for i, card := range cards {
		c[i] = CardToString(card)
	}

	return strings.Join(c, ",")
}
