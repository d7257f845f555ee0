package blackjack

import (
	"blackjack-server/pkg/deck"
)

// PlayerState is a player as seen by everyone at the table
type PlayerState struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   int       `json:"balance"`
	Bet       int       `json:"bet"`
	Hand      deck.Hand `json:"hand"`
	HandValue int       `json:"handValue"`
	Status    Status    `json:"status"`
	Active    bool      `json:"active"`
}

// DealerState is the dealer's visible hand
type DealerState struct {
	Hand        deck.Hand `json:"hand"`
	Value       int       `json:"value"`
	HiddenCards int       `json:"hiddenCards"`
}

// Snapshot is the complete state of a table sent to clients and persistence after a mutation
type Snapshot struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	CreatorID   string         `json:"creatorId"`
	Phase       Phase          `json:"phase"`
	CurrentTurn *string        `json:"currentTurn"`
	MaxSeats    int            `json:"maxSeats"`
	Round       int            `json:"round"`
	CardsLeft   int            `json:"cardsLeft"`
	Dealer      DealerState    `json:"dealer"`
	Players     []*PlayerState `json:"players"`
}

// Summary is the listing entry for a table
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	MaxSeats    int    `json:"maxSeats"`
	Phase       Phase  `json:"phase"`
}

// Snapshot returns a copy of the table state
// The dealer's hole card stays hidden until the dealer plays.
func (t *Table) Snapshot() *Snapshot {
	s := &Snapshot{
		ID:        t.ID,
		Name:      t.Name,
		CreatorID: t.CreatorID,
		Phase:     t.Phase,
		MaxSeats:  t.MaxSeats,
		Round:     t.Round,
		CardsLeft: t.deck.CardsLeft(),
		Dealer:    t.dealerState(),
		Players:   make([]*PlayerState, len(t.Players)),
	}

	if t.CurrentTurn != "" {
		turn := t.CurrentTurn
		s.CurrentTurn = &turn
	}

	for i, p := range t.Players {
		s.Players[i] = &PlayerState{
			ID:        p.ID,
			Name:      p.Name,
			Balance:   p.Balance,
			Bet:       p.Bet,
			Hand:      p.Hand.Clone(),
			HandValue: p.Hand.Value(),
			Status:    p.Status,
			Active:    p.Active,
		}
	}

	return s
}

func (t *Table) dealerState() DealerState {
	if (t.Phase == PhaseBetting || t.Phase == PhasePlaying) && len(t.Dealer) > 1 {
		up := t.Dealer[:1].Clone()
		return DealerState{
			Hand:        up,
			Value:       up.Value(),
			HiddenCards: len(t.Dealer) - 1,
		}
	}

	return DealerState{
		Hand:  t.Dealer.Clone(),
		Value: t.Dealer.Value(),
	}
}

// Summary returns the listing entry for the table
func (t *Table) Summary() Summary {
	return Summary{
		ID:          t.ID,
		Name:        t.Name,
		PlayerCount: len(t.Players),
		MaxSeats:    t.MaxSeats,
		Phase:       t.Phase,
	}
}
