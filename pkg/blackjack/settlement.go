package blackjack

import (
	"blackjack-server/pkg/deck"

	"github.com/google/uuid"
)

// PlayerResult is how a single player finished a round
type PlayerResult struct {
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	Hand     deck.Hand `json:"hand"`
	Value    int       `json:"value"`
	Bet      int       `json:"bet"`
	Outcome  Status    `json:"outcome"`
	Payout   int       `json:"payout"`
	Balance  int       `json:"balance"`
	// Active is false for a player who left mid-round, their bet is forfeit
	Active bool `json:"active"`
}

// RoundResult is the settlement of a round
type RoundResult struct {
	ID          string          `json:"id"`
	TableID     string          `json:"tableId"`
	Round       int             `json:"round"`
	DealerHand  deck.Hand       `json:"dealerHand"`
	DealerValue int             `json:"dealerValue"`
	Players     []*PlayerResult `json:"players"`
}

// outcome returns the resolved status and the amount credited back for a bet
func outcome(p *Player, dealer deck.Hand) (Status, int) {
	dealerValue := dealer.Value()
	value := p.Hand.Value()

	switch {
	case p.Status == StatusBust:
		return StatusLost, 0
	case p.Status == StatusBlackjack:
		if dealer.IsBlackjack() {
			return StatusPush, p.Bet
		}

		// pays 3:2, rounded down
		return StatusWon, p.Bet * 5 / 2
	case dealerValue > deck.Blackjack:
		return StatusWon, p.Bet * 2
	case value > dealerValue:
		return StatusWon, p.Bet * 2
	case value == dealerValue:
		return StatusPush, p.Bet
	}

	return StatusLost, 0
}

// settle pays out every active player and moves the table to results
// Inactive players are not paid, their bet stays with the house. They are still part of the result.
func (t *Table) settle() {
	result := &RoundResult{
		ID:          uuid.New().String(),
		TableID:     t.ID,
		Round:       t.Round,
		DealerHand:  t.Dealer.Clone(),
		DealerValue: t.Dealer.Value(),
		Players:     make([]*PlayerResult, 0, len(t.Players)),
	}

	for _, p := range t.Players {
		status, payout := StatusLost, 0
		if p.Active {
			status, payout = outcome(p, t.Dealer)
			p.Status = status
			p.Balance += payout
		}

		result.Players = append(result.Players, &PlayerResult{
			PlayerID: p.ID,
			Name:     p.Name,
			Hand:     p.Hand.Clone(),
			Value:    p.Hand.Value(),
			Bet:      p.Bet,
			Outcome:  status,
			Payout:   payout,
			Balance:  p.Balance,
			Active:   p.Active,
		})
	}

	t.CurrentTurn = ""
	t.Phase = PhaseResults
	t.lastResult = result
}

// Reset prepares the table for the next round
// Inactive players are dropped and a freshly shuffled deck is used.
func (t *Table) Reset() {
	players := make([]*Player, 0, t.MaxSeats)
	for _, p := range t.Players {
		if !p.Active {
			continue
		}

		p.Bet = 0
		p.Hand = deck.Hand{}
		p.Status = StatusNone
		players = append(players, p)
	}

	t.Players = players
	t.Dealer = deck.Hand{}
	t.CurrentTurn = ""
	t.Phase = PhaseWaiting
	t.lastResult = nil
	t.deck = t.newDeck()
}
