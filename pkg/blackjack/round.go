package blackjack

import (
	"fmt"

	"blackjack-server/pkg/deck"
)

// canDealRound checks that the deck can cover the initial deal
func (t *Table) canDealRound() error {
	want := 2 * (t.ActivePlayers() + 1)
	if !t.deck.CanDraw(want) {
		t.logger.WithField("want", want).WithField("cardsLeft", t.deck.CardsLeft()).Error("not enough cards to begin round")
		return fmt.Errorf("could not begin round: %w", deck.ErrEndOfDeck)
	}

	return nil
}

// beginRound deals two cards to every active player and the dealer, one card per recipient per pass
func (t *Table) beginRound() error {
	if err := t.canDealRound(); err != nil {
		return err
	}

	for pass := 0; pass < 2; pass++ {
		for _, p := range t.Players {
			if !p.Active {
				continue
			}

			p.Hand.AddCard(t.mustDraw())
		}

		t.Dealer.AddCard(t.mustDraw())
	}

	for _, p := range t.Players {
		if p.Active && p.Hand.IsBlackjack() {
			p.Status = StatusBlackjack
		}
	}

	t.Round++
	t.Phase = PhasePlaying
	t.advanceTurn(-1)

	return nil
}

// mustDraw draws a card that was already verified to exist
func (t *Table) mustDraw() *deck.Card {
	card, err := t.deck.Draw()
	if err != nil {
		panic(fmt.Sprintf("table %s: draw after CanDraw: %v", t.ID, err))
	}

	return card
}

// nextTurn returns the index of the first player after seat index {after} who can still act
func nextTurn(players []*Player, after int) (int, bool) {
	for i := after + 1; i < len(players); i++ {
		if players[i].canAct() {
			return i, true
		}
	}

	return -1, false
}

// advanceTurn gives the turn to the next player after seat index {after}, or hands off to the dealer
func (t *Table) advanceTurn(after int) {
	if idx, ok := nextTurn(t.Players, after); ok {
		t.CurrentTurn = t.Players[idx].ID
		return
	}

	t.CurrentTurn = ""
	t.Phase = PhaseDealer
}

// Act performs a hit, stand or double for the player whose turn it is
func (t *Table) Act(playerID string, action Action) error {
	if t.Phase != PhasePlaying {
		return ErrWrongPhase
	}

	idx, p := t.seat(playerID)
	if p == nil {
		return ErrPlayerNotSeated
	}

	if t.CurrentTurn != playerID {
		return ErrNotYourTurn
	}

	switch action {
	case ActionHit:
		return t.hit(idx, p)
	case ActionStand:
		t.advanceTurn(idx)
		return nil
	case ActionDouble:
		return t.double(idx, p)
	}

	return ErrInvalidAction
}

func (t *Table) hit(idx int, p *Player) error {
	card, err := t.deck.Draw()
	if err != nil {
		t.logger.WithError(err).Error("deck exhausted on hit")
		return fmt.Errorf("could not hit: %w", err)
	}

	p.Hand.AddCard(card)
	if p.Hand.IsBust() {
		p.Status = StatusBust
		t.advanceTurn(idx)
	}

	return nil
}

func (t *Table) double(idx int, p *Player) error {
	if len(p.Hand) != 2 {
		return ErrInvalidDouble
	}

	if p.Balance < p.Bet {
		return ErrInsufficientBalance
	}

	card, err := t.deck.Draw()
	if err != nil {
		t.logger.WithError(err).Error("deck exhausted on double")
		return fmt.Errorf("could not double: %w", err)
	}

	p.Balance -= p.Bet
	p.Bet *= 2
	p.Hand.AddCard(card)
	if p.Hand.IsBust() {
		p.Status = StatusBust
	}

	t.advanceTurn(idx)
	return nil
}
