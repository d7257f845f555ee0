package blackjack

import (
	"fmt"
)

// DealerStands is the value at which the dealer stops drawing
const DealerStands = 17

// DealerStep plays one step of the dealer's hand
// It draws a single card while the dealer is under 17. Once the dealer stands or busts the table is
// settled and done is true. If the deck runs out the dealer stands on what they have.
func (t *Table) DealerStep() (done bool, err error) {
	if t.Phase != PhaseDealer {
		return false, ErrWrongPhase
	}

	if t.Dealer.Value() >= DealerStands {
		t.settle()
		return true, nil
	}

	card, err := t.deck.Draw()
	if err != nil {
		t.logger.WithError(err).Error("deck exhausted while dealer was drawing")
		t.settle()
		return true, fmt.Errorf("could not draw for dealer: %w", err)
	}

	t.Dealer.AddCard(card)
	return false, nil
}

// PlayDealer runs the dealer's hand to completion without pausing between draws
func (t *Table) PlayDealer() error {
	for {
		done, err := t.DealerStep()
		if done || err != nil {
			return err
		}
	}
}
