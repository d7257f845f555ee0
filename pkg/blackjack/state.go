package blackjack

import "fmt"

// Phase is the table's position in its round lifecycle
type Phase string

// Phase constants
const (
	// PhaseWaiting is between rounds, players may join or leave freely
	PhaseWaiting Phase = "waiting"

	// PhaseBetting means the creator started the round and bets are being collected
	PhaseBetting Phase = "betting"

	// PhasePlaying means cards are dealt and players take their turns
	PhasePlaying Phase = "playing"

	// PhaseDealer means every player is done and the dealer is drawing
	PhaseDealer Phase = "dealer"

	// PhaseResults means the round was settled and the table will reset shortly
	PhaseResults Phase = "results"
)

// Status is the resolution of a player's hand
type Status string

// Status constants
const (
	StatusNone      Status = ""
	StatusBust      Status = "bust"
	StatusBlackjack Status = "blackjack"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusPush      Status = "push"
)

// Action is a move by the player whose turn it is
type Action string

// Action constants
const (
	ActionHit    Action = "hit"
	ActionStand  Action = "stand"
	ActionDouble Action = "double"
)

// ActionFromString returns an action from its name
func ActionFromString(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionHit, ActionStand, ActionDouble:
		return a, nil
	}

	return "", fmt.Errorf("%w: %s", ErrInvalidAction, s)
}
