package blackjack

import (
	"blackjack-server/internal/rng"
	"blackjack-server/pkg/deck"

	"github.com/sirupsen/logrus"
)

// DefaultMaxSeats is the number of seats at a table unless configured otherwise
const DefaultMaxSeats = 4

// Options contains options for creating a table
type Options struct {
	MaxSeats int

	// NewDeck returns the deck used for each round
	// If nil, a freshly shuffled 52-card deck is used
	NewDeck func() *deck.Deck

	Logger logrus.FieldLogger
}

// Player is a player seated at a table
type Player struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Balance int       `json:"balance"`
	Bet     int       `json:"bet"`
	Hand    deck.Hand `json:"hand"`
	Status  Status    `json:"status"`
	// Active is false once the player left or disconnected mid-round
	Active bool `json:"active"`
}

// canAct returns true if the player still has a decision to make this round
func (p *Player) canAct() bool {
	return p.Active && p.Status != StatusBlackjack && p.Status != StatusBust
}

// Table is a blackjack table
// A table is not safe for concurrent use, all calls must be serialized by the owner
type Table struct {
	ID        string
	Name      string
	CreatorID string
	MaxSeats  int

	// Players are in seat order, which is also turn order
	Players []*Player
	Dealer  deck.Hand
	Phase   Phase

	// CurrentTurn is the ID of the player who may act, empty if nobody may act
	CurrentTurn string

	// Round is incremented every time cards are dealt
	Round int

	deck       *deck.Deck
	newDeck    func() *deck.Deck
	lastResult *RoundResult
	logger     logrus.FieldLogger
}

// NewTable returns a new table in the waiting phase
func NewTable(id, name, creatorID string, opts Options) *Table {
	if opts.MaxSeats <= 0 {
		opts.MaxSeats = DefaultMaxSeats
	}

	if opts.NewDeck == nil {
		opts.NewDeck = func() *deck.Deck {
			return deck.NewShuffled(rng.Crypto{})
		}
	}

	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	t := &Table{
		ID:        id,
		Name:      name,
		CreatorID: creatorID,
		MaxSeats:  opts.MaxSeats,
		Players:   make([]*Player, 0, opts.MaxSeats),
		Dealer:    deck.Hand{},
		Phase:     PhaseWaiting,
		newDeck:   opts.NewDeck,
		logger:    opts.Logger.WithField("table", id),
	}

	t.deck = t.newDeck()
	return t
}

// CardsLeft returns the number of cards remaining in the deck
func (t *Table) CardsLeft() int {
	return t.deck.CardsLeft()
}

// LastResult returns the settlement of the most recent round, nil if no round was settled since the last reset
func (t *Table) LastResult() *RoundResult {
	return t.lastResult
}

// GetPlayer returns the seated player
func (t *Table) GetPlayer(playerID string) (*Player, bool) {
	_, p := t.seat(playerID)
	return p, p != nil
}

func (t *Table) seat(playerID string) (int, *Player) {
	for i, p := range t.Players {
		if p.ID == playerID {
			return i, p
		}
	}

	return -1, nil
}

// ActivePlayers returns the number of active players
func (t *Table) ActivePlayers() int {
	n := 0
	for _, p := range t.Players {
		if p.Active {
			n++
		}
	}

	return n
}

// IsAbandoned returns true if nobody is seated or every seated player is inactive
func (t *Table) IsAbandoned() bool {
	return t.ActivePlayers() == 0
}

// Join seats the player at the next open seat
func (t *Table) Join(playerID, name string, balance int) error {
	if _, p := t.seat(playerID); p != nil {
		if p.Active {
			return ErrAlreadySeated
		}

		// the seat is released when the table resets
		return ErrRoundInProgress
	}

	if t.Phase != PhaseWaiting && t.Phase != PhaseBetting {
		return ErrRoundInProgress
	}

	if len(t.Players) >= t.MaxSeats {
		return ErrTableFull
	}

	if balance < 0 {
		balance = 0
	}

	t.Players = append(t.Players, &Player{
		ID:      playerID,
		Name:    name,
		Balance: balance,
		Hand:    deck.Hand{},
		Active:  true,
	})

	return nil
}

// Leave removes the player from the table
// Between rounds the seat is freed. Otherwise the player is marked inactive, their bet is forfeit and
// the turn moves on if it was theirs. This is also how a disconnect is handled.
func (t *Table) Leave(playerID string) error {
	idx, p := t.seat(playerID)
	if p == nil {
		return ErrPlayerNotSeated
	}

	if t.Phase == PhaseWaiting {
		t.Players = append(t.Players[:idx:idx], t.Players[idx+1:]...)
		return nil
	}

	if !p.Active {
		return nil
	}

	p.Active = false

	switch t.Phase {
	case PhaseBetting:
		if t.allActiveBet() {
			// the player is gone either way
			if err := t.beginRound(); err != nil {
				t.logger.WithError(err).Error("could not begin round after player left")
			}
		}
	case PhasePlaying:
		if t.CurrentTurn == playerID {
			t.advanceTurn(idx)
		}
	}

	return nil
}

// StartBetting moves the table from waiting to betting
func (t *Table) StartBetting(callerID string) error {
	if t.Phase != PhaseWaiting {
		return ErrWrongPhase
	}

	if callerID != t.CreatorID {
		return ErrNotCreator
	}

	if t.ActivePlayers() == 0 {
		return ErrEmptyTable
	}

	t.Phase = PhaseBetting
	return nil
}

// PlaceBet deducts the amount from the player's balance
// The round begins as soon as every active player has bet.
func (t *Table) PlaceBet(playerID string, amount int) error {
	if t.Phase != PhaseBetting {
		return ErrWrongPhase
	}

	_, p := t.seat(playerID)
	if p == nil || !p.Active {
		return ErrPlayerNotSeated
	}

	if amount <= 0 {
		return ErrInvalidBet
	}

	if p.Bet > 0 {
		return ErrBetAlreadyPlaced
	}

	if amount > p.Balance {
		return ErrInsufficientBalance
	}

	// the last bet deals the cards, so make sure they can be dealt before taking it
	if t.allActiveBetExcept(playerID) {
		if err := t.canDealRound(); err != nil {
			return err
		}
	}

	p.Balance -= amount
	p.Bet = amount

	if t.allActiveBet() {
		return t.beginRound()
	}

	return nil
}

// allActiveBet returns true when there is at least one active player and they all bet
func (t *Table) allActiveBet() bool {
	return t.allActiveBetExcept("")
}

func (t *Table) allActiveBetExcept(playerID string) bool {
	active := 0
	for _, p := range t.Players {
		if !p.Active {
			continue
		}

		active++
		if p.ID != playerID && p.Bet <= 0 {
			return false
		}
	}

	return active > 0
}
