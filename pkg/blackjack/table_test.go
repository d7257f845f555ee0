package blackjack

import (
	"testing"

	"blackjack-server/pkg/deck"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTable returns a table that always deals {cards} in order with every player seated with 100
// The first player is the creator.
func newTestTable(t *testing.T, cards string, players ...string) *Table {
	t.Helper()

	creator := ""
	if len(players) > 0 {
		creator = players[0]
	}

	table := NewTable("table-1", "Table 1", creator, Options{
		NewDeck: func() *deck.Deck {
			return deck.FromCards(deck.CardsFromString(cards))
		},
	})

	for _, id := range players {
		require.NoError(t, table.Join(id, "Player "+id[1:], 100))
	}

	return table
}

// betAll starts betting and has every player bet {amount}
func betAll(t *testing.T, table *Table, amount int) {
	t.Helper()

	require.NoError(t, table.StartBetting(table.CreatorID))
	for _, p := range table.Players {
		require.NoError(t, table.PlaceBet(p.ID, amount))
	}
}

func TestNewTable(t *testing.T) {
	a := assert.New(t)

	table := NewTable("1", "Main", "p1", Options{})
	a.Equal(DefaultMaxSeats, table.MaxSeats)
	a.Equal(PhaseWaiting, table.Phase)
	a.Equal(deck.Size, table.CardsLeft())
	a.Empty(table.Players)
	a.Equal("", table.CurrentTurn)
	a.True(table.IsAbandoned())
}

func TestTable_Join(t *testing.T) {
	a := assert.New(t)

	table := NewTable("1", "Main", "p1", Options{MaxSeats: 2})
	a.NoError(table.Join("p1", "Player 1", 100))
	a.Equal(ErrAlreadySeated, table.Join("p1", "Player 1", 100))
	a.NoError(table.Join("p2", "Player 2", 100))
	a.Equal(ErrTableFull, table.Join("p3", "Player 3", 100))

	a.Len(table.Players, 2)
	a.Equal("p1", table.Players[0].ID)
	a.Equal("p2", table.Players[1].ID)
	a.True(table.Players[0].Active)

	// a negative balance is never seated
	table = NewTable("2", "Other", "p1", Options{})
	a.NoError(table.Join("p1", "Player 1", -5))
	a.Equal(0, table.Players[0].Balance)
}

func TestTable_Join_roundInProgress(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "10s,10h,8s,7h,5c", "p1")
	require.NoError(t, table.StartBetting("p1"))

	// joining during betting is fine
	a.NoError(table.Join("p2", "Player 2", 100))
	a.NoError(table.PlaceBet("p1", 10))
	a.NoError(table.Leave("p2"))
	a.Equal(PhasePlaying, table.Phase)

	a.Equal(ErrRoundInProgress, table.Join("p3", "Player 3", 100))
	a.Equal(ErrRoundInProgress, table.Join("p2", "Player 2", 100))
}

func TestTable_StartBetting(t *testing.T) {
	a := assert.New(t)

	table := NewTable("1", "Main", "p1", Options{})
	a.Equal(ErrEmptyTable, table.StartBetting("p1"))

	a.NoError(table.Join("p1", "Player 1", 100))
	a.NoError(table.Join("p2", "Player 2", 100))
	a.Equal(ErrNotCreator, table.StartBetting("p2"))
	a.Equal(PhaseWaiting, table.Phase)

	a.NoError(table.StartBetting("p1"))
	a.Equal(PhaseBetting, table.Phase)
	a.Equal(ErrWrongPhase, table.StartBetting("p1"))
}

func TestTable_PlaceBet(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "10s,10h,8s,7h,5c,6c,7c", "p1", "p2")
	a.Equal(ErrWrongPhase, table.PlaceBet("p1", 10))

	require.NoError(t, table.StartBetting("p1"))
	a.Equal(ErrPlayerNotSeated, table.PlaceBet("p3", 10))
	a.Equal(ErrInvalidBet, table.PlaceBet("p1", 0))
	a.Equal(ErrInvalidBet, table.PlaceBet("p1", -10))
	a.Equal(ErrInsufficientBalance, table.PlaceBet("p1", 101))

	a.NoError(table.PlaceBet("p1", 100))
	a.Equal(0, table.Players[0].Balance)
	a.Equal(100, table.Players[0].Bet)
	a.Equal(ErrBetAlreadyPlaced, table.PlaceBet("p1", 10))

	// p2 has not bet yet
	a.Equal(PhaseBetting, table.Phase)
	a.Empty(table.Players[0].Hand)

	a.NoError(table.PlaceBet("p2", 25))
	a.Equal(75, table.Players[1].Balance)
	a.Equal(PhasePlaying, table.Phase)
	a.Equal(1, table.Round)
	a.Equal("p1", table.CurrentTurn)
}

func TestTable_beginRound_dealOrder(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "2s,3s,4s,5s,6s,7s,8s", "p1", "p2")
	betAll(t, table, 10)

	a.Equal("2s,5s", deck.CardsToString(table.Players[0].Hand))
	a.Equal("3s,6s", deck.CardsToString(table.Players[1].Hand))
	a.Equal("4s,7s", deck.CardsToString(table.Dealer))
	a.Equal(1, table.CardsLeft())
}

func TestTable_beginRound_endOfDeck(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "2s,3s,4s", "p1")
	require.NoError(t, table.StartBetting("p1"))

	before := table.Snapshot()
	err := table.PlaceBet("p1", 10)
	a.ErrorIs(err, deck.ErrEndOfDeck)
	a.Equal(before, table.Snapshot())
}

func TestTable_beginRound_everyoneHasBlackjack(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "14s,14h,10h,13s,13h,9c", "p1", "p2")
	betAll(t, table, 10)

	a.Equal(StatusBlackjack, table.Players[0].Status)
	a.Equal(StatusBlackjack, table.Players[1].Status)
	a.Equal(PhaseDealer, table.Phase)
	a.Equal("", table.CurrentTurn)
}

func TestTable_Leave(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "", "p1", "p2", "p3")
	a.Equal(ErrPlayerNotSeated, table.Leave("p4"))

	// between rounds the seat is freed
	a.NoError(table.Leave("p2"))
	a.Len(table.Players, 2)
	a.Equal("p1", table.Players[0].ID)
	a.Equal("p3", table.Players[1].ID)
}

func TestTable_Leave_bettingGate(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "10s,10h,8s,7h,5c", "p1", "p2")
	require.NoError(t, table.StartBetting("p1"))
	a.NoError(table.PlaceBet("p1", 10))
	a.Equal(PhaseBetting, table.Phase)

	// the only player without a bet leaving starts the round
	a.NoError(table.Leave("p2"))
	a.Equal(PhasePlaying, table.Phase)
	a.Len(table.Players, 2)
	a.False(table.Players[1].Active)
	a.Empty(table.Players[1].Hand)
	a.Equal("p1", table.CurrentTurn)
}

func TestTable_Leave_disconnectDuringTurn(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "10s,9s,10h,6s,7s,7h", "p1", "p2")
	betAll(t, table, 10)
	a.Equal("p1", table.CurrentTurn)

	a.NoError(table.Leave("p1"))
	a.Equal("p2", table.CurrentTurn)
	a.Equal(PhasePlaying, table.Phase)
	a.False(table.IsAbandoned())

	// leaving twice is a no-op
	a.NoError(table.Leave("p1"))
	a.Equal("p2", table.CurrentTurn)

	a.NoError(table.Leave("p2"))
	a.Equal("", table.CurrentTurn)
	a.Equal(PhaseDealer, table.Phase)
	a.True(table.IsAbandoned())
}

func TestTable_Leave_notCurrentTurn(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "10s,9s,10h,6s,7s,7h", "p1", "p2")
	betAll(t, table, 10)

	a.NoError(table.Leave("p2"))
	a.Equal("p1", table.CurrentTurn)
	a.NoError(table.Act("p1", ActionStand))
	a.Equal(PhaseDealer, table.Phase)
}

func TestTable_Reset(t *testing.T) {
	a := assert.New(t)

	table := NewTable("1", "Main", "p1", Options{})
	require.NoError(t, table.Join("p1", "Player 1", 100))
	require.NoError(t, table.Join("p2", "Player 2", 100))
	betAll(t, table, 10)
	require.NoError(t, table.Leave("p2"))

	table.Reset()
	first := table.Snapshot()
	a.Equal(PhaseWaiting, first.Phase)
	a.Equal(deck.Size, first.CardsLeft)
	a.Nil(first.CurrentTurn)
	a.Empty(first.Dealer.Hand)
	require.Len(t, first.Players, 1)
	a.Equal("p1", first.Players[0].ID)
	a.Equal(0, first.Players[0].Bet)
	a.Empty(first.Players[0].Hand)
	a.Equal(StatusNone, first.Players[0].Status)
	a.Nil(table.LastResult())

	table.Reset()
	a.Equal(first, table.Snapshot())
}

func TestTable_IsAbandoned(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "10s,9s,10h,6s,7s,7h", "p1", "p2")
	a.False(table.IsAbandoned())
	betAll(t, table, 10)

	a.NoError(table.Leave("p1"))
	a.False(table.IsAbandoned())
	a.NoError(table.Leave("p2"))
	a.True(table.IsAbandoned())
}

func TestTable_Summary(t *testing.T) {
	table := newTestTable(t, "", "p1", "p2")
	assert.Equal(t, Summary{
		ID:          "table-1",
		Name:        "Table 1",
		PlayerCount: 2,
		MaxSeats:    4,
		Phase:       PhaseWaiting,
	}, table.Summary())
}
