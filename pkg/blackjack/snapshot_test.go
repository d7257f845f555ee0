package blackjack

import (
	"encoding/json"
	"testing"

	"blackjack-server/pkg/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Snapshot(t *testing.T) {
	table := newTestTable(t, "10s,9s,10h,6s,7s,7h,2c", "p1", "p2")
	betAll(t, table, 10)

	snapshot.ValidateSnapshot(t, table.Snapshot(), 0)
}

func TestTable_Snapshot_hiddenDealerCard(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "10s,10h,8s,6h,8c", "p1")
	betAll(t, table, 10)

	s := table.Snapshot()
	a.Equal(PhasePlaying, s.Phase)
	a.Equal("10h", s.Dealer.Hand.String())
	a.Equal(10, s.Dealer.Value)
	a.Equal(1, s.Dealer.HiddenCards)
	require.NotNil(t, s.CurrentTurn)
	a.Equal("p1", *s.CurrentTurn)
	a.Equal(18, s.Players[0].HandValue)

	require.NoError(t, table.Act("p1", ActionStand))
	s = table.Snapshot()
	a.Equal(PhaseDealer, s.Phase)
	a.Equal("10h,6h", s.Dealer.Hand.String())
	a.Equal(16, s.Dealer.Value)
	a.Equal(0, s.Dealer.HiddenCards)
	a.Nil(s.CurrentTurn)
}

func TestTable_Snapshot_isACopy(t *testing.T) {
	a := assert.New(t)

	table := newTestTable(t, "10s,10h,8s,6h,8c", "p1")
	betAll(t, table, 10)

	s := table.Snapshot()
	require.NoError(t, table.Act("p1", ActionHit))

	a.Len(s.Players[0].Hand, 2)
	a.Equal(18, s.Players[0].HandValue)
	a.Len(table.Players[0].Hand, 3)
}

func TestTable_Snapshot_neverShowsTheDeck(t *testing.T) {
	table := newTestTable(t, "10s,10h,8s,6h,8c", "p1")
	betAll(t, table, 10)

	b, err := json.Marshal(table.Snapshot())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.NotContains(t, fields, "deck")
	assert.Equal(t, float64(1), fields["cardsLeft"])
}
