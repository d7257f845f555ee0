package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"blackjack-server/pkg/blackjack"
	"blackjack-server/pkg/deck"
	"blackjack-server/pkg/payload"
	"blackjack-server/pkg/store"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRoom struct {
	pitBoss *PitBoss
	clock   *quartz.Mock
	store   *store.Memory
}

// newTestRoom returns a pit boss whose tables always deal {cards} in order
func newTestRoom(t *testing.T, cards string) *testRoom {
	t.Helper()

	r := &testRoom{
		clock: quartz.NewMock(t),
		store: store.NewMemory(),
	}

	opts := DefaultOptions()
	opts.Clock = r.clock
	opts.Store = r.store
	opts.NewDeck = func() *deck.Deck {
		return deck.FromCards(deck.CardsFromString(cards))
	}

	r.pitBoss = NewPitBoss(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_ = r.pitBoss.Shutdown(ctx)
	})

	return r
}

// seat connects a client for every player, the first player creates the table
func (r *testRoom) seat(t *testing.T, players ...string) (*Dealer, []*Client) {
	t.Helper()

	d, err := r.pitBoss.CreateTable("Table 1", players[0])
	require.NoError(t, err)

	clients := make([]*Client, len(players))
	for i, id := range players {
		clients[i] = newTestClient(id)
		require.NoError(t, r.pitBoss.ClientConnected(testContext(t), clients[i], d.ID()))
	}

	return d, clients
}

// advance fires the next pending step and waits until the table satisfies cond
func (r *testRoom) advance(t *testing.T, d *Dealer, expected time.Duration, cond func(s *blackjack.Snapshot) bool) *blackjack.Snapshot {
	t.Helper()

	ctx := testContext(t)
	dur, w := r.clock.AdvanceNext()
	require.Equal(t, expected, dur)
	w.MustWait(ctx)

	var s *blackjack.Snapshot
	require.Eventually(t, func() bool {
		var err error
		s, err = d.Snapshot(ctx)
		return err == nil && cond(s)
	}, time.Second, time.Millisecond*5)

	return s
}

func newTestClient(playerID string) *Client {
	return NewClient(nil, playerID, "Player "+playerID[1:])
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	t.Cleanup(cancel)
	return ctx
}

// nextResponse returns the next message with the key, skipping everything before it
func nextResponse(t *testing.T, c *Client, key string) *payload.Response {
	t.Helper()

	timeout := time.After(time.Second)
	for {
		select {
		case msg := <-c.SendChan():
			if res, ok := msg.(*payload.Response); ok && res.Key == key {
				return res
			}
		case <-timeout:
			require.FailNow(t, "timed out waiting for message", key)
			return nil
		}
	}
}

func phaseIs(phase blackjack.Phase) func(s *blackjack.Snapshot) bool {
	return func(s *blackjack.Snapshot) bool {
		return s.Phase == phase
	}
}

func TestDealer_fullRound(t *testing.T) {
	a := assert.New(t)
	r := newTestRoom(t, "10s,10h,8s,7h,5c")
	d, clients := r.seat(t, "p1")
	ctx := testContext(t)

	update := nextResponse(t, clients[0], payload.KeyTableUpdate).Data.(TableUpdate)
	require.Len(t, update.Table.Players, 1)
	a.Equal(100, update.Table.Players[0].Balance)
	a.Equal("joined the table", update.Log[len(update.Log)-1].Message)

	a.NoError(d.StartBetting(ctx, "p1"))
	status := nextResponse(t, clients[0], payload.KeyGameStatusChange)
	a.Equal(GameStatus{Status: blackjack.PhaseBetting}, status.Data)

	a.NoError(d.PlaceBet(ctx, "p1", 10))
	a.NoError(d.Act(ctx, "p1", blackjack.ActionStand))

	s, err := d.Snapshot(ctx)
	require.NoError(t, err)
	a.Equal(blackjack.PhaseDealer, s.Phase)

	// the dealer stands on 17
	s = r.advance(t, d, time.Second, phaseIs(blackjack.PhaseResults))
	a.Equal(blackjack.StatusWon, s.Players[0].Status)
	a.Equal(110, s.Players[0].Balance)

	over := nextResponse(t, clients[0], payload.KeyGameOver).Data.(*blackjack.RoundResult)
	a.Equal(17, over.DealerValue)
	a.Equal(1, over.Round)
	require.Len(t, over.Players, 1)
	a.Equal(20, over.Players[0].Payout)

	s = r.advance(t, d, time.Second*5, phaseIs(blackjack.PhaseWaiting))
	a.Empty(s.Dealer.Hand)
	a.Equal(110, s.Players[0].Balance)
	a.Equal(0, s.Players[0].Bet)

	require.NoError(t, d.writer.flush(ctx))
	record, err := r.store.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	a.Equal(110, record.Balance)

	rounds, err := r.store.RoundsByTable(ctx, d.ID(), 10)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	a.Equal(over.ID, rounds[0].ID)

	saved, ok := r.store.Table(d.ID())
	require.True(t, ok)
	a.Equal(blackjack.PhaseWaiting, saved.Phase)
}

func TestDealer_dealerDrawsOneCardPerStep(t *testing.T) {
	a := assert.New(t)
	r := newTestRoom(t, "10s,10h,8s,6h,8c")
	d, _ := r.seat(t, "p1")
	ctx := testContext(t)

	require.NoError(t, d.StartBetting(ctx, "p1"))
	require.NoError(t, d.PlaceBet(ctx, "p1", 10))
	require.NoError(t, d.Act(ctx, "p1", blackjack.ActionStand))

	s := r.advance(t, d, time.Second, func(s *blackjack.Snapshot) bool {
		return len(s.Dealer.Hand) == 3
	})
	a.Equal(blackjack.PhaseDealer, s.Phase)
	a.Equal(24, s.Dealer.Value)

	s = r.advance(t, d, time.Second, phaseIs(blackjack.PhaseResults))
	a.Equal(110, s.Players[0].Balance)
}

func TestDealer_staleStepIsSkipped(t *testing.T) {
	a := assert.New(t)
	r := newTestRoom(t, "")
	d, _ := r.seat(t, "p1")
	ctx := testContext(t)

	ran := make(chan struct{}, 1)
	require.NoError(t, d.run(ctx, false, func() error {
		d.schedule(time.Second, func() {
			ran <- struct{}{}
		})

		// the table moves on before the step fires
		d.table.Round++
		return nil
	}))

	dur, w := r.clock.AdvanceNext()
	a.Equal(time.Second, dur)
	w.MustWait(ctx)

	require.NoError(t, d.run(ctx, false, func() error {
		a.Nil(d.pending)
		return nil
	}))

	select {
	case <-ran:
		a.Fail("stale step was run")
	default:
	}
}

func TestPitBoss_DeleteTable(t *testing.T) {
	a := assert.New(t)
	r := newTestRoom(t, "10s,10h,8s,6h,8c")
	d, clients := r.seat(t, "p1", "p2")
	ctx := testContext(t)

	require.NoError(t, d.StartBetting(ctx, "p1"))
	require.NoError(t, d.PlaceBet(ctx, "p1", 10))
	a.Equal(blackjack.ErrNotCreator, r.pitBoss.DeleteTable(ctx, d.ID(), "p2"))
	a.NoError(r.pitBoss.DeleteTable(ctx, d.ID(), "p1"))

	for _, c := range clients {
		closed := nextResponse(t, c, payload.KeyTableClosed)
		a.Equal(TableClosed{TableID: d.ID(), Reason: "the table was closed by its creator"}, closed.Data)
		a.Equal("table closed", <-c.Close)
		a.Nil(c.Dealer())
	}

	_, ok := r.pitBoss.Table(d.ID())
	a.False(ok)
	a.Empty(r.pitBoss.Tables())

	_, err := d.Snapshot(ctx)
	a.Equal(ErrTableNotFound, err)
	a.Equal(ErrTableNotFound, d.PlaceBet(ctx, "p2", 10))
	a.Equal(ErrTableNotFound, r.pitBoss.DeleteTable(ctx, d.ID(), "p1"))

	require.NoError(t, d.writer.wait(ctx))
	_, ok = r.store.Table(d.ID())
	a.False(ok)
}

func TestDealer_deletedDuringDealerPhase(t *testing.T) {
	a := assert.New(t)
	r := newTestRoom(t, "10s,10h,8s,6h,8c")
	d, _ := r.seat(t, "p1")
	ctx := testContext(t)

	require.NoError(t, d.StartBetting(ctx, "p1"))
	require.NoError(t, d.PlaceBet(ctx, "p1", 10))
	require.NoError(t, d.Act(ctx, "p1", blackjack.ActionStand))

	_, pending := r.clock.Peek()
	a.True(pending)

	require.NoError(t, r.pitBoss.DeleteTable(ctx, d.ID(), "p1"))
	require.NoError(t, d.writer.wait(ctx))
	_, pending = r.clock.Peek()
	a.False(pending)
}

func TestDealer_concurrentBets(t *testing.T) {
	a := assert.New(t)
	r := newTestRoom(t, "10s,10h,8s,7h,5c,6c,7c")
	d, _ := r.seat(t, "p1", "p2")
	ctx := testContext(t)

	require.NoError(t, d.StartBetting(ctx, "p1"))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- d.PlaceBet(ctx, "p1", 10)
		}()
	}

	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		if err == nil {
			accepted++
			continue
		}

		a.Equal(blackjack.ErrBetAlreadyPlaced, err)
	}

	a.Equal(1, accepted)

	s, err := d.Snapshot(ctx)
	require.NoError(t, err)
	a.Equal(90, s.Players[0].Balance)
	a.Equal(10, s.Players[0].Bet)
	a.Equal(blackjack.PhaseBetting, s.Phase)
}

func TestDealer_ReceivedMessage(t *testing.T) {
	a := assert.New(t)
	r := newTestRoom(t, "10s,10h,8s,7h,5c")
	d, clients := r.seat(t, "p1")
	c := clients[0]
	ctx := testContext(t)

	send := func(action, subject string, data payload.AdditionalData) *payload.Response {
		t.Helper()
		d.ReceivedMessage(ctx, c, &payload.PayloadIn{
			Action:         action,
			Subject:        subject,
			AdditionalData: data,
			Context:        action + subject,
		})

		for {
			res := <-c.SendChan()
			if res, ok := res.(*payload.Response); ok && (res.Key == payload.KeyStatus || res.Key == payload.KeyError) {
				a.Equal(action+subject, res.Context)
				return res
			}
		}
	}

	a.Equal("unknown action", send("split", "", nil).Value)
	a.Equal(blackjack.ErrWrongPhase.Error(), send("placeBet", "", payload.AdditionalData{"amount": float64(10)}).Value)
	a.Equal("OK", send("startBetting", "", nil).Value)
	a.Equal(blackjack.ErrInvalidBet.Error(), send("placeBet", "", payload.AdditionalData{"amount": "ten"}).Value)
	a.Equal(blackjack.ErrInvalidBet.Error(), send("placeBet", "", payload.AdditionalData{"amount": 10.5}).Value)
	a.Equal("OK", send("placeBet", "", payload.AdditionalData{"amount": float64(10)}).Value)
	a.Equal(blackjack.ErrInvalidAction.Error()+": split", send("playerAction", "split", nil).Value)
	a.Equal("OK", send("playerAction", "stand", nil).Value)
	a.Equal(blackjack.ErrWrongPhase.Error(), send("playerAction", "hit", nil).Value)

	s, err := d.Snapshot(ctx)
	require.NoError(t, err)
	a.Equal(blackjack.PhaseDealer, s.Phase)
}

func TestDealer_ReceivedMessage_endOfDeck(t *testing.T) {
	r := newTestRoom(t, "2s,3s,4s")
	d, clients := r.seat(t, "p1")
	ctx := testContext(t)

	require.NoError(t, d.StartBetting(ctx, "p1"))
	d.ReceivedMessage(ctx, clients[0], &payload.PayloadIn{
		Action:         "placeBet",
		AdditionalData: payload.AdditionalData{"amount": float64(10)},
	})

	res := nextResponse(t, clients[0], payload.KeyError)
	assert.Equal(t, ErrInternal.Error(), res.Value)

	s, err := d.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, blackjack.PhaseBetting, s.Phase)
	assert.Equal(t, 100, s.Players[0].Balance)
}

func TestDealer_ReceivedMessage_leaveTable(t *testing.T) {
	a := assert.New(t)
	r := newTestRoom(t, "")
	d, clients := r.seat(t, "p1", "p2")
	ctx := testContext(t)

	d.ReceivedMessage(ctx, clients[1], &payload.PayloadIn{Action: "leaveTable", Context: "bye"})
	res := nextResponse(t, clients[1], payload.KeyStatus)
	a.Equal("bye", res.Context)
	a.Equal("left the table", <-clients[1].Close)

	s, err := d.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, s.Players, 1)
	a.Equal("p1", s.Players[0].ID)

	// the client is no longer seated anywhere
	clients[1].ReceivedMessage(ctx, &payload.PayloadIn{Action: "startBetting"})
	a.Equal(ErrTableNotFound.Error(), nextResponse(t, clients[1], payload.KeyError).Value)
}

func TestDealer_logMessageLimit(t *testing.T) {
	r := newTestRoom(t, "")
	d, _ := r.seat(t, "p1")
	ctx := testContext(t)

	require.NoError(t, d.run(ctx, false, func() error {
		for i := 0; i < logMessageLimit+10; i++ {
			d.addLogMessage(payload.SimpleLogMessage("", "message %d", i))
		}

		assert.Len(t, d.logMessages, logMessageLimit)
		assert.Equal(t, "message 34", d.logMessages[logMessageLimit-1].Message)
		return nil
	}))
}

func TestDealer_run_cancelledContext(t *testing.T) {
	a := assert.New(t)
	r := newTestRoom(t, "")
	d, err := r.pitBoss.CreateTable("Table 1", "p1")
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	ran := 0
	accepted := 0
	for i := 0; i < 100; i++ {
		err := d.run(cancelled, false, func() error {
			ran++
			return nil
		})

		if err == nil {
			accepted++
			continue
		}

		a.ErrorIs(err, context.Canceled)
	}

	// every job that ran was reported as a success
	total := -1
	require.NoError(t, d.run(testContext(t), false, func() error {
		total = ran
		return nil
	}))
	a.Equal(accepted, total)
}
