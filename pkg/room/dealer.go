package room

import (
	"context"
	"sync"
	"time"

	"blackjack-server/pkg/blackjack"
	"blackjack-server/pkg/deck"
	"blackjack-server/pkg/payload"
	"blackjack-server/pkg/store"

	"github.com/coder/quartz"
	"github.com/sirupsen/logrus"
)

const logMessageLimit = 25

// websocket actions understood by the dealer
const (
	actionStartBetting = "startBetting"
	actionPlaceBet     = "placeBet"
	actionPlayerAction = "playerAction"
	actionLeaveTable   = "leaveTable"
)

// TableUpdate is the data of a tableUpdate message
type TableUpdate struct {
	Table *blackjack.Snapshot   `json:"table"`
	Log   []*payload.LogMessage `json:"log"`
}

// GameStatus is the data of a gameStatusChange message
type GameStatus struct {
	Status blackjack.Phase `json:"status"`
}

// TableClosed is the data of a tableClosed message
type TableClosed struct {
	TableID string `json:"tableId"`
	Reason  string `json:"reason"`
}

// Dealer owns a single table
// Every change to the table happens on the dealer's run loop, one at a time, and is followed by a broadcast
// of the new snapshot to the seated clients and a write to storage.
type Dealer struct {
	pitBoss *PitBoss
	table   *blackjack.Table
	id      string
	name    string
	creator string
	created time.Time
	clock   quartz.Clock
	opts    Options
	log     logrus.FieldLogger
	writer  *writer

	// only accessed from the run loop
	clients     map[string]*Client
	balances    map[string]int
	logMessages []*payload.LogMessage
	lastPhase   blackjack.Phase
	pending     *quartz.Timer
	closing     bool
	closeReason string

	lock    sync.RWMutex
	summary blackjack.Summary

	execInRunLoop chan func()
	close         chan struct{}
}

// NewDealer creates a new dealer object
// This is called from a blocking state, so it needs to return quickly
func NewDealer(pitBoss *PitBoss, id, name, creatorID string) *Dealer {
	log := logrus.WithFields(logrus.Fields{
		"table": id,
		"name":  name,
	})

	opts := pitBoss.opts
	d := &Dealer{
		pitBoss: pitBoss,
		id:      id,
		name:    name,
		creator: creatorID,
		created: opts.Clock.Now(),
		clock:   opts.Clock,
		opts:    opts,
		log:     log,
		writer:  newWriter(opts.Store, log),
		table: blackjack.NewTable(id, name, creatorID, blackjack.Options{
			MaxSeats: opts.MaxSeats,
			NewDeck:  opts.NewDeck,
			Logger:   log,
		}),
		clients:       make(map[string]*Client),
		balances:      make(map[string]int),
		execInRunLoop: make(chan func(), 256),
		close:         make(chan struct{}),
	}

	d.lastPhase = d.table.Phase
	d.summary = d.table.Summary()

	return d
}

// ID returns the table ID
func (d *Dealer) ID() string {
	return d.id
}

// Name returns the table name
func (d *Dealer) Name() string {
	return d.name
}

// CreatorID returns the ID of the player who created the table
func (d *Dealer) CreatorID() string {
	return d.creator
}

// Summary returns the listing entry of the table as of the last change
func (d *Dealer) Summary() blackjack.Summary {
	d.lock.RLock()
	defer d.lock.RUnlock()

	return d.summary
}

// StartShift starts the run loop
func (d *Dealer) StartShift() {
	d.writer.saveTable(d.table.Snapshot())
	go d.runLoop()
}

func (d *Dealer) runLoop() {
	d.log.Debug("creating dealer run loop")
	for fn := range d.execInRunLoop {
		fn()

		if d.closing {
			d.endShift()
			d.log.Debug("terminating dealer run loop")
			return
		}
	}
}

// run executes fn on the run loop and waits for it to finish
// If mutates is true and fn succeeds, the change is broadcast before run returns.
// ctx only bounds the wait for a place in the queue. Once queued, fn runs and its result is returned.
func (d *Dealer) run(ctx context.Context, mutates bool, fn func() error) error {
	result := make(chan error, 1)
	job := func() {
		err := fn()
		if err == nil && mutates {
			d.afterMutation()
		}

		result <- err
	}

	select {
	case d.execInRunLoop <- job:
	case <-d.close:
		return ErrTableNotFound
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-d.close:
		// the job that closed the table already has its result
		select {
		case err := <-result:
			return err
		default:
			return ErrTableNotFound
		}
	}
}

func (d *Dealer) exec(ctx context.Context, fn func() error) error {
	return d.run(ctx, true, fn)
}

// enqueue runs fn on the run loop without waiting for it
// Nothing happens if the table is closed.
func (d *Dealer) enqueue(fn func()) {
	select {
	case d.execInRunLoop <- fn:
	case <-d.close:
	}
}

// Snapshot returns the current state of the table
func (d *Dealer) Snapshot(ctx context.Context) (*blackjack.Snapshot, error) {
	var s *blackjack.Snapshot
	err := d.run(ctx, false, func() error {
		s = d.table.Snapshot()
		return nil
	})

	return s, err
}

// StartBetting opens betting, only the creator can do this
func (d *Dealer) StartBetting(ctx context.Context, playerID string) error {
	return d.exec(ctx, func() error {
		if err := d.table.StartBetting(playerID); err != nil {
			return err
		}

		d.addLogMessage(payload.SimpleLogMessage(playerID, "opened betting"))
		return nil
	})
}

// PlaceBet places the player's bet for the round
func (d *Dealer) PlaceBet(ctx context.Context, playerID string, amount int) error {
	return d.exec(ctx, func() error {
		if err := d.table.PlaceBet(playerID, amount); err != nil {
			return err
		}

		d.addLogMessage(payload.SimpleLogMessage(playerID, "bet %d", amount))
		if d.table.Phase != blackjack.PhaseBetting {
			d.addLogMessage(payload.SimpleLogMessage("", "cards are dealt for round %d", d.table.Round))
		}

		return nil
	})
}

// Act performs a hit, stand or double
func (d *Dealer) Act(ctx context.Context, playerID string, action blackjack.Action) error {
	return d.exec(ctx, func() error {
		if err := d.table.Act(playerID, action); err != nil {
			return err
		}

		msg := payload.SimpleLogMessage(playerID, "%s", action)
		if p, ok := d.table.GetPlayer(playerID); ok && action != blackjack.ActionStand {
			msg.WithCards(p.Hand[len(p.Hand)-1])
		}

		d.addLogMessage(msg)
		return nil
	})
}

// join seats the player
func (d *Dealer) join(ctx context.Context, c *Client, record *store.PlayerRecord) error {
	return d.exec(ctx, func() error {
		if err := d.table.Join(record.ID, record.DisplayName, record.Balance); err != nil {
			return err
		}

		d.clients[record.ID] = c
		d.balances[record.ID] = record.Balance
		d.addLogMessage(payload.SimpleLogMessage(record.ID, "joined the table"))
		return nil
	})
}

// replaceClient hands the player's seat over to a new connection
func (d *Dealer) replaceClient(ctx context.Context, c *Client) error {
	return d.exec(ctx, func() error {
		if p, ok := d.table.GetPlayer(c.PlayerID); !ok || !p.Active {
			return blackjack.ErrPlayerNotSeated
		}

		d.clients[c.PlayerID] = c
		return nil
	})
}

// leave removes the player, the table closes once nobody active is left
// The leave is queued even if ctx is already done, ctx only bounds the wait for the table to close.
func (d *Dealer) leave(ctx context.Context, playerID string) error {
	abandoned := false
	err := d.exec(context.WithoutCancel(ctx), func() error {
		if err := d.table.Leave(playerID); err != nil {
			return err
		}

		delete(d.clients, playerID)
		d.addLogMessage(payload.SimpleLogMessage(playerID, "left the table"))

		if d.table.IsAbandoned() {
			abandoned = true
			d.closing = true
			d.closeReason = "everyone left the table"
		}

		return nil
	})

	if err != nil || !abandoned {
		return err
	}

	return d.waitClosed(ctx)
}

// shutdown closes the table and waits until it's gone
func (d *Dealer) shutdown(ctx context.Context, reason string) error {
	err := d.run(ctx, false, func() error {
		d.closing = true
		d.closeReason = reason
		return nil
	})

	if err != nil {
		return err
	}

	return d.waitClosed(ctx)
}

func (d *Dealer) waitClosed(ctx context.Context) error {
	select {
	case <-d.close:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NOTE: must only be called from the run loop
func (d *Dealer) addLogMessage(msg *payload.LogMessage) {
	m := append(d.logMessages, msg)
	if count := len(m); count > logMessageLimit {
		m = m[count-logMessageLimit:]
	}

	d.logMessages = m
}

// NOTE: must only be called from the run loop
func (d *Dealer) broadcast(msg *payload.Response) {
	for _, client := range d.clients {
		client.Send(msg)
	}
}

// afterMutation publishes the new state of the table and schedules the next paced step
// NOTE: must only be called from the run loop
func (d *Dealer) afterMutation() {
	snapshot := d.table.Snapshot()
	phase := snapshot.Phase
	phaseChanged := phase != d.lastPhase
	d.lastPhase = phase

	logMessages := make([]*payload.LogMessage, len(d.logMessages))
	copy(logMessages, d.logMessages)

	d.broadcast(&payload.Response{
		Key:  payload.KeyTableUpdate,
		Data: TableUpdate{Table: snapshot, Log: logMessages},
	})

	result := d.table.LastResult()
	if phaseChanged && phase == blackjack.PhaseResults && result != nil {
		d.broadcast(&payload.Response{
			Key:  payload.KeyGameOver,
			Data: result,
		})
	}

	if phaseChanged {
		d.broadcast(&payload.Response{
			Key:   payload.KeyGameStatusChange,
			Value: string(phase),
			Data:  GameStatus{Status: phase},
		})
	}

	d.persist(snapshot)
	if phaseChanged && phase == blackjack.PhaseResults && result != nil {
		d.writer.recordRound(result)
	}

	d.lock.Lock()
	d.summary = d.table.Summary()
	d.lock.Unlock()

	switch phase {
	case blackjack.PhaseDealer:
		d.schedule(d.opts.DealerDelay, d.dealerStep)
	case blackjack.PhaseResults:
		d.schedule(d.opts.ResultsDelay, d.resetTable)
	}
}

// persist hands the snapshot and every changed balance to the writer
// NOTE: must only be called from the run loop
func (d *Dealer) persist(snapshot *blackjack.Snapshot) {
	d.writer.saveTable(snapshot)

	seated := make(map[string]bool, len(snapshot.Players))
	for _, p := range snapshot.Players {
		seated[p.ID] = true
		if last, ok := d.balances[p.ID]; !ok || last != p.Balance {
			d.balances[p.ID] = p.Balance
			d.writer.saveBalance(p.ID, p.Balance)
		}
	}

	for id := range d.balances {
		if !seated[id] {
			delete(d.balances, id)
		}
	}
}

// schedule runs step on the run loop after delay
// The step is skipped if the table moved on to another round or phase in the meantime.
// NOTE: must only be called from the run loop
func (d *Dealer) schedule(delay time.Duration, step func()) {
	if d.pending != nil || d.closing {
		return
	}

	round, phase := d.table.Round, d.table.Phase

	var timer *quartz.Timer
	timer = d.clock.AfterFunc(delay, func() {
		d.enqueue(func() {
			if d.pending == timer {
				d.pending = nil
			}

			if d.table.Round != round || d.table.Phase != phase {
				d.log.WithField("round", round).WithField("phase", phase).Debug("skipping stale step")
				return
			}

			step()
		})
	})

	d.pending = timer
}

// NOTE: must only be called from the run loop
func (d *Dealer) dealerStep() {
	done, err := d.table.DealerStep()
	if err != nil {
		d.log.WithError(err).Error("dealer could not finish the hand")
	}

	if done {
		if result := d.table.LastResult(); result != nil {
			for _, p := range result.Players {
				if !p.Active {
					continue
				}

				d.addLogMessage(payload.SimpleLogMessage(p.PlayerID, "%s with %d", p.Outcome, p.Value))
			}
		}
	} else {
		d.addLogMessage(payload.SimpleLogMessage("", "dealer draws").WithCards(lastCard(d.table.Dealer)))
	}

	d.afterMutation()
}

// NOTE: must only be called from the run loop
func (d *Dealer) resetTable() {
	d.table.Reset()
	d.addLogMessage(payload.SimpleLogMessage("", "waiting for the next round"))
	d.afterMutation()
}

// endShift closes the table and tells everyone still connected
// NOTE: must only be called from the run loop
func (d *Dealer) endShift() {
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}

	d.pitBoss.removeDealer(d)

	for _, client := range d.clients {
		client.Send(&payload.Response{
			Key:   payload.KeyTableClosed,
			Value: d.closeReason,
			Data:  TableClosed{TableID: d.id, Reason: d.closeReason},
		})
		client.setDealer(nil)
		client.kick("table closed")
	}

	d.clients = make(map[string]*Client)
	d.writer.deleteTable(d.id)
	d.writer.stop()
	close(d.close)
}

// ReceivedMessage is called when a client sends a message to the server
func (d *Dealer) ReceivedMessage(ctx context.Context, c *Client, msg *payload.PayloadIn) {
	var err error
	switch msg.Action {
	case actionStartBetting:
		err = d.StartBetting(ctx, c.PlayerID)
	case actionPlaceBet:
		amount, ok := msg.AdditionalData.GetInt("amount")
		if !ok {
			err = blackjack.ErrInvalidBet
			break
		}

		err = d.PlaceBet(ctx, c.PlayerID, amount)
	case actionPlayerAction:
		var action blackjack.Action
		if action, err = blackjack.ActionFromString(msg.Subject); err == nil {
			err = d.Act(ctx, c.PlayerID, action)
		}
	case actionLeaveTable:
		if err = d.pitBoss.Leave(ctx, c); err == nil {
			c.Send(payload.OK(msg.Context))
			c.kick("left the table")
			return
		}
	default:
		err = ErrUnknownAction
	}

	if err != nil {
		d.log.WithError(err).WithField("client", c.String()).WithField("action", msg.Action).Debug("could not perform action")
		c.Send(payload.Error(msg.Context, userFacing(d.log, err)))
		return
	}

	c.Send(payload.OK(msg.Context))
}

func lastCard(hand deck.Hand) *deck.Card {
	if len(hand) == 0 {
		return nil
	}

	return hand[len(hand)-1]
}
