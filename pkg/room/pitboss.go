package room

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"blackjack-server/pkg/blackjack"
	"blackjack-server/pkg/deck"
	"blackjack-server/pkg/store"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const disconnectTimeout = time.Second * 10

// Options are the house rules of the pit boss
type Options struct {
	// MaxTables is how many tables may be open at once
	MaxTables int

	// MaxSeats is the number of seats at each table
	MaxSeats int

	// InitialBalance is the balance of a player the store has never seen
	InitialBalance int

	// DealerDelay is the pause before each dealer draw
	DealerDelay time.Duration

	// ResultsDelay is how long the results are shown before the table resets
	ResultsDelay time.Duration

	Clock   quartz.Clock
	Store   store.Store
	NewDeck func() *deck.Deck
}

// DefaultOptions returns the default house rules
func DefaultOptions() Options {
	return Options{
		MaxTables:      4,
		MaxSeats:       blackjack.DefaultMaxSeats,
		InitialBalance: 100,
		DealerDelay:    time.Second,
		ResultsDelay:   time.Second * 5,
	}
}

type seat struct {
	dealer *Dealer
	client *Client
}

// playerLock serializes the join and leave sequences of one player
type playerLock struct {
	sync.Mutex
	refs int
}

// PitBoss is the table registry
// It owns which tables exist and where every player is seated; everything that happens at a table is the dealer's job.
type PitBoss struct {
	opts Options

	lock        sync.RWMutex
	dealers     map[string]*Dealer
	seats       map[string]*seat
	playerLocks map[string]*playerLock
}

// NewPitBoss returns a new registry
func NewPitBoss(opts Options) *PitBoss {
	defaults := DefaultOptions()
	if opts.MaxTables <= 0 {
		opts.MaxTables = defaults.MaxTables
	}

	if opts.MaxSeats <= 0 {
		opts.MaxSeats = defaults.MaxSeats
	}

	if opts.InitialBalance < 0 {
		opts.InitialBalance = 0
	}

	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}

	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}

	return &PitBoss{
		opts:    opts,
		dealers:     make(map[string]*Dealer),
		seats:       make(map[string]*seat),
		playerLocks: make(map[string]*playerLock),
	}
}

// CreateTable opens a new table with an empty seat for every player
func (p *PitBoss) CreateTable(name, creatorID string) (*Dealer, error) {
	p.lock.Lock()
	if len(p.dealers) >= p.opts.MaxTables {
		p.lock.Unlock()
		return nil, ErrTableLimitReached
	}

	d := NewDealer(p, uuid.NewString(), name, creatorID)
	p.dealers[d.ID()] = d
	p.lock.Unlock()

	d.StartShift()
	logrus.WithField("table", d.ID()).WithField("creator", creatorID).Info("table created")

	return d, nil
}

// Table returns the dealer of an open table
func (p *PitBoss) Table(id string) (*Dealer, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	d, ok := p.dealers[id]
	return d, ok
}

// Tables returns the listing of every open table, oldest first
func (p *PitBoss) Tables() []blackjack.Summary {
	p.lock.RLock()
	dealers := make([]*Dealer, 0, len(p.dealers))
	for _, d := range p.dealers {
		dealers = append(dealers, d)
	}
	p.lock.RUnlock()

	sort.Slice(dealers, func(i, j int) bool {
		if dealers[i].created.Equal(dealers[j].created) {
			return dealers[i].id < dealers[j].id
		}

		return dealers[i].created.Before(dealers[j].created)
	})

	summaries := make([]blackjack.Summary, len(dealers))
	for i, d := range dealers {
		summaries[i] = d.Summary()
	}

	return summaries
}

// DeleteTable closes the table, only its creator may do this
func (p *PitBoss) DeleteTable(ctx context.Context, id, callerID string) error {
	d, ok := p.Table(id)
	if !ok {
		return ErrTableNotFound
	}

	if d.CreatorID() != callerID {
		return blackjack.ErrNotCreator
	}

	return d.shutdown(ctx, "the table was closed by its creator")
}

// ClientConnected seats the client's player at the table
// A player sits at one table at a time, so they first leave any other table. Connecting again to the table
// the player is already seated at hands the seat over to the new connection.
func (p *PitBoss) ClientConnected(ctx context.Context, c *Client, tableID string) error {
	unlock := p.lockPlayer(c.PlayerID)
	defer unlock()

	d, ok := p.Table(tableID)
	if !ok {
		return ErrTableNotFound
	}

	if s := p.seatOf(c.PlayerID); s != nil {
		if s.dealer == d {
			return p.reconnect(ctx, c, s)
		}

		if err := p.leaveSeat(ctx, c.PlayerID, s); err != nil {
			return err
		}

		if s.client != c {
			s.client.kick("joined another table")
		}
	}

	record, err := p.Player(ctx, c.PlayerID, c.DisplayName)
	if err != nil {
		return err
	}

	if err := d.join(ctx, c, record); err != nil {
		return err
	}

	p.lock.Lock()
	if p.dealers[d.ID()] != d {
		// closed right after the join, the client was already told
		p.lock.Unlock()
		return ErrTableNotFound
	}

	p.seats[c.PlayerID] = &seat{dealer: d, client: c}
	p.lock.Unlock()

	c.setDealer(d)
	logrus.WithField("client", c.String()).Info("player joined table")

	return nil
}

func (p *PitBoss) reconnect(ctx context.Context, c *Client, s *seat) error {
	if s.client == c {
		return blackjack.ErrAlreadySeated
	}

	if err := s.dealer.replaceClient(ctx, c); err != nil {
		return err
	}

	p.lock.Lock()
	p.seats[c.PlayerID] = &seat{dealer: s.dealer, client: c}
	p.lock.Unlock()

	c.setDealer(s.dealer)
	s.client.setDealer(nil)
	s.client.kick("connected from another session")

	logrus.WithField("client", c.String()).Info("player reconnected")
	return nil
}

// Leave removes the client's player from their table
func (p *PitBoss) Leave(ctx context.Context, c *Client) error {
	unlock := p.lockPlayer(c.PlayerID)
	defer unlock()

	s := p.seatOf(c.PlayerID)
	if s == nil || s.client != c {
		return blackjack.ErrPlayerNotSeated
	}

	return p.leaveSeat(ctx, c.PlayerID, s)
}

// ClientDisconnected is called when a client disconnects from the server
func (p *PitBoss) ClientDisconnected(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	if err := p.Leave(ctx, c); err != nil && !errors.Is(err, blackjack.ErrPlayerNotSeated) {
		logrus.WithError(err).WithField("client", c.String()).Error("could not remove disconnected player")
		return
	}

	logrus.WithField("client", c.String()).Debug("client disconnected")
}

// leaveSeat removes the player from the table and waits for the table to persist the result
// The seat is released even if waiting fails, the leave itself is always queued.
// NOTE: the player's lock must be held
func (p *PitBoss) leaveSeat(ctx context.Context, playerID string, s *seat) error {
	err := s.dealer.leave(ctx, playerID)

	p.lock.Lock()
	if p.seats[playerID] == s {
		delete(p.seats, playerID)
	}
	p.lock.Unlock()

	s.client.setDealer(nil)

	if err != nil && !errors.Is(err, ErrTableNotFound) && !errors.Is(err, blackjack.ErrPlayerNotSeated) {
		return err
	}

	// the next table reads the balance back from the store
	return s.dealer.writer.flush(ctx)
}

// lockPlayer locks the join and leave sequences of the player and returns the unlock func
// Only sequences of the same player wait on each other.
func (p *PitBoss) lockPlayer(playerID string) func() {
	p.lock.Lock()
	l, ok := p.playerLocks[playerID]
	if !ok {
		l = &playerLock{}
		p.playerLocks[playerID] = l
	}
	l.refs++
	p.lock.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		p.lock.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.playerLocks, playerID)
		}
		p.lock.Unlock()
	}
}

func (p *PitBoss) seatOf(playerID string) *seat {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.seats[playerID]
}

// Player returns the player's record, creating it with the initial balance if needed
func (p *PitBoss) Player(ctx context.Context, playerID, displayName string) (*store.PlayerRecord, error) {
	return p.opts.Store.GetOrCreatePlayer(ctx, playerID, displayName, p.opts.InitialBalance)
}

// Rounds returns up to limit rounds played at the table, newest first
// The history outlives the table.
func (p *PitBoss) Rounds(ctx context.Context, tableID string, limit int) ([]*blackjack.RoundResult, error) {
	return p.opts.Store.RoundsByTable(ctx, tableID, limit)
}

// SeatOf returns the ID of the table the player is seated at
func (p *PitBoss) SeatOf(playerID string) (string, bool) {
	s := p.seatOf(playerID)
	if s == nil {
		return "", false
	}

	return s.dealer.ID(), true
}

// removeDealer is called by a dealer whose table closed
func (p *PitBoss) removeDealer(d *Dealer) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.dealers[d.ID()] == d {
		delete(p.dealers, d.ID())
	}

	for playerID, s := range p.seats {
		if s.dealer == d {
			delete(p.seats, playerID)
		}
	}

	logrus.WithField("table", d.ID()).Info("table closed")
}

// Shutdown closes every table and waits for their writes to be applied
func (p *PitBoss) Shutdown(ctx context.Context) error {
	p.lock.RLock()
	dealers := make([]*Dealer, 0, len(p.dealers))
	for _, d := range p.dealers {
		dealers = append(dealers, d)
	}
	p.lock.RUnlock()

	var errs []error
	for _, d := range dealers {
		if err := d.shutdown(ctx, "the server is shutting down"); err != nil && !errors.Is(err, ErrTableNotFound) {
			errs = append(errs, err)
			continue
		}

		if err := d.writer.wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
