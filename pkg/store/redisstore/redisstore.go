package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"blackjack-server/pkg/blackjack"
	"blackjack-server/pkg/store"

	"github.com/redis/go-redis/v9"
)

// DefaultSnapshotTTL is how long a table snapshot lives without updates
const DefaultSnapshotTTL = time.Hour

// roundHistoryLimit is how many rounds are kept per table
const roundHistoryLimit = 50

// event types published on the events channel
const (
	EventTableUpdate = "tableUpdate"
	EventTableClosed = "tableClosed"
	EventBalance     = "balance"
	EventRound       = "round"
)

// Event is published on the events channel after every write
type Event struct {
	Type     string `json:"type"`
	TableID  string `json:"tableId,omitempty"`
	PlayerID string `json:"playerId,omitempty"`
	Balance  *int   `json:"balance,omitempty"`
	Round    int    `json:"round,omitempty"`
}

// Options contains options for the mirror
type Options struct {
	// Prefix of every key and the events channel, defaults to "bj"
	Prefix      string
	SnapshotTTL time.Duration
}

// Mirror copies engine state into Redis so other services can read and subscribe to it
type Mirror struct {
	rdb  *redis.Client
	opts Options
}

var _ store.Mirror = (*Mirror)(nil)

// New returns a new mirror
func New(rdb *redis.Client, opts Options) *Mirror {
	if opts.Prefix == "" {
		opts.Prefix = "bj"
	}

	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = DefaultSnapshotTTL
	}

	return &Mirror{rdb: rdb, opts: opts}
}

// Ping checks that Redis is reachable
func (m *Mirror) Ping(ctx context.Context) error {
	return m.rdb.Ping(ctx).Err()
}

// TableKey returns the key holding the snapshot of the table
func (m *Mirror) TableKey(tableID string) string {
	return fmt.Sprintf("%s:table:%s", m.opts.Prefix, tableID)
}

// RoundsKey returns the key holding the round history of the table
func (m *Mirror) RoundsKey(tableID string) string {
	return fmt.Sprintf("%s:rounds:%s", m.opts.Prefix, tableID)
}

// BalancesKey returns the hash of player balances
func (m *Mirror) BalancesKey() string {
	return m.opts.Prefix + ":balances"
}

// EventsChannel returns the channel events are published on
func (m *Mirror) EventsChannel() string {
	return m.opts.Prefix + ":events"
}

func (m *Mirror) publish(ctx context.Context, pipe redis.Pipeliner, event Event) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pipe.Publish(ctx, m.EventsChannel(), b)
	return nil
}

// SaveBalance sets the balance in the balances hash
func (m *Mirror) SaveBalance(ctx context.Context, playerID string, balance int) error {
	_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, m.BalancesKey(), playerID, strconv.Itoa(balance))
		return m.publish(ctx, pipe, Event{Type: EventBalance, PlayerID: playerID, Balance: &balance})
	})

	return err
}

// SaveTable stores the snapshot with a TTL
func (m *Mirror) SaveTable(ctx context.Context, snapshot *blackjack.Snapshot) error {
	b, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	_, err = m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, m.TableKey(snapshot.ID), b, m.opts.SnapshotTTL)
		return m.publish(ctx, pipe, Event{Type: EventTableUpdate, TableID: snapshot.ID, Round: snapshot.Round})
	})

	return err
}

// DeleteTable removes the snapshot, the round history expires on its own
func (m *Mirror) DeleteTable(ctx context.Context, tableID string) error {
	_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, m.TableKey(tableID))
		pipe.Expire(ctx, m.RoundsKey(tableID), m.opts.SnapshotTTL)
		return m.publish(ctx, pipe, Event{Type: EventTableClosed, TableID: tableID})
	})

	return err
}

// RecordRound pushes the round onto the table's capped history
func (m *Mirror) RecordRound(ctx context.Context, result *blackjack.RoundResult) error {
	b, err := json.Marshal(result)
	if err != nil {
		return err
	}

	_, err = m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := m.RoundsKey(result.TableID)
		pipe.LPush(ctx, key, b)
		pipe.LTrim(ctx, key, 0, roundHistoryLimit-1)
		return m.publish(ctx, pipe, Event{Type: EventRound, TableID: result.TableID, Round: result.Round})
	})

	return err
}

// GetTable returns the mirrored snapshot, redis.Nil if there is none
func (m *Mirror) GetTable(ctx context.Context, tableID string) (*blackjack.Snapshot, error) {
	b, err := m.rdb.Get(ctx, m.TableKey(tableID)).Bytes()
	if err != nil {
		return nil, err
	}

	var snapshot blackjack.Snapshot
	if err := json.Unmarshal(b, &snapshot); err != nil {
		return nil, err
	}

	return &snapshot, nil
}
