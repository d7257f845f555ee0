package store

import (
	"context"
	"errors"
	"time"

	"blackjack-server/pkg/blackjack"
)

// ErrPlayerNotFound is returned when there is no record for the player
var ErrPlayerNotFound = errors.New("player not found")

// ErrNegativeBalance is returned when a balance below zero would be saved
var ErrNegativeBalance = errors.New("balance cannot be negative")

// PlayerRecord is the durable identity and balance of a player
type PlayerRecord struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Balance     int       `json:"balance"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// Mirror receives the state of the engine after every mutation
type Mirror interface {
	SaveBalance(ctx context.Context, playerID string, balance int) error
	SaveTable(ctx context.Context, snapshot *blackjack.Snapshot) error
	DeleteTable(ctx context.Context, tableID string) error
	RecordRound(ctx context.Context, result *blackjack.RoundResult) error
}

// Store is the persistence collaborator of the engine
// The engine is authoritative for a round in flight, the store is read when a player sits down.
type Store interface {
	Mirror

	// GetPlayer returns ErrPlayerNotFound if the player has no record
	GetPlayer(ctx context.Context, id string) (*PlayerRecord, error)

	// GetOrCreatePlayer returns the player, creating them with initialBalance if needed
	GetOrCreatePlayer(ctx context.Context, id, displayName string, initialBalance int) (*PlayerRecord, error)

	// RoundsByTable returns up to limit rounds played at the table, newest first
	RoundsByTable(ctx context.Context, tableID string, limit int) ([]*blackjack.RoundResult, error)
}

// Multi writes to Store and then to every mirror
// Reads only go to Store.
type Multi struct {
	Store
	Mirrors []Mirror
}

var _ Store = (*Multi)(nil)

func (m *Multi) each(fn func(Mirror) error) error {
	errs := []error{fn(m.Store)}
	for _, mirror := range m.Mirrors {
		errs = append(errs, fn(mirror))
	}

	return errors.Join(errs...)
}

// SaveBalance saves the balance everywhere
func (m *Multi) SaveBalance(ctx context.Context, playerID string, balance int) error {
	return m.each(func(mirror Mirror) error {
		return mirror.SaveBalance(ctx, playerID, balance)
	})
}

// SaveTable saves the table everywhere
func (m *Multi) SaveTable(ctx context.Context, snapshot *blackjack.Snapshot) error {
	return m.each(func(mirror Mirror) error {
		return mirror.SaveTable(ctx, snapshot)
	})
}

// DeleteTable deletes the table everywhere
func (m *Multi) DeleteTable(ctx context.Context, tableID string) error {
	return m.each(func(mirror Mirror) error {
		return mirror.DeleteTable(ctx, tableID)
	})
}

// RecordRound records the round everywhere
func (m *Multi) RecordRound(ctx context.Context, result *blackjack.RoundResult) error {
	return m.each(func(mirror Mirror) error {
		return mirror.RecordRound(ctx, result)
	})
}
