package store

import (
	"context"
	"sync"
	"time"

	"blackjack-server/pkg/blackjack"
)

// Memory is a Store that lives in memory
type Memory struct {
	mu      sync.Mutex
	players map[string]*PlayerRecord
	tables  map[string]*blackjack.Snapshot
	rounds  []*blackjack.RoundResult
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		players: make(map[string]*PlayerRecord),
		tables:  make(map[string]*blackjack.Snapshot),
	}
}

// GetPlayer returns a copy of the player record
func (m *Memory) GetPlayer(_ context.Context, id string) (*PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		return nil, ErrPlayerNotFound
	}

	cp := *p
	return &cp, nil
}

// GetOrCreatePlayer returns the player, creating them if needed
func (m *Memory) GetOrCreatePlayer(_ context.Context, id, displayName string, initialBalance int) (*PlayerRecord, error) {
	if initialBalance < 0 {
		return nil, ErrNegativeBalance
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok {
		now := time.Now().UTC()
		p = &PlayerRecord{
			ID:          id,
			DisplayName: displayName,
			Balance:     initialBalance,
			Created:     now,
			Updated:     now,
		}

		m.players[id] = p
	}

	cp := *p
	return &cp, nil
}

// SaveBalance updates the balance of an existing player
func (m *Memory) SaveBalance(_ context.Context, playerID string, balance int) error {
	if balance < 0 {
		return ErrNegativeBalance
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[playerID]
	if !ok {
		return ErrPlayerNotFound
	}

	p.Balance = balance
	p.Updated = time.Now().UTC()
	return nil
}

// SaveTable stores the latest snapshot of the table
func (m *Memory) SaveTable(_ context.Context, snapshot *blackjack.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tables[snapshot.ID] = snapshot
	return nil
}

// DeleteTable removes the table
func (m *Memory) DeleteTable(_ context.Context, tableID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tables, tableID)
	return nil
}

// RecordRound appends the round to the history
func (m *Memory) RecordRound(_ context.Context, result *blackjack.RoundResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rounds = append(m.rounds, result)
	return nil
}

// Table returns the last saved snapshot of the table
func (m *Memory) Table(tableID string) (*blackjack.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.tables[tableID]
	return s, ok
}

// Rounds returns every recorded round
func (m *Memory) Rounds() []*blackjack.RoundResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	rounds := make([]*blackjack.RoundResult, len(m.rounds))
	copy(rounds, m.rounds)
	return rounds
}

// RoundsByTable returns up to limit rounds played at the table, newest first
func (m *Memory) RoundsByTable(_ context.Context, tableID string, limit int) ([]*blackjack.RoundResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rounds := make([]*blackjack.RoundResult, 0)
	for i := len(m.rounds) - 1; i >= 0 && len(rounds) < limit; i-- {
		if m.rounds[i].TableID == tableID {
			rounds = append(rounds, m.rounds[i])
		}
	}

	return rounds, nil
}
