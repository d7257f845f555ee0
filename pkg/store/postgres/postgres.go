package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"blackjack-server/pkg/blackjack"
	"blackjack-server/pkg/db"
	"blackjack-server/pkg/deck"
	"blackjack-server/pkg/store"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const pqCheckViolationErrorCode pq.ErrorCode = "23514"

const playerColumns = `
players.id,
players.display_name,
players.balance,
players.created,
players.updated`

// Store is a store.Store backed by Postgres
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New returns a Postgres store
// The schema is expected to be migrated already
func New(dbh *sql.DB) *Store {
	return &Store{db: dbh}
}

func getPlayerByRow(row db.Scanner) (*store.PlayerRecord, error) {
	var p store.PlayerRecord
	if err := row.Scan(&p.ID, &p.DisplayName, &p.Balance, &p.Created, &p.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrPlayerNotFound
		}

		return nil, translateError(err)
	}

	return &p, nil
}

// translateError maps constraint violations to store errors
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqCheckViolationErrorCode {
		return store.ErrNegativeBalance
	}

	return err
}

// GetPlayer returns the player record
func (s *Store) GetPlayer(ctx context.Context, id string) (*store.PlayerRecord, error) {
	const query = `
SELECT ` + playerColumns + `
FROM players
WHERE id = $1`

	return getPlayerByRow(s.db.QueryRowContext(ctx, query, id))
}

// GetOrCreatePlayer returns the player, inserting them with initialBalance if they don't exist
func (s *Store) GetOrCreatePlayer(ctx context.Context, id, displayName string, initialBalance int) (*store.PlayerRecord, error) {
	const query = `
INSERT INTO players (id, display_name, balance)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
RETURNING ` + playerColumns

	return getPlayerByRow(s.db.QueryRowContext(ctx, query, id, displayName, initialBalance))
}

// SaveBalance sets the balance of the player
func (s *Store) SaveBalance(ctx context.Context, playerID string, balance int) error {
	const query = `
UPDATE players
SET balance = $1,
    updated = (NOW() AT TIME ZONE 'utc')
WHERE id = $2`

	res, err := s.db.ExecContext(ctx, query, balance, playerID)
	if err != nil {
		return translateError(err)
	}

	return mustAffectRow(res)
}

// AdjustBalance adds amount to the player's balance and returns the new balance
func (s *Store) AdjustBalance(ctx context.Context, playerID string, amount int) (int, error) {
	const query = `
UPDATE players
SET balance = balance + $1,
    updated = (NOW() AT TIME ZONE 'utc')
WHERE id = $2
RETURNING balance`

	var balance int
	if err := s.db.QueryRowContext(ctx, query, amount, playerID).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrPlayerNotFound
		}

		return 0, translateError(err)
	}

	return balance, nil
}

func mustAffectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return store.ErrPlayerNotFound
	}

	return nil
}

// SaveTable upserts the latest snapshot of the table
func (s *Store) SaveTable(ctx context.Context, snapshot *blackjack.Snapshot) error {
	state, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	const query = `
INSERT INTO tables (uuid, name, creator_id, phase, round, state)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (uuid) DO UPDATE
SET phase = EXCLUDED.phase,
    round = EXCLUDED.round,
    state = EXCLUDED.state,
    updated = (NOW() AT TIME ZONE 'utc')`

	_, err = s.db.ExecContext(ctx, query, snapshot.ID, snapshot.Name, snapshot.CreatorID, string(snapshot.Phase), snapshot.Round, state)
	return err
}

// GetTable returns the last saved snapshot of the table
func (s *Store) GetTable(ctx context.Context, tableID string) (*blackjack.Snapshot, error) {
	const query = `
SELECT state
FROM tables
WHERE uuid = $1`

	var state []byte
	if err := s.db.QueryRowContext(ctx, query, tableID).Scan(&state); err != nil {
		return nil, err
	}

	var snapshot blackjack.Snapshot
	if err := json.Unmarshal(state, &snapshot); err != nil {
		return nil, err
	}

	return &snapshot, nil
}

// DeleteTable deletes the table record, round history is kept
func (s *Store) DeleteTable(ctx context.Context, tableID string) error {
	const query = `
DELETE FROM tables
WHERE uuid = $1`

	_, err := s.db.ExecContext(ctx, query, tableID)
	return err
}

// RecordRound stores the settlement of a round
func (s *Store) RecordRound(ctx context.Context, result *blackjack.RoundResult) error {
	players, err := json.Marshal(result.Players)
	if err != nil {
		return err
	}

	const query = `
INSERT INTO rounds (uuid, table_uuid, round, dealer_hand, dealer_value, results)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = s.db.ExecContext(ctx, query, result.ID, result.TableID, result.Round, deck.CardsToString(result.DealerHand), result.DealerValue, players)
	if err != nil {
		logrus.WithError(err).WithField("table", result.TableID).Error("could not record round")
	}

	return err
}

// RoundsByTable returns the most recent rounds played at the table, newest first
func (s *Store) RoundsByTable(ctx context.Context, tableID string, limit int) ([]*blackjack.RoundResult, error) {
	const query = `
SELECT uuid, table_uuid, round, dealer_hand, dealer_value, results
FROM rounds
WHERE table_uuid = $1
ORDER BY round DESC
LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, tableID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rounds := make([]*blackjack.RoundResult, 0)
	for rows.Next() {
		var r blackjack.RoundResult
		var dealerHand string
		var players []byte
		if err := rows.Scan(&r.ID, &r.TableID, &r.Round, &dealerHand, &r.DealerValue, &players); err != nil {
			return nil, err
		}

		r.DealerHand = deck.CardsFromString(dealerHand)
		if err := json.Unmarshal(players, &r.Players); err != nil {
			return nil, err
		}

		rounds = append(rounds, &r)
	}

	return rounds, rows.Err()
}
