package negotiation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const proposalColumns = `id, trip_id, category, proposer_id, title, provider, price_per_person, voter_ids, created_at`

// PostgresStore handles negotiation persistence in Postgres. Each category
// has a row in negotiation_categories holding the lock pointer; that row is
// what concurrent writers serialize on.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new negotiation store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func loadProposals(ctx context.Context, q queryer, tripID int64, category Category) ([]*Proposal, error) {
	query := `
		SELECT ` + proposalColumns + `
		FROM proposals
		WHERE trip_id = $1 AND category = $2
		ORDER BY created_at, id
	`
	rows, err := q.QueryContext(ctx, query, tripID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []*Proposal
	for rows.Next() {
		p := &Proposal{}
		var voters []int64
		if err := rows.Scan(
			&p.ID,
			&p.TripID,
			&p.Category,
			&p.ProposerID,
			&p.Title,
			&p.Provider,
			&p.PricePerPerson,
			pq.Array(&voters),
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		p.VoterIDs = voters
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	return proposals, nil
}

func loadState(ctx context.Context, q queryer, tripID int64, category Category, forUpdate bool) (*CategoryState, error) {
	query := `SELECT locked_proposal_id FROM negotiation_categories WHERE trip_id = $1 AND category = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	st := &CategoryState{TripID: tripID, Category: category}
	var locked uuid.NullUUID
	err := q.QueryRowContext(ctx, query, tripID, category).Scan(&locked)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get negotiation state: %w", err)
	}
	if locked.Valid {
		id := locked.UUID
		st.LockedProposalID = &id
	}

	if st.Proposals, err = loadProposals(ctx, q, tripID, category); err != nil {
		return nil, err
	}
	return st, nil
}

// Get returns the state of one category, empty if nothing was proposed yet
func (s *PostgresStore) Get(ctx context.Context, tripID int64, category Category) (*CategoryState, error) {
	return loadState(ctx, s.db, tripID, category, false)
}

// Board returns the state of every category of the trip
func (s *PostgresStore) Board(ctx context.Context, tripID int64) (Board, error) {
	board := make(Board, len(Categories))
	for _, c := range Categories {
		st, err := loadState(ctx, s.db, tripID, c, false)
		if err != nil {
			return nil, err
		}
		board[c] = st
	}
	return board, nil
}

// Update locks the category row, applies fn and writes proposals and the
// lock pointer back in the same transaction
func (s *PostgresStore) Update(ctx context.Context, tripID int64, category Category, fn func(st *CategoryState) error) (*CategoryState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	reserve := `
		INSERT INTO negotiation_categories (trip_id, category)
		VALUES ($1, $2)
		ON CONFLICT (trip_id, category) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, reserve, tripID, category); err != nil {
		return nil, fmt.Errorf("failed to reserve negotiation state: %w", err)
	}

	st, err := loadState(ctx, tx, tripID, category, true)
	if err != nil {
		return nil, err
	}
	before := st.clone()

	if err := fn(st); err != nil {
		if errors.Is(err, errUnchanged) {
			return before, nil
		}
		return nil, err
	}

	upsert := `
		INSERT INTO proposals (id, trip_id, category, proposer_id, title, provider, price_per_person, voter_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET voter_ids = EXCLUDED.voter_ids
	`
	for _, p := range st.Proposals {
		if _, err := tx.ExecContext(ctx, upsert,
			p.ID, tripID, category, p.ProposerID, p.Title, p.Provider, p.PricePerPerson, pq.Array(p.VoterIDs), p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to save proposal: %w", err)
		}
	}

	var locked uuid.NullUUID
	if st.LockedProposalID != nil {
		locked = uuid.NullUUID{UUID: *st.LockedProposalID, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE negotiation_categories SET locked_proposal_id = $3, updated_at = NOW() WHERE trip_id = $1 AND category = $2`,
		tripID, category, locked,
	); err != nil {
		return nil, fmt.Errorf("failed to save lock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit negotiation: %w", err)
	}
	return st.clone(), nil
}
