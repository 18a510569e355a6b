package ranking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PostgresListRepository is a Postgres-backed implementation of
// ListRepository.
//
// Renumbering is a single UPDATE over the affected rank range, executed in
// the same transaction as the insert or delete, so a crash can never leave
// two entries sharing a rank or a rank missing. Mutations for the same user
// are serialized with a transaction-scoped advisory lock; the unique
// (user_id, rank) constraint is declared DEFERRABLE so the shift can pass
// through intermediate states inside the transaction.
type PostgresListRepository struct {
	db *sql.DB
}

// NewPostgresListRepository creates a ranked list repository on the given
// database handle.
func NewPostgresListRepository(db *sql.DB) *PostgresListRepository {
	return &PostgresListRepository{db: db}
}

// ListRanked returns the user's entries ordered ascending by rank.
func (r *PostgresListRepository) ListRanked(ctx context.Context, userID string) ([]*RankedEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, movie_id, title, poster_path, rank, created_at, updated_at
		FROM ranked_entries
		WHERE user_id = $1
		ORDER BY rank ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked list: %w", err)
	}
	defer rows.Close()

	var entries []*RankedEntry
	for rows.Next() {
		var e RankedEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.MovieID, &e.Title, &e.PosterPath, &e.Rank, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ranked entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ranked list: %w", err)
	}
	return entries, nil
}

// GetByID retrieves a single entry by its ID.
func (r *PostgresListRepository) GetByID(ctx context.Context, userID, entryID string) (*RankedEntry, error) {
	var e RankedEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, movie_id, title, poster_path, rank, created_at, updated_at
		FROM ranked_entries
		WHERE user_id = $1 AND id = $2`, userID, entryID).
		Scan(&e.ID, &e.UserID, &e.MovieID, &e.Title, &e.PosterPath, &e.Rank, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ranked entry: %w", err)
	}
	return &e, nil
}

// Count returns the number of entries in the user's list.
func (r *PostgresListRepository) Count(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ranked_entries WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ranked list: %w", err)
	}
	return count, nil
}

// IsDuplicate reports whether the user already ranked the movie.
func (r *PostgresListRepository) IsDuplicate(ctx context.Context, userID string, movieID int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ranked_entries WHERE user_id = $1 AND movie_id = $2)`,
		userID, movieID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check for duplicate: %w", err)
	}
	return exists, nil
}

// InsertAt persists the entry at the given rank, shifting existing ranks in
// a single statement inside the same transaction.
func (r *PostgresListRepository) InsertAt(ctx context.Context, userID string, rank int, entry *RankedEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockUser(ctx, tx, userID); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ranked_entries WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count ranked list: %w", err)
	}
	if rank < 1 || rank > count+1 {
		return ErrInvalidRank
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ranked_entries WHERE user_id = $1 AND movie_id = $2)`,
		userID, entry.MovieID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check for duplicate: %w", err)
	}
	if exists {
		return ErrDuplicateMovie
	}

	// One logical shift over the affected range
	if _, err := tx.ExecContext(ctx, `
		UPDATE ranked_entries
		SET rank = rank + 1, updated_at = NOW()
		WHERE user_id = $1 AND rank >= $2`, userID, rank); err != nil {
		return fmt.Errorf("failed to shift ranks: %w", err)
	}

	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO ranked_entries (id, user_id, movie_id, title, poster_path, rank, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`,
		id, userID, entry.MovieID, entry.Title, entry.PosterPath, rank).
		Scan(&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ranked entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insertion: %w", err)
	}

	entry.ID = id
	entry.UserID = userID
	entry.Rank = rank
	return nil
}

// RemoveAt deletes the entry at the given rank and closes the gap with a
// single shift in the same transaction.
func (r *PostgresListRepository) RemoveAt(ctx context.Context, userID string, rank int) (*RankedEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockUser(ctx, tx, userID); err != nil {
		return nil, err
	}

	var removed RankedEntry
	err = tx.QueryRowContext(ctx, `
		DELETE FROM ranked_entries
		WHERE user_id = $1 AND rank = $2
		RETURNING id, user_id, movie_id, title, poster_path, rank, created_at, updated_at`,
		userID, rank).
		Scan(&removed.ID, &removed.UserID, &removed.MovieID, &removed.Title,
			&removed.PosterPath, &removed.Rank, &removed.CreatedAt, &removed.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete ranked entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE ranked_entries
		SET rank = rank - 1, updated_at = NOW()
		WHERE user_id = $1 AND rank > $2`, userID, rank); err != nil {
		return nil, fmt.Errorf("failed to shift ranks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit removal: %w", err)
	}
	return &removed, nil
}

// lockUser takes a transaction-scoped advisory lock for the user so
// concurrent renumbering for the same user is serialized.
func lockUser(ctx context.Context, tx *sql.Tx, userID string) error {
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return fmt.Errorf("failed to acquire user lock: %w", err)
	}
	return nil
}
