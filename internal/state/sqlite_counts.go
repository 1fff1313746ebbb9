package state

import (
	"fmt"

	"github.com/leapstack-labs/songplays/pkg/core"
)

// SaveRowCounts stores the row counts observed by a run, replacing earlier ones.
func (s *SQLiteStore) SaveRowCounts(runID string, counts *core.RowCounts) error {
	if s.db == nil {
		return ErrNotOpened
	}

	tx, err := s.db.BeginTx(ctx(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx(), `DELETE FROM row_counts WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear row counts: %w", err)
	}
	for i, c := range counts.Counts {
		if _, err := tx.ExecContext(ctx(),
			`INSERT INTO row_counts (run_id, position, table_name, row_count) VALUES (?, ?, ?, ?)`,
			runID, i, c.Table, c.Rows,
		); err != nil {
			return fmt.Errorf("failed to save row count for %s: %w", c.Table, err)
		}
	}

	return tx.Commit()
}

// GetRowCounts returns the counts saved for a run, or nil if none were saved.
func (s *SQLiteStore) GetRowCounts(runID string) (*core.RowCounts, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT table_name, row_count FROM row_counts WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get row counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []core.TableCount
	for rows.Next() {
		var c core.TableCount
		if err := rows.Scan(&c.Table, &c.Rows); err != nil {
			return nil, fmt.Errorf("failed to scan row count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if counts == nil {
		return nil, nil
	}
	return &core.RowCounts{Counts: counts}, nil
}
