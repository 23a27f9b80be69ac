package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cparmet/finite-news/internal/models"
)

// LoadSnapshot returns the recipient's cache snapshot. It never fails: a
// recipient with no stored rows, a missing table, and an unreadable store
// all yield an empty snapshot, so a first run and a damaged cache both
// behave as "everything is new". A read failure may re-show yesterday's
// items once; it never blocks the issue. The underlying error is logged.
func (s *Store) LoadSnapshot(ctx context.Context, recipient string) (models.Snapshot, error) {
	empty := func(stage string, err error) (models.Snapshot, error) {
		slog.Warn("snapshot read failed, starting from an empty cache",
			"recipient", recipient, "stage", stage, "error", err)
		return models.Snapshot{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source, fingerprint
		FROM snapshot_fingerprints
		WHERE recipient = ?
		ORDER BY source, position
	`, recipient)
	if err != nil {
		return empty("query", err)
	}
	defer rows.Close()

	snap := make(models.Snapshot)
	for rows.Next() {
		var source, fp string
		if err := rows.Scan(&source, &fp); err != nil {
			return empty("scan", err)
		}
		snap[source] = append(snap[source], fp)
	}
	if err := rows.Err(); err != nil {
		return empty("iterate", err)
	}

	return snap, nil
}

// CommitSnapshot atomically replaces the recipient's stored snapshot with
// snap. Either every row lands or none do; a failed commit leaves the
// previous snapshot intact for the next run.
func (s *Store) CommitSnapshot(ctx context.Context, recipient string, snap models.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning snapshot commit: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM snapshot_fingerprints WHERE recipient = ?", recipient,
	); err != nil {
		return fmt.Errorf("clearing snapshot for %q: %w", recipient, err)
	}

	for source, fps := range snap {
		for i, fp := range fps {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO snapshot_fingerprints (recipient, source, position, fingerprint)
				VALUES (?, ?, ?, ?)
			`, recipient, source, i, fp); err != nil {
				return fmt.Errorf("inserting snapshot row for %q/%q: %w", recipient, source, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot for %q: %w", recipient, err)
	}
	return nil
}
