// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// GetLastChangeNumber returns the global tail cursor from the
// pics_sync_state singleton row, or 0 if the row has never been written:
// the row is created on first write and only ever advanced by the change
// monitor.
func (s *Store) GetLastChangeNumber(ctx context.Context) int64 {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT last_change_number FROM pics_sync_state WHERE id = 1`).Scan(&n)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			logStoreErr("get_last_change_number", err)
		}
		return 0
	}
	return n
}

// SetLastChangeNumber upserts the singleton pics_sync_state row. Failures
// are logged and swallowed, matching the original service's defensive
// get_last_change_number/set_last_change_number contract: nothing here is
// allowed to abort the change monitor loop.
func (s *Store) SetLastChangeNumber(ctx context.Context, n int64) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pics_sync_state (id, last_change_number, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET last_change_number = EXCLUDED.last_change_number, updated_at = EXCLUDED.updated_at
	`, n)
	if err != nil {
		logStoreErr("set_last_change_number", err)
	}
}
