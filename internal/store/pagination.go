// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package store

import (
	"context"
	"fmt"
)

const pageSize = 1000

// GetAllAppIDs returns every appid in the apps table via keyset pagination.
// Offset pagination would not help here: the underlying store caps its
// page size regardless of what range() requests.
func (s *Store) GetAllAppIDs(ctx context.Context) ([]uint32, error) {
	return s.paginateAppIDs(ctx, `SELECT appid FROM apps WHERE appid > $1 ORDER BY appid LIMIT $2`)
}

// GetUnsyncedAppIDs returns appids in sync_status with a null
// last_pics_sync, via the same keyset pagination strategy.
func (s *Store) GetUnsyncedAppIDs(ctx context.Context) ([]uint32, error) {
	return s.paginateAppIDs(ctx, `
		SELECT appid FROM sync_status
		WHERE last_pics_sync IS NULL AND appid > $1
		ORDER BY appid LIMIT $2`)
}

func (s *Store) paginateAppIDs(ctx context.Context, query string) ([]uint32, error) {
	var all []uint32
	var lastAppID uint32

	for {
		rows, err := s.pool.Query(ctx, query, lastAppID, pageSize)
		if err != nil {
			return all, fmt.Errorf("store: paginate app ids: %w", err)
		}

		var page []uint32
		for rows.Next() {
			var id uint32
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return all, fmt.Errorf("store: scan app id: %w", err)
			}
			page = append(page, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return all, fmt.Errorf("store: paginate app ids: %w", err)
		}

		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		lastAppID = page[len(page)-1]
	}
}
