// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/picsync/internal/logging"
	"github.com/tomtom215/picsync/internal/metrics"
	"github.com/tomtom215/picsync/internal/models"
)

const upsertChunkSize = 500

// UpsertAppsBatch is the C4 upsert contract: it writes apps to
// the apps table, enforces source-authority precedence against the
// storefront ingester, syncs each app's relation tables, and advances
// sync_status.last_pics_sync for the apps that made it all the way
// through. apps not already present in the store are skipped entirely —
// this service never creates rows, only the applist worker does.
func (s *Store) UpsertAppsBatch(ctx context.Context, apps []models.ExtractedApp) (UpsertStats, error) {
	start := time.Now()
	var stats UpsertStats
	if len(apps) == 0 {
		return stats, nil
	}

	appIDs := make([]uint32, 0, len(apps))
	for _, a := range apps {
		appIDs = append(appIDs, a.AppID)
	}

	existing, err := s.existingAppIDs(ctx, appIDs)
	if err != nil {
		return stats, fmt.Errorf("store: upsert apps batch: %w", err)
	}

	var surviving []models.ExtractedApp
	for _, a := range apps {
		if existing[a.AppID] {
			surviving = append(surviving, a)
		} else {
			stats.Skipped++
		}
	}
	if len(surviving) == 0 {
		logging.Warn().Int("skipped", stats.Skipped).Msg("store: all apps in batch are unknown to the store")
		metrics.RecordUpsertBatch(time.Since(start), stats.Created, stats.Updated, stats.Failed, stats.Skipped)
		return stats, nil
	}

	survivingIDs := make([]uint32, 0, len(surviving))
	for _, a := range surviving {
		survivingIDs = append(survivingIDs, a.AppID)
	}

	hasStorefrontDate, err := s.appIDsWithStorefrontDate(ctx, survivingIDs)
	if err != nil {
		return stats, fmt.Errorf("store: upsert apps batch: %w", err)
	}
	hasStorefrontSync, err := s.appIDsWithStorefrontSync(ctx, survivingIDs)
	if err != nil {
		return stats, fmt.Errorf("store: upsert apps batch: %w", err)
	}

	appByID := make(map[uint32]models.ExtractedApp, len(surviving))
	for _, a := range surviving {
		appByID[a.AppID] = a
	}

	successfulAppIDs := s.writeAppRows(ctx, surviving, hasStorefrontDate, hasStorefrontSync, &stats)

	var syncedAppIDs []uint32
	for _, appID := range successfulAppIDs {
		app := appByID[appID]
		if s.syncAppRelations(ctx, app) {
			syncedAppIDs = append(syncedAppIDs, appID)
		}
	}
	s.batchUpdateSyncStatus(ctx, syncedAppIDs)

	metrics.RecordUpsertBatch(time.Since(start), stats.Created, stats.Updated, stats.Failed, stats.Skipped)
	return stats, nil
}

// writeAppRows builds and upserts one apps row per surviving app, in
// chunks of upsertChunkSize, each chunk sent as a single pgx.Batch so
// per-app column inclusion (the source-authority rules) can vary within
// one round trip. Returns the appids whose row write succeeded.
func (s *Store) writeAppRows(ctx context.Context, apps []models.ExtractedApp, hasStorefrontDate, hasStorefrontSync map[uint32]bool, stats *UpsertStats) []uint32 {
	var successful []uint32

	for start := 0; start < len(apps); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(apps) {
			end = len(apps)
		}
		chunk := apps[start:end]

		batch := &pgx.Batch{}
		for _, app := range chunk {
			query, args := buildAppUpsert(app, hasStorefrontDate[app.AppID], hasStorefrontSync[app.AppID])
			batch.Queue(query, args...)
		}

		results := s.pool.SendBatch(ctx, batch)
		for _, app := range chunk {
			_, err := results.Exec()
			if err != nil {
				stats.Failed++
				logging.Error().Err(err).Uint32("appid", app.AppID).Msg("store: app upsert failed")
				continue
			}
			stats.Updated++
			successful = append(successful, app.AppID)
		}
		if err := results.Close(); err != nil {
			logStoreErr("write_app_rows_close", err)
		}
	}

	return successful
}

// buildAppUpsert constructs the dynamic INSERT ... ON CONFLICT (appid) DO
// UPDATE for one app, including a column only when the source-authority
// rules allow it:
//   - name: only when non-empty.
//   - type: always (PICS type if present, else the name-based fallback).
//   - release_date: only when the extractor has steam_release_date and the
//     storefront hasn't already written release_date_raw for this app.
//   - is_free / is_released: only when the storefront hasn't synced yet.
//   - everything else: always.
func buildAppUpsert(app models.ExtractedApp, hasStorefrontDate, hasStorefrontSync bool) (string, []any) {
	appType := app.Type
	if appType == "" {
		appType = inferType(app.Name)
	}
	appType = mapAppType(appType)

	cols := []string{"appid"}
	vals := []any{app.AppID}

	add := func(col string, val any) {
		cols = append(cols, col)
		vals = append(vals, val)
	}

	if app.Name != "" {
		add("name", app.Name)
	}
	add("type", appType)
	add("pics_review_score", app.ReviewScore)
	add("pics_review_percentage", app.ReviewPercentage)
	add("controller_support", nullableString(app.ControllerSupport))
	add("metacritic_score", app.MetacriticScore)
	add("metacritic_url", nullableString(app.MetacriticURL))
	add("platforms", nullableString(joinPlatforms(app.Platforms)))
	add("release_state", nullableString(app.ReleaseState))
	add("homepage_url", nullableString(app.HomepageURL))
	add("app_state", nullableString(app.AppState))
	add("last_content_update", app.LastUpdateTimestamp)
	add("store_asset_mtime", app.StoreAssetMtime)
	add("current_build_id", nullableString(app.CurrentBuildID))
	add("content_descriptors", jsonOrNil(app.ContentDescriptors))
	add("languages", jsonOrNil(app.Languages))
	add("has_workshop", app.HasWorkshop)

	if !hasStorefrontSync {
		add("is_free", app.IsFree)
		add("is_released", app.ReleaseState == "released")
	}
	if app.SteamReleaseDate != nil && !hasStorefrontDate {
		add("release_date", app.SteamReleaseDate)
	}
	add("updated_at", "now()")

	var b strings.Builder
	b.WriteString("INSERT INTO apps (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES (")

	setClauses := make([]string, 0, len(cols)-1)
	placeholders := make([]string, len(cols))
	args := make([]any, 0, len(cols))
	argN := 0
	for i, col := range cols {
		if col == "updated_at" {
			placeholders[i] = "now()"
			continue
		}
		argN++
		placeholders[i] = "$" + strconv.Itoa(argN)
		args = append(args, vals[i])
		if col != "appid" {
			setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	setClauses = append(setClauses, "updated_at = now()")

	b.WriteString(strings.Join(placeholders, ", "))
	b.WriteString(") ON CONFLICT (appid) DO UPDATE SET ")
	b.WriteString(strings.Join(setClauses, ", "))

	return b.String(), args
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func jsonOrNil(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}

func joinPlatforms(platforms []string) string {
	return strings.Join(platforms, ",")
}

// toInt64Slice converts appids to int64 for ANY($1) parameters: pgx's
// array codec is keyed by Go element type, and appid columns are signed
// bigint, so a []uint32 would not match the registered int8[] codec.
func toInt64Slice(ids []uint32) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// existingAppIDs returns the subset of ids already present in apps: this
// service never creates app rows.
func (s *Store) existingAppIDs(ctx context.Context, ids []uint32) (map[uint32]bool, error) {
	return s.boolSetQuery(ctx, `SELECT appid FROM apps WHERE appid = ANY($1)`, ids)
}

// appIDsWithStorefrontDate returns the subset of ids whose apps row
// already carries an authoritative storefront release_date_raw.
func (s *Store) appIDsWithStorefrontDate(ctx context.Context, ids []uint32) (map[uint32]bool, error) {
	return s.boolSetQuery(ctx, `SELECT appid FROM apps WHERE appid = ANY($1) AND release_date_raw IS NOT NULL`, ids)
}

// appIDsWithStorefrontSync returns the subset of ids with a non-null
// sync_status.last_storefront_sync.
func (s *Store) appIDsWithStorefrontSync(ctx context.Context, ids []uint32) (map[uint32]bool, error) {
	return s.boolSetQuery(ctx, `SELECT appid FROM sync_status WHERE appid = ANY($1) AND last_storefront_sync IS NOT NULL`, ids)
}

func (s *Store) boolSetQuery(ctx context.Context, query string, ids []uint32) (map[uint32]bool, error) {
	out := make(map[uint32]bool, len(ids))
	rows, err := s.pool.Query(ctx, query, toInt64Slice(ids))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// batchUpdateSyncStatus advances sync_status.last_pics_sync for appids in
// chunks of upsertChunkSize, matching the original's
// _batch_update_sync_status.
func (s *Store) batchUpdateSyncStatus(ctx context.Context, appIDs []uint32) {
	for start := 0; start < len(appIDs); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(appIDs) {
			end = len(appIDs)
		}
		chunk := appIDs[start:end]

		batch := &pgx.Batch{}
		for _, id := range chunk {
			batch.Queue(`
				INSERT INTO sync_status (appid, last_pics_sync)
				VALUES ($1, now())
				ON CONFLICT (appid) DO UPDATE SET last_pics_sync = EXCLUDED.last_pics_sync
			`, id)
		}
		results := s.pool.SendBatch(ctx, batch)
		for _, id := range chunk {
			if _, err := results.Exec(); err != nil {
				logging.Error().Err(err).Uint32("appid", id).Msg("store: sync_status update failed")
			}
		}
		if err := results.Close(); err != nil {
			logStoreErr("batch_update_sync_status_close", err)
		}
	}
}
