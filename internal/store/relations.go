// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/picsync/internal/logging"
	"github.com/tomtom215/picsync/internal/models"
)

// steamDeckCategoryNames maps the extractor's numeric category to the
// store's enum labels.
var steamDeckCategoryNames = map[models.SteamDeckCategory]string{
	models.SteamDeckUnknown:     "unknown",
	models.SteamDeckUnsupported: "unsupported",
	models.SteamDeckPlayable:    "playable",
	models.SteamDeckVerified:    "verified",
}

// syncAppRelations rewrites every relation table for one app. Each
// sub-step logs its own failure and does not abort the others; the
// return value is true only if every sub-step succeeded, which is the
// gate for the sync_status.last_pics_sync bump.
func (s *Store) syncAppRelations(ctx context.Context, app models.ExtractedApp) bool {
	ok := true

	if app.SteamDeck != nil {
		if err := s.upsertSteamDeck(ctx, app.AppID, app.SteamDeck); err != nil {
			logging.Error().Err(err).Uint32("appid", app.AppID).Msg("store: steam deck sync failed")
			ok = false
		}
	}
	if err := s.syncCategories(ctx, app.AppID, app.Categories); err != nil {
		logging.Error().Err(err).Uint32("appid", app.AppID).Msg("store: category sync failed")
		ok = false
	}
	if err := s.syncGenres(ctx, app.AppID, app.Genres, app.PrimaryGenre); err != nil {
		logging.Error().Err(err).Uint32("appid", app.AppID).Msg("store: genre sync failed")
		ok = false
	}
	if err := s.syncStoreTags(ctx, app.AppID, app.StoreTags); err != nil {
		logging.Error().Err(err).Uint32("appid", app.AppID).Msg("store: tag sync failed")
		ok = false
	}
	if err := s.syncFranchises(ctx, app.AppID, app.Associations); err != nil {
		logging.Error().Err(err).Uint32("appid", app.AppID).Msg("store: franchise sync failed")
		ok = false
	}
	if err := s.syncDLC(ctx, app.AppID, app.DLCAppIDs); err != nil {
		logging.Error().Err(err).Uint32("appid", app.AppID).Msg("store: dlc sync failed")
		ok = false
	}

	return ok
}

func (s *Store) upsertSteamDeck(ctx context.Context, appID uint32, deck *models.SteamDeckCompatibility) error {
	category, ok := steamDeckCategoryNames[deck.Category]
	if !ok {
		category = steamDeckCategoryNames[models.SteamDeckUnknown]
	}

	var testTimestamp any
	if deck.TestTimestamp != nil {
		testTimestamp = *deck.TestTimestamp
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_steam_deck (appid, category, test_timestamp, tested_build_id, tests, updated_at)
		VALUES ($1, $2, to_timestamp($3), $4, $5, now())
		ON CONFLICT (appid) DO UPDATE SET
			category = EXCLUDED.category,
			test_timestamp = EXCLUDED.test_timestamp,
			tested_build_id = EXCLUDED.tested_build_id,
			tests = EXCLUDED.tests,
			updated_at = EXCLUDED.updated_at
	`, appID, category, testTimestamp, nullableString(deck.TestedBuildID), jsonOrNil(deck.Tests))
	return err
}

// syncCategories deletes and re-inserts app_categories for appID,
// upserting the enabled category ids into steam_categories first so the
// junction insert never violates a foreign key.
func (s *Store) syncCategories(ctx context.Context, appID uint32, categories map[int64]bool) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM app_categories WHERE appid = $1`, appID); err != nil {
		return err
	}

	var enabled []int64
	for id, on := range categories {
		if on {
			enabled = append(enabled, id)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	lookup := &pgx.Batch{}
	for _, id := range enabled {
		lookup.Queue(`
			INSERT INTO steam_categories (category_id, name)
			VALUES ($1, $2)
			ON CONFLICT (category_id) DO UPDATE SET name = EXCLUDED.name
		`, id, categoryName(id))
	}
	if err := execBatch(ctx, s.pool, lookup); err != nil {
		return err
	}

	junction := &pgx.Batch{}
	for _, id := range enabled {
		junction.Queue(`INSERT INTO app_categories (appid, category_id) VALUES ($1, $2)`, appID, id)
	}
	return execBatch(ctx, s.pool, junction)
}

// syncGenres mirrors syncCategories, additionally stamping is_primary for
// the appid/genre_id pair matching PrimaryGenre.
func (s *Store) syncGenres(ctx context.Context, appID uint32, genres []int64, primary *int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM app_genres WHERE appid = $1`, appID); err != nil {
		return err
	}
	if len(genres) == 0 {
		return nil
	}

	lookup := &pgx.Batch{}
	for _, id := range genres {
		lookup.Queue(`
			INSERT INTO steam_genres (genre_id, name)
			VALUES ($1, $2)
			ON CONFLICT (genre_id) DO UPDATE SET name = EXCLUDED.name
		`, id, genreName(id))
	}
	if err := execBatch(ctx, s.pool, lookup); err != nil {
		return err
	}

	junction := &pgx.Batch{}
	for _, id := range genres {
		isPrimary := primary != nil && id == *primary
		junction.Queue(`INSERT INTO app_genres (appid, genre_id, is_primary) VALUES ($1, $2, $3)`, appID, id, isPrimary)
	}
	return execBatch(ctx, s.pool, junction)
}

// syncStoreTags mirrors syncCategories, additionally inserting each tag's
// rank: its 0-based position in tagIDs, which the extractor preserves from
// the upstream record's key-insertion order.
func (s *Store) syncStoreTags(ctx context.Context, appID uint32, tagIDs []int64) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM app_steam_tags WHERE appid = $1`, appID); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}

	lookup := &pgx.Batch{}
	for _, id := range tagIDs {
		lookup.Queue(`
			INSERT INTO steam_tags (tag_id, name, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (tag_id) DO UPDATE SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		`, id, s.tagNames.get(id))
	}
	if err := execBatch(ctx, s.pool, lookup); err != nil {
		return err
	}

	junction := &pgx.Batch{}
	for rank, id := range tagIDs {
		junction.Queue(`INSERT INTO app_steam_tags (appid, tag_id, rank) VALUES ($1, $2, $3)`, appID, id, rank)
	}
	return execBatch(ctx, s.pool, junction)
}

// syncFranchises upserts each franchise association through the
// store-side upsert_franchise(name) routine, then links it to appID.
func (s *Store) syncFranchises(ctx context.Context, appID uint32, associations []models.Association) error {
	var lastErr error
	for _, assoc := range associations {
		if assoc.Kind != models.AssociationFranchise {
			continue
		}
		var franchiseID int64
		err := s.pool.QueryRow(ctx, `SELECT upsert_franchise($1)`, assoc.Name).Scan(&franchiseID)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO app_franchises (appid, franchise_id)
			VALUES ($1, $2)
			ON CONFLICT (appid, franchise_id) DO NOTHING
		`, appID, franchiseID)
		if err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// syncDLC upserts one app_dlc row per dlc_appid. There is deliberately no
// foreign key to apps here: a DLC can be announced in its parent's PICS
// record before its own row exists.
func (s *Store) syncDLC(ctx context.Context, parentAppID uint32, dlcAppIDs []int64) error {
	if len(dlcAppIDs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, dlcID := range dlcAppIDs {
		batch.Queue(`
			INSERT INTO app_dlc (parent_appid, dlc_appid, source)
			VALUES ($1, $2, 'pics')
			ON CONFLICT (parent_appid, dlc_appid) DO UPDATE SET source = EXCLUDED.source
		`, parentAppID, dlcID)
	}
	return execBatch(ctx, s.pool, batch)
}

// execBatch sends b and returns the first error encountered across its
// queued statements, closing the batch either way.
func execBatch(ctx context.Context, q Querier, b *pgx.Batch) error {
	results := q.SendBatch(ctx, b)
	var firstErr error
	for i := 0; i < b.Len(); i++ {
		if _, err := results.Exec(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := results.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
