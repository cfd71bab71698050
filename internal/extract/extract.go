// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package extract implements the C3 Extractor: a pure function that turns
// one raw, tag-oriented PICS app record into a typed models.ExtractedApp.
//
// Grounded on original_source/services/pics-service/src/extractors/common.py
// (PICSExtractor.extract and its _extract_* helpers); every rule below
// mirrors that file's defensive, never-throw behavior.
package extract

import (
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/picsync/internal/logging"
	"github.com/tomtom215/picsync/internal/models"
)

// Extract converts raw into a models.ExtractedApp for appid. It never
// panics: every malformed or missing upstream field degrades to the zero
// value for that field instead of aborting the whole record.
func Extract(appID uint32, raw *models.RawAppInfo) models.ExtractedApp {
	appinfo := raw
	if wrapped, ok := asMap(get(raw, "appinfo")); ok {
		appinfo = wrapped
	}

	common, _ := asMap(get(appinfo, "common"))
	extended, _ := asMap(get(appinfo, "extended"))
	config, _ := asMap(get(appinfo, "config"))
	depots, _ := asMap(get(appinfo, "depots"))

	logging.Debug().
		Uint32("appid", appID).
		Any("raw_keys", firstN(raw.Keys(), 5)).
		Any("common_keys", firstN(common.Keys(), 10)).
		Any("common_type", get(common, "type")).
		Msg("extractor: raw record shape")

	app := models.ExtractedApp{
		AppID: appID,
		Name:  asString(get(common, "name")),
		Type:  asString(get(common, "type")),
	}

	app.Associations = extractAssociations(get(common, "associations"))
	app.ParentAppID = safeInt64(get(common, "parent"))
	app.DLCAppIDs = parseDLCList(asString(get(extended, "listofdlc")))

	app.SteamReleaseDate = parseTimestamp(get(common, "steam_release_date"))
	app.OriginalReleaseDate = parseTimestamp(get(common, "original_release_date"))
	app.StoreAssetMtime = parseTimestamp(get(common, "store_asset_mtime"))

	app.ReleaseState = asString(get(common, "releasestate"))

	buildID, updateTS := extractBuildInfo(depots)
	app.CurrentBuildID = buildID
	app.LastUpdateTimestamp = updateTS

	app.ReviewScore = safeInt64(get(common, "review_score"))
	app.ReviewPercentage = safeInt64(get(common, "review_percentage"))
	app.MetacriticScore = safeInt64(get(common, "metacritic_score"))
	app.MetacriticURL = asString(get(common, "metacritic_url"))

	app.StoreTags = extractTagIDs(get(common, "store_tags"))
	app.Genres = extractTagIDs(get(common, "genres"))
	app.PrimaryGenre = safeInt64(get(common, "primary_genre"))

	app.Categories = extractCategories(get(common, "category"))

	app.Platforms = parsePlatforms(asString(get(common, "oslist")))
	app.ControllerSupport = asString(get(common, "controller_support"))
	app.SteamDeck = extractSteamDeck(get(common, "steam_deck_compatibility"))

	_, hasWorkshop := getOK(config, "workshop")
	app.HasWorkshop = hasWorkshop || asString(get(common, "workshop_visible")) == "1"
	app.IsFree = asString(get(common, "isfreeapp")) == "1"

	if cd, ok := asMap(get(common, "content_descriptors")); ok {
		app.ContentDescriptors = orderedToPlainMap(cd)
	}
	if langs, ok := asMap(get(common, "languages")); ok {
		app.Languages = orderedToPlainMap(langs)
	}

	app.HomepageURL = firstNonEmpty(asString(get(extended, "homepage")), asString(get(extended, "developer_url")))
	if app.Name == "" {
		app.Name = asString(get(extended, "name"))
	}

	app.AppState = asString(get(extended, "state"))

	// developer/publisher prefer common, fall back to extended.
	if dev := firstNonEmpty(asString(get(common, "developer")), asString(get(extended, "developer"))); dev != "" {
		app.Associations = append(app.Associations, models.Association{Kind: models.AssociationDeveloper, Name: dev})
	}
	if pub := firstNonEmpty(asString(get(common, "publisher")), asString(get(extended, "publisher"))); pub != "" {
		app.Associations = append(app.Associations, models.Association{Kind: models.AssociationPublisher, Name: pub})
	}

	return app
}

// firstN mirrors the original extractor's debug log, which truncates key
// lists to keep log lines short.
func firstN(keys []string, n int) []string {
	if len(keys) > n {
		return keys[:n]
	}
	return keys
}

func get(m *models.RawAppInfo, key string) any {
	v, _ := getOK(m, key)
	return v
}

func getOK(m *models.RawAppInfo, key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	return m.Get(key)
}

func asMap(v any) (*models.RawAppInfo, bool) {
	om, ok := v.(*models.OrderedMap)
	if !ok {
		return nil, false
	}
	return om, true
}

func asString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// safeInt64 mirrors _safe_int: any conversion failure yields nil, never an
// error.
func safeInt64(v any) *int64 {
	n, ok := toInt64(v)
	if !ok {
		return nil
	}
	return &n
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// parseTimestamp mirrors _parse_timestamp: Unix seconds in, *time.Time out,
// nil on any malformed value.
func parseTimestamp(v any) *time.Time {
	n, ok := toInt64(v)
	if !ok || n <= 0 {
		return nil
	}
	t := time.Unix(n, 0).UTC()
	return &t
}

// extractAssociations mirrors _extract_associations: iterate the
// associations sub-record's values in upstream order, keep entries
// carrying both a type and a name key.
func extractAssociations(v any) []models.Association {
	m, ok := asMap(v)
	if !ok {
		return nil
	}

	var out []models.Association
	for _, entry := range m.Values() {
		entryMap, ok := asMap(entry)
		if !ok {
			continue
		}
		kind := asString(get(entryMap, "type"))
		name := asString(get(entryMap, "name"))
		if kind == "" || name == "" {
			continue
		}
		out = append(out, models.Association{Kind: models.AssociationKind(kind), Name: name})
	}
	return out
}

// parseDLCList mirrors _parse_dlc_list: split on comma, safe-int each,
// drop invalid entries silently.
func parseDLCList(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		if n, ok := toInt64(strings.TrimSpace(part)); ok {
			out = append(out, n)
		}
	}
	return out
}

// extractTagIDs mirrors _extract_tag_ids: iterate the mapping's values in
// insertion order, safe-int each, skip failures. Order is load-bearing —
// it becomes tag rank downstream.
func extractTagIDs(v any) []int64 {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	var out []int64
	for _, value := range m.Values() {
		if n, ok := toInt64(value); ok {
			out = append(out, n)
		}
	}
	return out
}

// extractCategories mirrors _extract_categories: keys of the form
// "category_<N>" become (N -> value=="1").
func extractCategories(v any) map[int64]bool {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	out := make(map[int64]bool)
	for _, key := range m.Keys() {
		id, ok := strings.CutPrefix(key, "category_")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		value, _ := m.Get(key)
		out[n] = asString(value) == "1"
	}
	return out
}

// parsePlatforms mirrors _parse_platforms: split on comma, trim, lowercase,
// drop empties.
func parsePlatforms(oslist string) []string {
	if oslist == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(oslist, ",") {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// extractSteamDeck builds the optional steam_deck_compatibility sub-record.
// A category outside 0..3 coerces to SteamDeckUnknown.
func extractSteamDeck(v any) *models.SteamDeckCompatibility {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	category := models.SteamDeckUnknown
	if n, ok := toInt64(get(m, "category")); ok && n >= 0 && n <= 3 {
		category = models.SteamDeckCategory(n)
	}
	deck := &models.SteamDeckCompatibility{
		Category:      category,
		TestTimestamp: safeInt64(get(m, "test_timestamp")),
		TestedBuildID: asString(get(m, "tested_build_id")),
	}
	if tests, ok := asMap(get(m, "tests")); ok {
		deck.Tests = orderedToPlainMap(tests)
	}
	return deck
}

// extractBuildInfo mirrors _extract_build_id/_extract_last_update: both
// come from depots.branches.public and both fail closed to nil on any
// shape mismatch.
func extractBuildInfo(depots *models.RawAppInfo) (string, *time.Time) {
	branches, ok := asMap(get(depots, "branches"))
	if !ok {
		return "", nil
	}
	public, ok := asMap(get(branches, "public"))
	if !ok {
		return "", nil
	}
	return asString(get(public, "buildid")), parseTimestamp(get(public, "timeupdated"))
}

// orderedToPlainMap flattens an OrderedMap into map[string]any for fields
// that are preserved verbatim rather than order-sensitively enumerated
// (content_descriptors, languages, steam_deck tests).
func orderedToPlainMap(m *models.RawAppInfo) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		out[k] = v
	}
	return out
}
