// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package extract

import (
	"testing"

	"github.com/tomtom215/picsync/internal/models"
)

func om(pairs ...any) *models.OrderedMap {
	m := models.NewOrderedMap()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

func TestExtract_NameTypeAndAssociations(t *testing.T) {
	raw := om("appinfo", om(
		"common", om(
			"name", "Half-Life 3",
			"type", "game",
			"developer", "Valve",
			"publisher", "Valve",
			"associations", om(
				"0", om("type", "franchise", "name", "Half-Life"),
			),
		),
	))

	app := Extract(70, raw)

	if app.AppID != 70 {
		t.Fatalf("AppID = %d, want 70", app.AppID)
	}
	if app.Name != "Half-Life 3" {
		t.Fatalf("Name = %q, want Half-Life 3", app.Name)
	}
	if app.Type != "game" {
		t.Fatalf("Type = %q, want game", app.Type)
	}

	wantKinds := map[models.AssociationKind]string{
		models.AssociationDeveloper: "Valve",
		models.AssociationPublisher: "Valve",
		models.AssociationFranchise: "Half-Life",
	}
	if len(app.Associations) != len(wantKinds) {
		t.Fatalf("Associations = %v, want %d entries", app.Associations, len(wantKinds))
	}
	for _, a := range app.Associations {
		if wantKinds[a.Kind] != a.Name {
			t.Errorf("unexpected association %+v", a)
		}
	}
}

func TestExtract_NameFallsBackToExtended(t *testing.T) {
	raw := om("appinfo", om(
		"common", om("type", "game"),
		"extended", om("name", "Fallback Title"),
	))

	app := Extract(1, raw)
	if app.Name != "Fallback Title" {
		t.Fatalf("Name = %q, want Fallback Title", app.Name)
	}
}

func TestExtract_MissingFieldsNeverPanics(t *testing.T) {
	app := Extract(42, om())
	if app.AppID != 42 {
		t.Fatalf("AppID = %d, want 42", app.AppID)
	}
	if app.Name != "" || app.SteamDeck != nil || app.SteamReleaseDate != nil {
		t.Fatalf("expected zero-valued ExtractedApp for empty input, got %+v", app)
	}
}

func TestExtract_StoreTagsPreserveOrder(t *testing.T) {
	raw := om("appinfo", om(
		"common", om(
			"store_tags", om("0", int64(19), "1", int64(3871), "2", int64(492)),
		),
	))

	app := Extract(1, raw)
	want := []int64{19, 3871, 492}
	if len(app.StoreTags) != len(want) {
		t.Fatalf("StoreTags = %v, want %v", app.StoreTags, want)
	}
	for i, id := range want {
		if app.StoreTags[i] != id {
			t.Errorf("StoreTags[%d] = %d, want %d", i, app.StoreTags[i], id)
		}
	}
}

func TestExtract_CategoriesParseBooleanFlags(t *testing.T) {
	raw := om("appinfo", om(
		"common", om(
			"category", om("category_1", "1", "category_2", "0", "not_a_category", "1"),
		),
	))

	app := Extract(1, raw)
	if !app.Categories[1] {
		t.Errorf("Categories[1] = false, want true")
	}
	if app.Categories[2] {
		t.Errorf("Categories[2] = true, want false")
	}
	if _, ok := app.Categories[0]; ok {
		t.Errorf("unexpected category parsed from non-category key")
	}
}

func TestExtract_SteamDeckUnknownCategoryOutOfRange(t *testing.T) {
	raw := om("appinfo", om(
		"common", om("steam_deck_compatibility", om("category", int64(99))),
	))

	app := Extract(1, raw)
	if app.SteamDeck == nil {
		t.Fatal("expected non-nil SteamDeck")
	}
	if app.SteamDeck.Category != models.SteamDeckUnknown {
		t.Errorf("Category = %v, want SteamDeckUnknown for out-of-range input", app.SteamDeck.Category)
	}
}

func TestExtract_DLCListParsesAndSkipsInvalid(t *testing.T) {
	raw := om("appinfo", om(
		"extended", om("listofdlc", "100,abc, 200 ,"),
	))

	app := Extract(1, raw)
	want := []int64{100, 200}
	if len(app.DLCAppIDs) != len(want) {
		t.Fatalf("DLCAppIDs = %v, want %v", app.DLCAppIDs, want)
	}
	for i := range want {
		if app.DLCAppIDs[i] != want[i] {
			t.Errorf("DLCAppIDs[%d] = %d, want %d", i, app.DLCAppIDs[i], want[i])
		}
	}
}

func TestExtract_PlatformsTrimsAndDropsEmpty(t *testing.T) {
	raw := om("appinfo", om("common", om("oslist", "windows, mac,, linux ")))
	app := Extract(1, raw)
	want := []string{"windows", "mac", "linux"}
	if len(app.Platforms) != len(want) {
		t.Fatalf("Platforms = %v, want %v", app.Platforms, want)
	}
	for i := range want {
		if app.Platforms[i] != want[i] {
			t.Errorf("Platforms[%d] = %q, want %q", i, app.Platforms[i], want[i])
		}
	}
}

func TestExtract_BuildInfoFromDepotsPublicBranch(t *testing.T) {
	raw := om("appinfo", om(
		"depots", om(
			"branches", om(
				"public", om("buildid", "12345", "timeupdated", int64(1700000000)),
			),
		),
	))

	app := Extract(1, raw)
	if app.CurrentBuildID != "12345" {
		t.Fatalf("CurrentBuildID = %q, want 12345", app.CurrentBuildID)
	}
	if app.LastUpdateTimestamp == nil {
		t.Fatal("expected non-nil LastUpdateTimestamp")
	}
}

func TestExtract_UnwrapsAppinfoWrapperWhenPresent(t *testing.T) {
	wrapped := om("appinfo", om("common", om("name", "Wrapped")))
	unwrapped := om("common", om("name", "Unwrapped"))

	if got := Extract(1, wrapped); got.Name != "Wrapped" {
		t.Errorf("wrapped Name = %q, want Wrapped", got.Name)
	}
	if got := Extract(1, unwrapped); got.Name != "Unwrapped" {
		t.Errorf("unwrapped Name = %q, want Unwrapped", got.Name)
	}
}
