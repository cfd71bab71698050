// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package store

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/picsync/internal/models"
)

func extractedApp() models.ExtractedApp {
	releaseDate := time.Unix(1700000000, 0).UTC()
	return models.ExtractedApp{
		AppID:            440,
		Name:             "Team Fortress 2",
		Type:             "game",
		SteamReleaseDate: &releaseDate,
		IsFree:           true,
		ReleaseState:     "released",
		Platforms:        []string{"windows", "mac", "linux"},
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"", "game"},
		{"Half-Life 2", "game"},
		{"Portal 2 Demo", "demo"},
		{"Awesome Game (Demo)", "demo"},
		{"Demonologist", "game"},
		{"Democracy 4", "game"},
		{"Original Soundtrack", "music"},
		{"Game OST", "music"},
		{"Source SDK", "tool"},
		{"Dedicated Server", "tool"},
		{"Official Trailer", "video"},
	}
	for _, tt := range tests {
		if got := inferType(tt.name); got != tt.want {
			t.Errorf("inferType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMapAppType(t *testing.T) {
	if got := mapAppType(""); got != "game" {
		t.Errorf("mapAppType(\"\") = %q, want game", got)
	}
	if got := mapAppType("DLC"); got != "dlc" {
		t.Errorf("mapAppType(DLC) = %q, want dlc", got)
	}
	if got := mapAppType("unknown-thing"); got != "game" {
		t.Errorf("mapAppType(unrecognized) = %q, want game fallback", got)
	}
}

func TestGenreAndCategoryNameFallback(t *testing.T) {
	if got := genreName(1); got != "Action" {
		t.Errorf("genreName(1) = %q, want Action", got)
	}
	if got := genreName(9999); got != "Genre 9999" {
		t.Errorf("genreName(unknown) = %q, want synthesized fallback", got)
	}
	if got := categoryName(2); got != "Single-player" {
		t.Errorf("categoryName(2) = %q, want Single-player", got)
	}
	if got := categoryName(9999); got != "Category 9999" {
		t.Errorf("categoryName(unknown) = %q, want synthesized fallback", got)
	}
}

func TestNullableString(t *testing.T) {
	if v := nullableString(""); v != nil {
		t.Errorf("nullableString(\"\") = %v, want nil", v)
	}
	if v := nullableString("x"); v != "x" {
		t.Errorf("nullableString(x) = %v, want x", v)
	}
}

func TestJoinPlatforms(t *testing.T) {
	if got := joinPlatforms([]string{"windows", "mac"}); got != "windows,mac" {
		t.Errorf("joinPlatforms = %q", got)
	}
	if got := joinPlatforms(nil); got != "" {
		t.Errorf("joinPlatforms(nil) = %q, want empty", got)
	}
}

func TestToInt64Slice(t *testing.T) {
	got := toInt64Slice([]uint32{1, 2, 3})
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("toInt64Slice length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("toInt64Slice[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestBuildAppUpsert_OmitsDateAndFreeFlagsWhenStorefrontAuthoritative(t *testing.T) {
	app := extractedApp()

	query, args := buildAppUpsert(app, true /* hasStorefrontDate */, true /* hasStorefrontSync */)

	if strings.Contains(query, "release_date") {
		t.Errorf("query should omit release_date when storefront already owns it: %s", query)
	}
	if strings.Contains(query, "is_free") || strings.Contains(query, "is_released") {
		t.Errorf("query should omit is_free/is_released once storefront has synced: %s", query)
	}
	if !strings.Contains(query, "ON CONFLICT (appid) DO UPDATE SET") {
		t.Errorf("expected an upsert clause, got: %s", query)
	}
	if args[0] != app.AppID {
		t.Errorf("first arg = %v, want appid %d", args[0], app.AppID)
	}
}

func TestBuildAppUpsert_IncludesDateAndFreeFlagsWhenPICSOwnsThem(t *testing.T) {
	app := extractedApp()

	query, _ := buildAppUpsert(app, false, false)

	if !strings.Contains(query, "release_date") {
		t.Errorf("query should include release_date when storefront hasn't written one: %s", query)
	}
	if !strings.Contains(query, "is_free") || !strings.Contains(query, "is_released") {
		t.Errorf("query should include is_free/is_released when storefront has not synced: %s", query)
	}
}

func TestBuildAppUpsert_OmitsNameWhenEmpty(t *testing.T) {
	app := extractedApp()
	app.Name = ""

	query, _ := buildAppUpsert(app, false, false)
	if strings.Contains(query, "INSERT INTO apps (appid, name") {
		t.Errorf("query should not set name from an empty extracted name: %s", query)
	}
}
