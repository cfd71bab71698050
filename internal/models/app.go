// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package models holds the in-memory shapes that flow between the
// extractor, the persister, and the change monitor / bulk backfill
// drivers.
package models

import "time"

// AssociationKind enumerates the kinds of developer/publisher/franchise
// relationships a PICS record can carry.
type AssociationKind string

const (
	AssociationDeveloper AssociationKind = "developer"
	AssociationPublisher AssociationKind = "publisher"
	AssociationFranchise AssociationKind = "franchise"
	AssociationAward     AssociationKind = "award"
)

// Association is a single (kind, name) pair extracted from a PICS record's
// associations sub-record. Order is preserved as-seen upstream.
type Association struct {
	Kind AssociationKind
	Name string
}

// SteamDeckCategory mirrors the upstream's Deck-compatibility tiers.
type SteamDeckCategory int

const (
	SteamDeckUnknown     SteamDeckCategory = 0
	SteamDeckUnsupported SteamDeckCategory = 1
	SteamDeckPlayable    SteamDeckCategory = 2
	SteamDeckVerified    SteamDeckCategory = 3
)

// SteamDeckCompatibility is the extracted steam_deck_compatibility sub-record.
type SteamDeckCompatibility struct {
	Category      SteamDeckCategory
	TestTimestamp *int64
	TestedBuildID string
	Tests         map[string]any
}

// ExtractedApp is the typed shape the extractor produces from one raw PICS
// app record. Every field is populated defensively: a missing or malformed
// upstream key never aborts extraction, it simply yields the zero value.
type ExtractedApp struct {
	AppID uint32

	Name string // empty when absent upstream
	Type string // empty when the upstream supplied no type at all

	Associations []Association

	// ParentAppID is parsed (so future validation is possible) but is never
	// persisted — see design note on the unreliable common.parent field.
	ParentAppID *int64
	DLCAppIDs   []int64

	SteamReleaseDate    *time.Time
	OriginalReleaseDate *time.Time
	StoreAssetMtime     *time.Time

	ReleaseState string

	LastUpdateTimestamp *time.Time
	CurrentBuildID      string

	ReviewScore      *int64
	ReviewPercentage *int64
	MetacriticScore  *int64
	MetacriticURL    string

	// StoreTags and Genres preserve the upstream mapping's enumeration
	// order; the index within the slice is the tag/genre rank.
	StoreTags []int64
	Genres    []int64

	PrimaryGenre *int64

	// Categories maps category ID to its enabled flag.
	Categories map[int64]bool

	Platforms         []string
	ControllerSupport string
	SteamDeck         *SteamDeckCompatibility

	HasWorkshop bool
	IsFree      bool

	ContentDescriptors map[string]any
	Languages          map[string]any

	HomepageURL string
	AppState    string
}

// ChangeDelta is the result of a successful GetChangesSince call.
type ChangeDelta struct {
	CurrentChangeNumber int64
	AppChanges          []uint32
}

// RawAppInfo is one untyped, tag-oriented PICS app record as returned by
// the upstream's get_product_info call. It may or may not be wrapped in an
// "appinfo" envelope; the extractor unwraps it. It is an alias for
// OrderedMap because several of its sub-records (store_tags, genres,
// associations) are order-sensitive.
type RawAppInfo = OrderedMap
