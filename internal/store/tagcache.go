// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package store

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/picsync/internal/logging"
)

// steamTagsURL is the default tag-name source, supplemented from
// original_source's STEAM_TAGS_URL constant.
const steamTagsURL = "https://store.steampowered.com/tagdata/populartags/english"

const tagFetchTimeout = 30 * time.Second

// tagNameCache is the process-wide tag_id → name lookup, populated once at
// startup. A failed load is non-fatal; lookups degrade to a placeholder.
type tagNameCache struct {
	mu    sync.RWMutex
	names map[int64]string
}

func newTagNameCache() *tagNameCache {
	return &tagNameCache{names: make(map[int64]string)}
}

type steamTagEntry struct {
	TagID int64  `json:"tagid"`
	Name  string `json:"name"`
}

// load fetches tag names once. Failures are logged and leave the cache
// empty, falling back to "Tag <id>" placeholders everywhere.
func (c *tagNameCache) load(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, tagFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, steamTagsURL, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("store: building tag name request failed")
		return
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logging.Warn().Err(err).Msg("store: fetching tag names failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warn().Int("status", resp.StatusCode).Msg("store: tag name endpoint returned non-200")
		return
	}

	var entries []steamTagEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		logging.Warn().Err(err).Msg("store: decoding tag names failed")
		return
	}

	c.mu.Lock()
	for _, e := range entries {
		c.names[e.TagID] = e.Name
	}
	n := len(c.names)
	c.mu.Unlock()

	logging.Info().Int("count", n).Msg("store: loaded Steam tag names")
}

func (c *tagNameCache) get(tagID int64) string {
	c.mu.RLock()
	name, ok := c.names[tagID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("Tag %d", tagID)
	}
	return name
}
