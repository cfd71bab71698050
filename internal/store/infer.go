// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package store

import "strings"

// inferType guesses an app's catalog type from its name when PICS supplied
// none. DLC is deliberately never inferred here — common.parent is
// unreliable, so DLC type comes only from the storefront ingester's
// fullgame field.
func inferType(name string) string {
	if name == "" {
		return "game"
	}
	lower := strings.ToLower(name)

	if isDemo(lower) {
		return "demo"
	}
	if containsAny(lower, "soundtrack", " ost", "original score", "music pack") {
		return "music"
	}
	if containsAny(lower, " sdk", "dedicated server", "level editor", "modding tool") {
		return "tool"
	}
	if containsAny(lower, "trailer", "- video", "making of", "behind the scenes") {
		return "video"
	}
	return "game"
}

func isDemo(lower string) bool {
	looksLikeDemo := strings.Contains(lower, " demo") ||
		strings.HasSuffix(lower, " demo") ||
		strings.Contains(lower, "(demo)") ||
		strings.Contains(lower, "[demo]")
	if !looksLikeDemo {
		return false
	}
	return !containsAny(lower, "demon", "democracy", "demolition")
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
