package structs

import "fmt"

// Known card types. These match the SVG generator families; extra stat
// cards carry a variant (genres, tags, voiceActors, studios, staff)
// selecting which breakdown is drawn.
const (
	CardAnimeStats      = "animeStats"
	CardSocialStats     = "socialStats"
	CardMangaStats      = "mangaStats"
	CardExtraAnimeStats = "extraAnimeStats"
	CardExtraMangaStats = "extraMangaStats"
)

// DefaultCardTypes is the set rendered when a request does not name any.
var DefaultCardTypes = []string{
	CardAnimeStats,
	CardSocialStats,
	CardMangaStats,
	CardExtraAnimeStats,
}

// ValidCardType reports whether t names a known card family.
func ValidCardType(t string) bool {
	switch t {
	case CardAnimeStats, CardSocialStats, CardMangaStats,
		CardExtraAnimeStats, CardExtraMangaStats:
		return true
	}
	return false
}

// CardConfig is the per-user card configuration captured when the user
// first generated their cards. It is derived data: it is deleted together
// with the record when a user is evicted.
type CardConfig struct {
	CardTypes []string `json:"cardTypes"`
	Variant   string   `json:"variant,omitempty"`
	Colors    []string `json:"colors,omitempty"`
}

// RefreshSummary is the sole output of one refresh cycle.
type RefreshSummary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Removed   int `json:"removed"`
}

// Message formats the cycle result for the trigger response.
func (s RefreshSummary) Message() string {
	return fmt.Sprintf("Updated %d/%d users successfully. Failed: %d, Removed: %d",
		s.Succeeded, s.Attempted, s.Failed, s.Removed)
}

// WarmStats summarises one cache warm cycle over the full
// users x cardTypes product.
type WarmStats struct {
	AttemptedCount int `json:"attemptedCount"`
	SuccessCount   int `json:"successCount"`
	FailureCount   int `json:"failureCount"`
}
