package render

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/anicards-project/anicards/pkg/common/structs"
)

// SVGRenderer is the built-in minimal renderer. It draws a plain stat
// summary card; richer templates can replace it behind the Renderer
// interface without touching the cache or warm logic.
type SVGRenderer struct{}

var _ Renderer = (*SVGRenderer)(nil)

// NewSVGRenderer returns the built-in renderer.
func NewSVGRenderer() *SVGRenderer {
	return &SVGRenderer{}
}

// Render draws a simple card for the requested type. Unknown card types
// are an error; nil parts render as zero values.
func (r *SVGRenderer) Render(_ context.Context, record *structs.UserRecord, cardType, _, _ string) ([]byte, error) {
	if record == nil || record.Meta == nil {
		return nil, fmt.Errorf("render: record has no meta")
	}

	var lines []string
	switch cardType {
	case structs.CardAnimeStats:
		stats := animeStats(record)
		lines = []string{
			fmt.Sprintf("Anime watched: %d", stats.Count),
			fmt.Sprintf("Episodes: %d", stats.EpisodesWatched),
			fmt.Sprintf("Minutes: %d", stats.MinutesWatched),
			fmt.Sprintf("Mean score: %.1f", stats.MeanScore),
		}
	case structs.CardMangaStats:
		stats := mangaStats(record)
		lines = []string{
			fmt.Sprintf("Manga read: %d", stats.Count),
			fmt.Sprintf("Chapters: %d", stats.ChaptersRead),
			fmt.Sprintf("Volumes: %d", stats.VolumesRead),
			fmt.Sprintf("Mean score: %.1f", stats.MeanScore),
		}
	case structs.CardSocialStats:
		stats := socialStats(record)
		lines = []string{
			fmt.Sprintf("Followers: %d", stats.TotalFollowers),
			fmt.Sprintf("Following: %d", stats.TotalFollowing),
			fmt.Sprintf("Activity: %d", stats.TotalActivity),
			fmt.Sprintf("Reviews: %d", stats.TotalReviews),
		}
	case structs.CardExtraAnimeStats:
		lines = breakdownLines(animeStats(record).Genres)
	case structs.CardExtraMangaStats:
		lines = breakdownLines(mangaStats(record).Genres)
	default:
		return nil, fmt.Errorf("render: unknown card type %q", cardType)
	}

	return buildSVG(record.Meta.Username, cardType, lines), nil
}

func animeStats(record *structs.UserRecord) *structs.AnimeStatistics {
	if record.Statistics != nil && record.Statistics.Anime != nil {
		return record.Statistics.Anime
	}
	return &structs.AnimeStatistics{}
}

func mangaStats(record *structs.UserRecord) *structs.MangaStatistics {
	if record.Statistics != nil && record.Statistics.Manga != nil {
		return record.Statistics.Manga
	}
	return &structs.MangaStatistics{}
}

func socialStats(record *structs.UserRecord) *structs.StatsPart {
	if record.Stats != nil {
		return record.Stats
	}
	return &structs.StatsPart{}
}

func breakdownLines(counts []structs.NamedCount) []string {
	if len(counts) == 0 {
		return []string{"No data yet"}
	}
	lines := make([]string, 0, len(counts))
	for _, c := range counts {
		lines = append(lines, fmt.Sprintf("%s: %d", c.Name, c.Count))
	}
	return lines
}

func buildSVG(username, cardType string, lines []string) []byte {
	var b strings.Builder
	height := 60 + 22*len(lines)
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="320" height="%d" viewBox="0 0 320 %d">`, height, height)
	b.WriteString(`<rect width="100%" height="100%" rx="8" fill="#151f2e"/>`)
	fmt.Fprintf(&b, `<text x="16" y="28" fill="#60a5fa" font-size="16" font-family="sans-serif">%s - %s</text>`,
		html.EscapeString(username), html.EscapeString(cardType))
	for i, line := range lines {
		fmt.Fprintf(&b, `<text x="16" y="%d" fill="#e2e8f0" font-size="13" font-family="sans-serif">%s</text>`,
			54+22*i, html.EscapeString(line))
	}
	b.WriteString(`</svg>`)
	return []byte(b.String())
}
