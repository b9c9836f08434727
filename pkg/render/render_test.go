package render

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicards-project/anicards/pkg/common/structs"
)

func TestStyleFingerprint(t *testing.T) {
	t.Run("Stable_For_Identical_Inputs", func(t *testing.T) {
		a := StyleFingerprint("dark", []string{"#fe428e", "#141321"})
		b := StyleFingerprint("dark", []string{"#FE428E", "#141321"})
		assert.Equal(t, a, b, "color case must not change the fingerprint")
	})

	t.Run("Differs_By_Variant", func(t *testing.T) {
		assert.NotEqual(t, StyleFingerprint("dark", nil), StyleFingerprint("light", nil))
	})

	t.Run("Differs_By_Colors", func(t *testing.T) {
		assert.NotEqual(t,
			StyleFingerprint("dark", []string{"#111"}),
			StyleFingerprint("dark", []string{"#222"}))
	})

	t.Run("Empty_Variant_Is_Default", func(t *testing.T) {
		assert.Equal(t, StyleFingerprint("", nil), StyleFingerprint(DefaultVariant, nil))
	})

	t.Run("Nil_Config_Is_Default", func(t *testing.T) {
		assert.Equal(t, StyleFingerprint(DefaultVariant, nil), ConfigFingerprint(nil))
	})
}

func TestSVGRenderer(t *testing.T) {
	renderer := NewSVGRenderer()
	ctx := context.Background()

	record := &structs.UserRecord{
		UserID: 1,
		Meta:   &structs.MetaPart{UserID: 1, Username: "alice"},
		Stats:  &structs.StatsPart{TotalFollowers: 3},
		Statistics: &structs.StatisticsPart{
			Anime: &structs.AnimeStatistics{
				Count:  10,
				Genres: []structs.NamedCount{{Name: "Action", Count: 7}},
			},
		},
	}

	t.Run("Renders_Every_Known_Card_Type", func(t *testing.T) {
		for _, cardType := range []string{
			structs.CardAnimeStats, structs.CardSocialStats, structs.CardMangaStats,
			structs.CardExtraAnimeStats, structs.CardExtraMangaStats,
		} {
			artifact, err := renderer.Render(ctx, record, cardType, DefaultVariant, "")
			require.NoError(t, err, cardType)
			assert.Contains(t, string(artifact), "<svg", cardType)
			assert.Contains(t, string(artifact), "alice", cardType)
		}
	})

	t.Run("Nil_Parts_Render_As_Zero", func(t *testing.T) {
		sparse := &structs.UserRecord{
			UserID: 2,
			Meta:   &structs.MetaPart{UserID: 2, Username: "bob"},
		}
		artifact, err := renderer.Render(ctx, sparse, structs.CardMangaStats, DefaultVariant, "")
		require.NoError(t, err)
		assert.Contains(t, string(artifact), "Manga read: 0")
	})

	t.Run("Unknown_Card_Type_Errors", func(t *testing.T) {
		_, err := renderer.Render(ctx, record, "bogus", DefaultVariant, "")
		assert.Error(t, err)
	})

	t.Run("Missing_Meta_Errors", func(t *testing.T) {
		_, err := renderer.Render(ctx, &structs.UserRecord{UserID: 3}, structs.CardAnimeStats, DefaultVariant, "")
		assert.Error(t, err)
	})
}
