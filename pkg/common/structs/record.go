package structs

import "time"

// Part names of a user record. Each part is persisted under its own key
// (user:{id}:{part}) and is independently readable and writable.
const (
	PartMeta       = "meta"
	PartStats      = "stats"
	PartFavourites = "favourites"
	PartStatistics = "statistics"
	PartPages      = "pages"
	PartPlanning   = "planning"
	PartRewatched  = "rewatched"
	PartCompleted  = "completed"
)

// PartNames lists every part of a user record in storage order.
// PartMeta must stay first: a record exists iff its meta part is present.
var PartNames = []string{
	PartMeta,
	PartStats,
	PartFavourites,
	PartStatistics,
	PartPages,
	PartPlanning,
	PartRewatched,
	PartCompleted,
}

// MetaPart identifies the user. Its presence defines record existence.
type MetaPart struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	SiteURL   string    `json:"siteUrl,omitempty"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// StatsPart holds the social activity totals shown on social cards.
type StatsPart struct {
	TotalFollowers      int `json:"totalFollowers"`
	TotalFollowing      int `json:"totalFollowing"`
	TotalActivity       int `json:"totalActivity"`
	ThreadPostsComments int `json:"threadPostsCommentsCount"`
	TotalReviews        int `json:"totalReviews"`
}

// FavouritesPart lists the user's favourited entities by name.
type FavouritesPart struct {
	Anime      []string `json:"anime,omitempty"`
	Manga      []string `json:"manga,omitempty"`
	Characters []string `json:"characters,omitempty"`
	Staff      []string `json:"staff,omitempty"`
	Studios    []string `json:"studios,omitempty"`
}

// NamedCount is a generic name/count pair used for genre, tag, voice
// actor, studio and staff breakdowns.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AnimeStatistics holds the aggregate anime consumption numbers plus the
// top breakdowns extracted from the upstream response.
type AnimeStatistics struct {
	Count             int          `json:"count"`
	EpisodesWatched   int          `json:"episodesWatched"`
	MinutesWatched    int          `json:"minutesWatched"`
	MeanScore         float64      `json:"meanScore"`
	StandardDeviation float64      `json:"standardDeviation"`
	Genres            []NamedCount `json:"genres,omitempty"`
	Tags              []NamedCount `json:"tags,omitempty"`
	VoiceActors       []NamedCount `json:"voiceActors,omitempty"`
	Studios           []NamedCount `json:"studios,omitempty"`
	Staff             []NamedCount `json:"staff,omitempty"`
}

// MangaStatistics mirrors AnimeStatistics for manga reading habits.
type MangaStatistics struct {
	Count             int          `json:"count"`
	ChaptersRead      int          `json:"chaptersRead"`
	VolumesRead       int          `json:"volumesRead"`
	MeanScore         float64      `json:"meanScore"`
	StandardDeviation float64      `json:"standardDeviation"`
	Genres            []NamedCount `json:"genres,omitempty"`
	Tags              []NamedCount `json:"tags,omitempty"`
	Staff             []NamedCount `json:"staff,omitempty"`
}

// StatisticsPart combines the anime and manga statistic blocks.
type StatisticsPart struct {
	Anime *AnimeStatistics `json:"anime,omitempty"`
	Manga *MangaStatistics `json:"manga,omitempty"`
}

// ActivityDay is one bucket of the upstream activity history.
type ActivityDay struct {
	Date   int64 `json:"date"`
	Amount int   `json:"amount"`
	Level  int   `json:"level"`
}

// PagesPart holds the paged activity history used for heatmap cards.
type PagesPart struct {
	ActivityHistory []ActivityDay `json:"activityHistory,omitempty"`
}

// PlanningPart lists titles on the user's planning list.
type PlanningPart struct {
	Count  int      `json:"count"`
	Titles []string `json:"titles,omitempty"`
}

// RewatchedPart lists titles the user has rewatched.
type RewatchedPart struct {
	Count  int      `json:"count"`
	Titles []string `json:"titles,omitempty"`
}

// CompletedPart lists titles the user has completed.
type CompletedPart struct {
	Count  int      `json:"count"`
	Titles []string `json:"titles,omitempty"`
}

// UserRecord is the reconstructed logical record for one user. Any part
// other than Meta may be nil when it was never written or was lost in a
// partial write; readers must treat nil parts as empty substructures.
type UserRecord struct {
	UserID     int64           `json:"userId"`
	Meta       *MetaPart       `json:"meta"`
	Stats      *StatsPart      `json:"stats,omitempty"`
	Favourites *FavouritesPart `json:"favourites,omitempty"`
	Statistics *StatisticsPart `json:"statistics,omitempty"`
	Pages      *PagesPart      `json:"pages,omitempty"`
	Planning   *PlanningPart   `json:"planning,omitempty"`
	Rewatched  *RewatchedPart  `json:"rewatched,omitempty"`
	Completed  *CompletedPart  `json:"completed,omitempty"`
}

// UserSnapshot is a full fetch result from the upstream API, ready to be
// persisted as one part per key.
type UserSnapshot struct {
	Meta       *MetaPart
	Stats      *StatsPart
	Favourites *FavouritesPart
	Statistics *StatisticsPart
	Pages      *PagesPart
	Planning   *PlanningPart
	Rewatched  *RewatchedPart
	Completed  *CompletedPart
}

// Parts returns the snapshot as a part-name keyed map for persistence.
// Nil parts are included so a refresh overwrites stale data with empty
// substructures rather than leaving the previous cycle's values behind.
func (s *UserSnapshot) Parts() map[string]interface{} {
	return map[string]interface{}{
		PartMeta:       s.Meta,
		PartStats:      s.Stats,
		PartFavourites: s.Favourites,
		PartStatistics: s.Statistics,
		PartPages:      s.Pages,
		PartPlanning:   s.Planning,
		PartRewatched:  s.Rewatched,
		PartCompleted:  s.Completed,
	}
}
