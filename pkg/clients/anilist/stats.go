package anilist

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/anicards-project/anicards/pkg/common/structs"
)

// topBreakdownSize caps breakdowns stored per snapshot; the query fetches
// one extra entry so ties at the boundary stay deterministic upstream.
const topBreakdownSize = 5

type namedTitle struct {
	Title struct {
		Romaji string `json:"romaji"`
	} `json:"title"`
}

type fullName struct {
	Name struct {
		Full string `json:"full"`
	} `json:"name"`
}

type pageTotal struct {
	PageInfo struct {
		Total int `json:"total"`
	} `json:"pageInfo"`
}

type mediaListPage struct {
	PageInfo struct {
		Total int `json:"total"`
	} `json:"pageInfo"`
	MediaList []struct {
		Media namedTitle `json:"media"`
	} `json:"mediaList"`
}

type genreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

type tagCount struct {
	Tag struct {
		Name string `json:"name"`
	} `json:"tag"`
	Count int `json:"count"`
}

type voiceActorCount struct {
	VoiceActor fullName `json:"voiceActor"`
	Count      int      `json:"count"`
}

type studioCount struct {
	Studio struct {
		Name string `json:"name"`
	} `json:"studio"`
	Count int `json:"count"`
}

type staffCount struct {
	Staff fullName `json:"staff"`
	Count int      `json:"count"`
}

type statsResponse struct {
	Data struct {
		User *struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			SiteURL string `json:"siteUrl"`
			Avatar  struct {
				Large string `json:"large"`
			} `json:"avatar"`
			Statistics struct {
				Anime struct {
					Count             int               `json:"count"`
					EpisodesWatched   int               `json:"episodesWatched"`
					MinutesWatched    int               `json:"minutesWatched"`
					MeanScore         float64           `json:"meanScore"`
					StandardDeviation float64           `json:"standardDeviation"`
					Genres            []genreCount      `json:"genres"`
					Tags              []tagCount        `json:"tags"`
					VoiceActors       []voiceActorCount `json:"voiceActors"`
					Studios           []studioCount     `json:"studios"`
					Staff             []staffCount      `json:"staff"`
				} `json:"anime"`
				Manga struct {
					Count             int          `json:"count"`
					ChaptersRead      int          `json:"chaptersRead"`
					VolumesRead       int          `json:"volumesRead"`
					MeanScore         float64      `json:"meanScore"`
					StandardDeviation float64      `json:"standardDeviation"`
					Genres            []genreCount `json:"genres"`
					Tags              []tagCount   `json:"tags"`
					Staff             []staffCount `json:"staff"`
				} `json:"manga"`
			} `json:"statistics"`
			Stats struct {
				ActivityHistory []structs.ActivityDay `json:"activityHistory"`
			} `json:"stats"`
			Favourites struct {
				Anime struct {
					Nodes []namedTitle `json:"nodes"`
				} `json:"anime"`
				Manga struct {
					Nodes []namedTitle `json:"nodes"`
				} `json:"manga"`
				Characters struct {
					Nodes []fullName `json:"nodes"`
				} `json:"characters"`
				Staff struct {
					Nodes []fullName `json:"nodes"`
				} `json:"staff"`
				Studios struct {
					Nodes []struct {
						Name string `json:"name"`
					} `json:"nodes"`
				} `json:"studios"`
			} `json:"favourites"`
		} `json:"User"`
		FollowersPage      pageTotal     `json:"followersPage"`
		FollowingPage      pageTotal     `json:"followingPage"`
		ThreadsPage        pageTotal     `json:"threadsPage"`
		ThreadCommentsPage pageTotal     `json:"threadCommentsPage"`
		ReviewsPage        pageTotal     `json:"reviewsPage"`
		PlanningPage       mediaListPage `json:"planningPage"`
		RewatchedPage      mediaListPage `json:"rewatchedPage"`
		CompletedPage      mediaListPage `json:"completedPage"`
	} `json:"data"`
}

// mapStatsResponse converts the raw GraphQL body into a UserSnapshot.
func mapStatsResponse(userID int64, username string, body []byte) (*structs.UserSnapshot, error) {
	var resp statsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &UpstreamError{Message: fmt.Sprintf("failed to parse stats response: %v", err)}
	}
	user := resp.Data.User
	if user == nil {
		return nil, ErrUserNotFound
	}

	anime := user.Statistics.Anime
	manga := user.Statistics.Manga

	totalActivity := 0
	for _, day := range user.Stats.ActivityHistory {
		totalActivity += day.Amount
	}

	snapshot := &structs.UserSnapshot{
		Meta: &structs.MetaPart{
			UserID:    userID,
			Username:  username,
			AvatarURL: user.Avatar.Large,
			SiteURL:   user.SiteURL,
			FetchedAt: time.Now().UTC(),
		},
		Stats: &structs.StatsPart{
			TotalFollowers:      resp.Data.FollowersPage.PageInfo.Total,
			TotalFollowing:      resp.Data.FollowingPage.PageInfo.Total,
			TotalActivity:       totalActivity,
			ThreadPostsComments: resp.Data.ThreadsPage.PageInfo.Total + resp.Data.ThreadCommentsPage.PageInfo.Total,
			TotalReviews:        resp.Data.ReviewsPage.PageInfo.Total,
		},
		Favourites: &structs.FavouritesPart{
			Anime:      titles(user.Favourites.Anime.Nodes),
			Manga:      titles(user.Favourites.Manga.Nodes),
			Characters: names(user.Favourites.Characters.Nodes),
			Staff:      names(user.Favourites.Staff.Nodes),
			Studios:    studioNames(user.Favourites.Studios.Nodes),
		},
		Statistics: &structs.StatisticsPart{
			Anime: &structs.AnimeStatistics{
				Count:             anime.Count,
				EpisodesWatched:   anime.EpisodesWatched,
				MinutesWatched:    anime.MinutesWatched,
				MeanScore:         anime.MeanScore,
				StandardDeviation: anime.StandardDeviation,
				Genres:            topCounts(anime.Genres, func(g genreCount) structs.NamedCount { return structs.NamedCount{Name: g.Genre, Count: g.Count} }),
				Tags:              topCounts(anime.Tags, func(t tagCount) structs.NamedCount { return structs.NamedCount{Name: t.Tag.Name, Count: t.Count} }),
				VoiceActors:       topCounts(anime.VoiceActors, func(v voiceActorCount) structs.NamedCount { return structs.NamedCount{Name: v.VoiceActor.Name.Full, Count: v.Count} }),
				Studios:           topCounts(anime.Studios, func(s studioCount) structs.NamedCount { return structs.NamedCount{Name: s.Studio.Name, Count: s.Count} }),
				Staff:             topCounts(anime.Staff, func(s staffCount) structs.NamedCount { return structs.NamedCount{Name: s.Staff.Name.Full, Count: s.Count} }),
			},
			Manga: &structs.MangaStatistics{
				Count:             manga.Count,
				ChaptersRead:      manga.ChaptersRead,
				VolumesRead:       manga.VolumesRead,
				MeanScore:         manga.MeanScore,
				StandardDeviation: manga.StandardDeviation,
				Genres:            topCounts(manga.Genres, func(g genreCount) structs.NamedCount { return structs.NamedCount{Name: g.Genre, Count: g.Count} }),
				Tags:              topCounts(manga.Tags, func(t tagCount) structs.NamedCount { return structs.NamedCount{Name: t.Tag.Name, Count: t.Count} }),
				Staff:             topCounts(manga.Staff, func(s staffCount) structs.NamedCount { return structs.NamedCount{Name: s.Staff.Name.Full, Count: s.Count} }),
			},
		},
		Pages: &structs.PagesPart{
			ActivityHistory: user.Stats.ActivityHistory,
		},
		Planning:  &structs.PlanningPart{Count: resp.Data.PlanningPage.PageInfo.Total, Titles: listTitles(resp.Data.PlanningPage)},
		Rewatched: &structs.RewatchedPart{Count: resp.Data.RewatchedPage.PageInfo.Total, Titles: listTitles(resp.Data.RewatchedPage)},
		Completed: &structs.CompletedPart{Count: resp.Data.CompletedPage.PageInfo.Total, Titles: listTitles(resp.Data.CompletedPage)},
	}

	return snapshot, nil
}

// topCounts converts a breakdown slice, sorts by descending count and
// keeps the top entries.
func topCounts[T any](items []T, convert func(T) structs.NamedCount) []structs.NamedCount {
	counts := make([]structs.NamedCount, 0, len(items))
	for _, item := range items {
		counts = append(counts, convert(item))
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > topBreakdownSize {
		counts = counts[:topBreakdownSize]
	}
	return counts
}

func titles(nodes []namedTitle) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Title.Romaji)
	}
	return out
}

func names(nodes []fullName) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name.Full)
	}
	return out
}

func studioNames(nodes []struct {
	Name string `json:"name"`
}) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func listTitles(page mediaListPage) []string {
	out := make([]string, 0, len(page.MediaList))
	for _, entry := range page.MediaList {
		out = append(out, entry.Media.Title.Romaji)
	}
	return out
}
