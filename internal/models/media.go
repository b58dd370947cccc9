package models

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type MediaKind string

const (
	KindMovie  MediaKind = "movie"
	KindSeries MediaKind = "series"
)

// RatingAggregate holds per-source scores. A nil field means the source did not
// report a score, which is different from a score of zero.
type RatingAggregate struct {
	IMDb           *float64 `json:"imdb,omitempty"`            // 0-10
	RottenTomatoes *float64 `json:"rotten_tomatoes,omitempty"` // 0-100
	ScreenCritic   *float64 `json:"screen_critic,omitempty"`   // 0-100
	Friends        *float64 `json:"friends,omitempty"`         // 0-10, community only
}

type FriendReview struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	AvatarURL    string  `json:"avatar_url"`
	Rating       float64 `json:"rating"`
	Comment      string  `json:"comment"`
	RelativeDate string  `json:"relative_date"`
}

type FriendsSummary struct {
	Average      float64 `json:"average"`
	TotalReviews int     `json:"total_reviews"`
}

type MediaTitle struct {
	ID                string            `json:"id"`
	Title             string            `json:"title"`
	ReleaseYear       string            `json:"release_year,omitempty"`
	Kind              MediaKind         `json:"kind"`
	Synopsis          string            `json:"synopsis,omitempty"`
	Genres            []string          `json:"genres"`
	PosterURL         string            `json:"poster_url,omitempty"`
	BackdropURL       string            `json:"backdrop_url,omitempty"`
	Ratings           RatingAggregate   `json:"ratings"`
	ProviderIDs       map[string]string `json:"provider_ids,omitempty"`
	FriendsReviews    []FriendReview    `json:"friends_reviews"`
	FriendsSummary    *FriendsSummary   `json:"friends_summary,omitempty"`
	SourceAttribution string            `json:"source_attribution,omitempty"`
}

// Score returns a pointer to v for populating RatingAggregate fields.
func Score(v float64) *float64 {
	return &v
}

// AverageCommunityScore averages the present rating fields on a 0-10 scale,
// dividing the percentage based scores by ten. The result is rounded to one
// decimal. ok is false when no field is set.
func AverageCommunityScore(r RatingAggregate) (avg float64, ok bool) {
	var total float64
	var count int

	if r.IMDb != nil {
		total += *r.IMDb
		count++
	}
	if r.RottenTomatoes != nil {
		total += *r.RottenTomatoes / 10
		count++
	}
	if r.ScreenCritic != nil {
		total += *r.ScreenCritic / 10
		count++
	}
	if r.Friends != nil {
		total += *r.Friends
		count++
	}

	if count == 0 {
		return 0, false
	}

	return math.Round(total/float64(count)*10) / 10, true
}

// MergeKey identifies records from different providers that describe the same
// title. Titles are compared after Unicode normalization and lowercasing.
func MergeKey(title, releaseYear string, kind MediaKind) string {
	normalized := strings.ToLower(norm.NFC.String(strings.TrimSpace(title)))
	return string(kind) + "::" + normalized + "::" + releaseYear
}

func (m *MediaTitle) MergeKey() string {
	return MergeKey(m.Title, m.ReleaseYear, m.Kind)
}

// Clone returns a deep copy so callers can merge into it without touching the
// original record.
func (m MediaTitle) Clone() MediaTitle {
	out := m
	out.Genres = append([]string(nil), m.Genres...)
	if out.Genres == nil {
		out.Genres = []string{}
	}
	out.FriendsReviews = append([]FriendReview(nil), m.FriendsReviews...)
	if out.FriendsReviews == nil {
		out.FriendsReviews = []FriendReview{}
	}
	if m.ProviderIDs != nil {
		out.ProviderIDs = make(map[string]string, len(m.ProviderIDs))
		for k, v := range m.ProviderIDs {
			out.ProviderIDs[k] = v
		}
	}
	if m.FriendsSummary != nil {
		summary := *m.FriendsSummary
		out.FriendsSummary = &summary
	}
	out.Ratings = RatingAggregate{
		IMDb:           clonePtr(m.Ratings.IMDb),
		RottenTomatoes: clonePtr(m.Ratings.RottenTomatoes),
		ScreenCritic:   clonePtr(m.Ratings.ScreenCritic),
		Friends:        clonePtr(m.Ratings.Friends),
	}
	return out
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
