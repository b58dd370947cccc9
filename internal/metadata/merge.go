package metadata

import (
	"strings"

	"github.com/kdimtricp/popscan/internal/models"
)

const attributionSep = ", "

// Merge folds incoming into existing without overwriting anything existing
// already knows. Both records must share a merge key.
func Merge(existing *models.MediaTitle, incoming models.MediaTitle) {
	fill := func(dst **float64, src *float64) {
		if *dst == nil && src != nil {
			v := *src
			*dst = &v
		}
	}
	fill(&existing.Ratings.IMDb, incoming.Ratings.IMDb)
	fill(&existing.Ratings.RottenTomatoes, incoming.Ratings.RottenTomatoes)
	fill(&existing.Ratings.ScreenCritic, incoming.Ratings.ScreenCritic)
	fill(&existing.Ratings.Friends, incoming.Ratings.Friends)

	if existing.Synopsis == "" {
		existing.Synopsis = incoming.Synopsis
	}
	if existing.PosterURL == "" {
		existing.PosterURL = incoming.PosterURL
	}
	if existing.BackdropURL == "" {
		existing.BackdropURL = incoming.BackdropURL
	}
	if len(existing.Genres) == 0 && len(incoming.Genres) > 0 {
		existing.Genres = append([]string(nil), incoming.Genres...)
	}
	if len(existing.FriendsReviews) == 0 && len(incoming.FriendsReviews) > 0 {
		existing.FriendsReviews = append([]models.FriendReview(nil), incoming.FriendsReviews...)
	}
	if existing.FriendsSummary == nil && incoming.FriendsSummary != nil {
		summary := *incoming.FriendsSummary
		existing.FriendsSummary = &summary
	}

	for k, v := range incoming.ProviderIDs {
		if v == "" {
			continue
		}
		if existing.ProviderIDs == nil {
			existing.ProviderIDs = make(map[string]string, len(incoming.ProviderIDs))
		}
		if _, ok := existing.ProviderIDs[k]; !ok {
			existing.ProviderIDs[k] = v
		}
	}

	existing.SourceAttribution = appendAttribution(existing.SourceAttribution, incoming.SourceAttribution)
}

func appendAttribution(existing, incoming string) string {
	var sources []string
	if existing != "" {
		sources = strings.Split(existing, attributionSep)
	}
	for _, src := range strings.Split(incoming, attributionSep) {
		src = strings.TrimSpace(src)
		if src == "" || contains(sources, src) {
			continue
		}
		sources = append(sources, src)
	}
	return strings.Join(sources, attributionSep)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// resultSet keeps merged titles in first-seen order.
type resultSet struct {
	order []string
	byKey map[string]*models.MediaTitle
}

func newResultSet() *resultSet {
	return &resultSet{byKey: make(map[string]*models.MediaTitle)}
}

func (s *resultSet) add(t models.MediaTitle) {
	key := t.MergeKey()
	if existing, ok := s.byKey[key]; ok {
		Merge(existing, t)
		return
	}
	clone := t.Clone()
	s.byKey[key] = &clone
	s.order = append(s.order, key)
}

func (s *resultSet) titles() []models.MediaTitle {
	out := make([]models.MediaTitle, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, *s.byKey[key])
	}
	return out
}
