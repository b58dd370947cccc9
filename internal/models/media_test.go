package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageCommunityScore(t *testing.T) {
	tests := []struct {
		name     string
		ratings  RatingAggregate
		expected float64
		ok       bool
	}{
		{
			name:    "no ratings",
			ratings: RatingAggregate{},
			ok:      false,
		},
		{
			name:     "imdb and rotten tomatoes",
			ratings:  RatingAggregate{IMDb: Score(8.8), RottenTomatoes: Score(96)},
			expected: 9.2,
			ok:       true,
		},
		{
			name:     "all four sources",
			ratings:  RatingAggregate{IMDb: Score(8.8), RottenTomatoes: Score(96), ScreenCritic: Score(92), Friends: Score(9.2)},
			expected: 9.2,
			ok:       true,
		},
		{
			name:     "percentage only",
			ratings:  RatingAggregate{ScreenCritic: Score(75)},
			expected: 7.5,
			ok:       true,
		},
		{
			name:     "zero is a score",
			ratings:  RatingAggregate{IMDb: Score(0)},
			expected: 0,
			ok:       true,
		},
		{
			name:     "rounds to one decimal",
			ratings:  RatingAggregate{IMDb: Score(7.0), Friends: Score(8.15)},
			expected: 7.6,
			ok:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, ok := AverageCommunityScore(tt.ratings)
			require.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, avg, 1e-9)
		})
	}
}

func TestMergeKey(t *testing.T) {
	assert.Equal(t,
		MergeKey("The Last of Us", "2023", KindSeries),
		MergeKey("  the last of us ", "2023", KindSeries))

	assert.NotEqual(t,
		MergeKey("Dune", "2021", KindMovie),
		MergeKey("Dune", "1984", KindMovie))

	assert.NotEqual(t,
		MergeKey("Fargo", "", KindMovie),
		MergeKey("Fargo", "", KindSeries))

	// Composed and decomposed forms of the same accented title.
	assert.Equal(t,
		MergeKey("Am\u00e9lie", "2001", KindMovie),
		MergeKey("Ame\u0301lie", "2001", KindMovie))
}

func TestMediaTitleClone(t *testing.T) {
	original := MediaTitle{
		ID:          "demo-1",
		Title:       "Oppenheimer",
		Genres:      []string{"Drama"},
		Ratings:     RatingAggregate{IMDb: Score(8.5)},
		ProviderIDs: map[string]string{"imdb": "tt15398776"},
	}

	clone := original.Clone()
	clone.Genres[0] = "Thriller"
	*clone.Ratings.IMDb = 1
	clone.ProviderIDs["tmdb"] = "872585"

	assert.Equal(t, "Drama", original.Genres[0])
	assert.Equal(t, 8.5, *original.Ratings.IMDb)
	assert.NotContains(t, original.ProviderIDs, "tmdb")
	assert.NotNil(t, clone.FriendsReviews)
}
