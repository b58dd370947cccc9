// Package demo holds the built-in catalog used when OCR or metadata lookups
// cannot produce anything, and by the mock capability variants.
package demo

import (
	"strings"

	"github.com/kdimtricp/popscan/internal/models"
)

const Attribution = "Demo dataset"

const unsplash = "https://images.unsplash.com/"

func avatar(photo string) string {
	return unsplash + photo + "?w=100&h=100&fit=crop"
}

func artwork(photo string) (poster, backdrop string) {
	return unsplash + photo + "?w=400&h=600&fit=crop", unsplash + photo + "?w=1200&h=800&fit=crop"
}

func title(id, name, year string, kind models.MediaKind, synopsis string, genres []string, photo string,
	ratings [4]float64, tmdbID, imdbID string, reviews []models.FriendReview, average float64) models.MediaTitle {
	poster, backdrop := artwork(photo)
	return models.MediaTitle{
		ID:          id,
		Title:       name,
		ReleaseYear: year,
		Kind:        kind,
		Synopsis:    synopsis,
		Genres:      genres,
		PosterURL:   poster,
		BackdropURL: backdrop,
		Ratings: models.RatingAggregate{
			IMDb:           models.Score(ratings[0]),
			RottenTomatoes: models.Score(ratings[1]),
			ScreenCritic:   models.Score(ratings[2]),
			Friends:        models.Score(ratings[3]),
		},
		ProviderIDs:       map[string]string{"tmdb": tmdbID, "imdb": imdbID},
		FriendsReviews:    reviews,
		FriendsSummary:    &models.FriendsSummary{Average: average, TotalReviews: len(reviews)},
		SourceAttribution: Attribution,
	}
}

var catalog = []models.MediaTitle{
	title("demo-1", "The Last of Us", "2023", models.KindSeries,
		"A post-apocalyptic drama following Joel and Ellie as they navigate a dangerous world filled with infected and desperate survivors.",
		[]string{"Drama", "Sci-Fi"}, "photo-1598899134739-24c46f58b8c0",
		[4]float64{8.8, 96, 92, 9.2}, "100088", "tt11198330",
		[]models.FriendReview{
			{ID: "sarah-chen", Name: "Sarah Chen", AvatarURL: avatar("photo-1494790108377-be9c29b29330"), Rating: 9.5,
				Comment: "Absolutely incredible! The acting and storytelling are phenomenal.", RelativeDate: "2 days ago"},
			{ID: "mike-johnson", Name: "Mike Johnson", AvatarURL: avatar("photo-1507003211169-0a1dd7228f2d"), Rating: 8.5,
				Comment: "Great adaptation of the game. Some slow moments but overall amazing.", RelativeDate: "1 week ago"},
			{ID: "emma-wilson", Name: "Emma Wilson", AvatarURL: avatar("photo-1438761681033-6461ffad8d80"), Rating: 9.5,
				Comment: "Best show I've watched this year. Can't wait for season 2!", RelativeDate: "3 days ago"},
		}, 9.2),
	title("demo-2", "Dune: Part Two", "2024", models.KindMovie,
		"Paul Atreides unites with Chani and the Fremen while seeking revenge against those who destroyed his family.",
		[]string{"Sci-Fi", "Adventure"}, "photo-1536440136628-849c177e76a1",
		[4]float64{8.9, 93, 90, 8.8}, "693134", "tt15239678",
		[]models.FriendReview{
			{ID: "david-park", Name: "David Park", AvatarURL: avatar("photo-1500648767791-00dcc994a43e"), Rating: 9.0,
				Comment: "Visually stunning masterpiece. Denis Villeneuve never disappoints!", RelativeDate: "5 days ago"},
			{ID: "lisa-martinez", Name: "Lisa Martinez", AvatarURL: avatar("photo-1534528741775-53994a69daeb"), Rating: 8.5,
				Comment: "Even better than the first one. Epic on every level.", RelativeDate: "1 week ago"},
		}, 8.8),
	title("demo-3", "Oppenheimer", "2023", models.KindMovie,
		"The story of American scientist J. Robert Oppenheimer and his role in the development of the atomic bomb.",
		[]string{"Biography", "Drama"}, "photo-1485846234645-a62644f84728",
		[4]float64{8.5, 93, 88, 8.7}, "872585", "tt15398776",
		[]models.FriendReview{
			{ID: "tom-anderson", Name: "Tom Anderson", AvatarURL: avatar("photo-1506794778202-cad84cf45f1d"), Rating: 9.0,
				Comment: "Nolan at his best. Complex, thrilling, and thought-provoking.", RelativeDate: "4 days ago"},
			{ID: "rachel-kim", Name: "Rachel Kim", AvatarURL: avatar("photo-1487412720507-e7ab37603c6f"), Rating: 8.0,
				Comment: "Powerful storytelling. Cillian Murphy deserved that Oscar.", RelativeDate: "6 days ago"},
		}, 8.7),
}

var segments = []models.RecognizedTextSegment{
	{
		RawText: "The Last of Us - Season 1",
		Candidates: []models.CandidateTitle{
			{Title: "The Last of Us", ReleaseYear: "2023", Confidence: 0.94},
			{Title: "The Last of Us Part II", ReleaseYear: "2020", Confidence: 0.42},
		},
	},
	{
		RawText: "Dune Part Two Premiere Now Streaming",
		Candidates: []models.CandidateTitle{
			{Title: "Dune: Part Two", ReleaseYear: "2024", Confidence: 0.91},
			{Title: "Dune", ReleaseYear: "2021", Confidence: 0.35},
		},
	},
	{
		RawText: "Oppenheimer Christopher Nolan",
		Candidates: []models.CandidateTitle{
			{Title: "Oppenheimer", ReleaseYear: "2023", Confidence: 0.89},
		},
	},
}

// Titles returns a fresh copy of the demo catalog. Callers may modify it.
func Titles() []models.MediaTitle {
	out := make([]models.MediaTitle, len(catalog))
	for i, t := range catalog {
		out[i] = t.Clone()
	}
	return out
}

// Segments returns a fresh copy of the demo OCR segments.
func Segments() []models.RecognizedTextSegment {
	out := make([]models.RecognizedTextSegment, len(segments))
	for i, s := range segments {
		out[i] = models.RecognizedTextSegment{
			RawText:    s.RawText,
			Candidates: append([]models.CandidateTitle(nil), s.Candidates...),
		}
	}
	return out
}

// FullText is the raw text of every demo segment, one per line.
func FullText() string {
	lines := make([]string, len(segments))
	for i, s := range segments {
		lines[i] = s.RawText
	}
	return strings.Join(lines, "\n")
}
