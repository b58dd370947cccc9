// Package tmdb searches movies and series through TMDb multi search.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kdimtricp/popscan/internal/metadata/htmltext"
	"github.com/kdimtricp/popscan/internal/models"
)

const (
	Name           = "tmdb"
	Attribution    = "TMDb"
	DefaultBaseURL = "https://api.themoviedb.org/3"
	ImageBaseURL   = "https://image.tmdb.org/t/p"

	// Multi search returns up to twenty hits, most of them noise.
	defaultMaxResults = 5
)

type Result struct {
	ID           int64   `json:"id"`
	MediaType    string  `json:"media_type"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	GenreIDs     []int   `json:"genre_ids"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
}

type SearchResult struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalResults int      `json:"total_results"`
}

type Client struct {
	apiKey     string
	baseURL    string
	language   string
	maxResults int
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = strings.TrimSpace(language)
	}
}

func WithMaxResults(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		maxResults: defaultMaxResults,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) SearchMulti(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("include_adult", "false")
	if c.language != "" {
		params.Set("language", c.language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/multi?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TMDb API returned status %d", resp.StatusCode)
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return result.Results, nil
}

func (c *Client) Lookup(ctx context.Context, query string) ([]models.MediaTitle, error) {
	results, err := c.SearchMulti(ctx, query)
	if err != nil {
		return nil, err
	}

	titles := make([]models.MediaTitle, 0, c.maxResults)
	for _, r := range results {
		if len(titles) == c.maxResults {
			break
		}
		if t, ok := Normalize(r); ok {
			titles = append(titles, t)
		}
	}
	return titles, nil
}

// GetImageURL builds an image URL for the given size ("w500", "original").
func GetImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", ImageBaseURL, size, path)
}

// Normalize converts a movie or tv hit. People and unknown media types are
// skipped. The 0-10 vote average becomes a 0-100 ScreenCritic score.
func Normalize(r Result) (models.MediaTitle, bool) {
	var kind models.MediaKind
	var title, date string
	switch r.MediaType {
	case "movie", "":
		kind, title, date = models.KindMovie, r.Title, r.ReleaseDate
	case "tv":
		kind, title, date = models.KindSeries, r.Name, r.FirstAirDate
	default:
		return models.MediaTitle{}, false
	}
	if strings.TrimSpace(title) == "" {
		return models.MediaTitle{}, false
	}

	var year string
	if len(date) >= 4 {
		year = date[:4]
	}

	var ratings models.RatingAggregate
	if r.VoteCount > 0 && r.VoteAverage > 0 {
		ratings.ScreenCritic = models.Score(math.Round(r.VoteAverage * 10))
	}

	genres := make([]string, 0, len(r.GenreIDs))
	for _, id := range r.GenreIDs {
		if name, ok := genreNames[id]; ok {
			genres = append(genres, name)
		}
	}

	id := strconv.FormatInt(r.ID, 10)
	return models.MediaTitle{
		ID:                "tmdb-" + id,
		Title:             title,
		ReleaseYear:       year,
		Kind:              kind,
		Synopsis:          htmltext.Strip(r.Overview),
		Genres:            genres,
		PosterURL:         GetImageURL(r.PosterPath, "w500"),
		BackdropURL:       GetImageURL(r.BackdropPath, "w1280"),
		Ratings:           ratings,
		ProviderIDs:       map[string]string{"tmdb": id},
		FriendsReviews:    []models.FriendReview{},
		SourceAttribution: Attribution,
	}, true
}
