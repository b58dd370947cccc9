// Package tvmaze searches shows on the public TVmaze API. No key is needed.
package tvmaze

import (
	"context"
	"encoding/json"
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
	Name           = "tvmaze"
	Attribution    = "TVmaze"
	DefaultBaseURL = "https://api.tvmaze.com"
)

type SearchResult struct {
	Score float64 `json:"score"`
	Show  Show    `json:"show"`
}

type Show struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Language  string    `json:"language"`
	Genres    []string  `json:"genres"`
	Premiered string    `json:"premiered"`
	Rating    Rating    `json:"rating"`
	Image     *Image    `json:"image"`
	Summary   string    `json:"summary"`
	Externals Externals `json:"externals"`
}

type Rating struct {
	Average *float64 `json:"average"`
}

type Image struct {
	Medium   string `json:"medium"`
	Original string `json:"original"`
}

type Externals struct {
	TheTVDB *int64 `json:"thetvdb"`
	IMDb    string `json:"imdb"`
}

type Client struct {
	baseURL    string
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

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string {
	return Name
}

// Search runs a fuzzy show search.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/shows?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TVmaze search failed (%d)", resp.StatusCode)
	}

	var results []SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return results, nil
}

func (c *Client) Lookup(ctx context.Context, query string) ([]models.MediaTitle, error) {
	results, err := c.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	titles := make([]models.MediaTitle, 0, len(results))
	for _, r := range results {
		if t, ok := Normalize(r.Show); ok {
			titles = append(titles, t)
		}
	}
	return titles, nil
}

// Normalize converts a TVmaze show. The 0-10 average becomes a 0-100
// ScreenCritic score.
func Normalize(show Show) (models.MediaTitle, bool) {
	if strings.TrimSpace(show.Name) == "" {
		return models.MediaTitle{}, false
	}

	var ratings models.RatingAggregate
	if avg := show.Rating.Average; avg != nil && *avg > 0 {
		ratings.ScreenCritic = models.Score(math.Round(*avg * 10))
	}

	var year string
	if len(show.Premiered) >= 4 {
		year = show.Premiered[:4]
	}

	kind := models.KindSeries
	if show.Type == "Movie" {
		kind = models.KindMovie
	}

	genres := show.Genres
	if genres == nil {
		genres = []string{}
	}

	var poster, backdrop string
	if show.Image != nil {
		poster = show.Image.Medium
		if poster == "" {
			poster = show.Image.Original
		}
		backdrop = show.Image.Original
	}

	ids := map[string]string{"tvmaze": strconv.FormatInt(show.ID, 10)}
	if show.Externals.IMDb != "" {
		ids["imdb"] = show.Externals.IMDb
	}
	if show.Externals.TheTVDB != nil {
		ids["thetvdb"] = strconv.FormatInt(*show.Externals.TheTVDB, 10)
	}

	return models.MediaTitle{
		ID:                "tvmaze-" + strconv.FormatInt(show.ID, 10),
		Title:             show.Name,
		ReleaseYear:       year,
		Kind:              kind,
		Synopsis:          htmltext.Strip(show.Summary),
		Genres:            genres,
		PosterURL:         poster,
		BackdropURL:       backdrop,
		Ratings:           ratings,
		ProviderIDs:       ids,
		FriendsReviews:    []models.FriendReview{},
		SourceAttribution: Attribution,
	}, true
}
