// Package omdb looks titles up by exact name on the OMDb API.
package omdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kdimtricp/popscan/internal/models"
)

const (
	Name           = "omdb"
	Attribution    = "OMDb"
	DefaultBaseURL = "https://www.omdbapi.com/"
	// DefaultAPIKey is the public demo key used when none is configured.
	DefaultAPIKey = "trilogy"

	notAvailable = "N/A"
)

type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// TitleResponse is the subset of the OMDb title payload that is normalized.
type TitleResponse struct {
	Response   string   `json:"Response"`
	Error      string   `json:"Error,omitempty"`
	Title      string   `json:"Title"`
	Year       string   `json:"Year"`
	Genre      string   `json:"Genre"`
	Plot       string   `json:"Plot"`
	Poster     string   `json:"Poster"`
	Ratings    []Rating `json:"Ratings"`
	IMDbRating string   `json:"imdbRating"`
	IMDbID     string   `json:"imdbID"`
	Type       string   `json:"Type"`
}

type Client struct {
	apiKey     string
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
			c.baseURL = baseURL
		}
	}
}

// New creates an OMDb client. An empty key selects DefaultAPIKey.
func New(apiKey string, opts ...Option) *Client {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		apiKey = DefaultAPIKey
	}
	c := &Client{
		apiKey:  apiKey,
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

// FetchTitle requests a title by exact name. It returns nil without error
// when OMDb reports no match.
func (c *Client) FetchTitle(ctx context.Context, title string) (*TitleResponse, error) {
	params := url.Values{}
	params.Set("t", title)
	params.Set("plot", "short")
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OMDb request failed (%d)", resp.StatusCode)
	}

	var data TitleResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if data.Response == "False" {
		return nil, nil
	}
	return &data, nil
}

// Lookup implements the metadata sub-provider contract.
func (c *Client) Lookup(ctx context.Context, query string) ([]models.MediaTitle, error) {
	data, err := c.FetchTitle(ctx, query)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return []models.MediaTitle{}, nil
	}
	title, ok := Normalize(*data)
	if !ok {
		return []models.MediaTitle{}, nil
	}
	return []models.MediaTitle{title}, nil
}

func available(s string) string {
	s = strings.TrimSpace(s)
	if s == notAvailable {
		return ""
	}
	return s
}

// releaseYear keeps the first year of ranges such as "2019–2022".
func releaseYear(s string) string {
	s = available(s)
	if len(s) >= 4 {
		if _, err := strconv.Atoi(s[:4]); err == nil {
			return s[:4]
		}
	}
	return s
}

// Normalize converts an OMDb payload into a MediaTitle on native scales. ok
// is false when the payload carries no title.
func Normalize(r TitleResponse) (models.MediaTitle, bool) {
	if strings.TrimSpace(r.Title) == "" {
		return models.MediaTitle{}, false
	}

	var ratings models.RatingAggregate
	if v := available(r.IMDbRating); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			ratings.IMDb = models.Score(f)
		}
	}
	for _, rating := range r.Ratings {
		switch rating.Source {
		case "Rotten Tomatoes":
			if n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(rating.Value), "%")); err == nil {
				ratings.RottenTomatoes = models.Score(float64(n))
			}
		case "Metacritic":
			score, _, _ := strings.Cut(rating.Value, "/")
			if n, err := strconv.Atoi(strings.TrimSpace(score)); err == nil {
				ratings.ScreenCritic = models.Score(float64(n))
			}
		}
	}

	genres := []string{}
	for _, g := range strings.Split(available(r.Genre), ",") {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}

	kind := models.KindMovie
	if r.Type == "series" {
		kind = models.KindSeries
	}

	id := r.IMDbID
	if id == "" {
		id = r.Title
	}

	poster := available(r.Poster)
	title := models.MediaTitle{
		ID:                "omdb-" + id,
		Title:             r.Title,
		ReleaseYear:       releaseYear(r.Year),
		Kind:              kind,
		Synopsis:          available(r.Plot),
		Genres:            genres,
		PosterURL:         poster,
		BackdropURL:       poster,
		Ratings:           ratings,
		FriendsReviews:    []models.FriendReview{},
		SourceAttribution: Attribution,
	}
	if r.IMDbID != "" {
		title.ProviderIDs = map[string]string{"imdb": r.IMDbID}
	}
	return title, true
}
