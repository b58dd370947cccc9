package tmdb_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/popscan/internal/metadata/tmdb"
	"github.com/kdimtricp/popscan/internal/models"
)

const multiPayload = `{"page":1,"total_results":4,"results":[
  {"id":100088,"media_type":"tv","name":"The Last of Us","first_air_date":"2023-01-15",
   "overview":"Twenty years after modern civilization has been destroyed.","poster_path":"/p.jpg",
   "backdrop_path":"/b.jpg","genre_ids":[18,10759,99999],"vote_average":8.56,"vote_count":5000},
  {"id":1,"media_type":"person","name":"Pedro Pascal"},
  {"id":2,"media_type":"movie","title":"The Last of Us: Making Of","release_date":"",
   "vote_average":0,"vote_count":0},
  {"id":3,"media_type":"movie","title":"","release_date":"2020-01-01"}
]}`

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := tmdb.New("  ")
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/multi", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "The Last of Us", r.URL.Query().Get("query"))
		assert.Equal(t, "en-US", r.URL.Query().Get("language"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(multiPayload))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", tmdb.WithBaseURL(server.URL), tmdb.WithLanguage("en-US"))
	require.NoError(t, err)

	titles, err := client.Lookup(context.Background(), "The Last of Us")
	require.NoError(t, err)
	require.Len(t, titles, 2)

	got := titles[0]
	assert.Equal(t, "tmdb-100088", got.ID)
	assert.Equal(t, models.KindSeries, got.Kind)
	assert.Equal(t, "2023", got.ReleaseYear)
	assert.Equal(t, []string{"Drama", "Action & Adventure"}, got.Genres)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/p.jpg", got.PosterURL)
	assert.Equal(t, "https://image.tmdb.org/t/p/w1280/b.jpg", got.BackdropURL)
	require.NotNil(t, got.Ratings.ScreenCritic)
	assert.Equal(t, 86.0, *got.Ratings.ScreenCritic)
	assert.Equal(t, map[string]string{"tmdb": "100088"}, got.ProviderIDs)

	making := titles[1]
	assert.Equal(t, models.KindMovie, making.Kind)
	assert.Empty(t, making.ReleaseYear)
	assert.Nil(t, making.Ratings.ScreenCritic)
	assert.Empty(t, making.PosterURL)
}

func TestLookupRespectsMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(multiPayload))
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", tmdb.WithBaseURL(server.URL), tmdb.WithMaxResults(1))
	require.NoError(t, err)

	titles, err := client.Lookup(context.Background(), "The Last of Us")
	require.NoError(t, err)
	assert.Len(t, titles, 1)
}

func TestLookupHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := tmdb.New("key", tmdb.WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = client.Lookup(context.Background(), "fail")
	assert.ErrorContains(t, err, "status 500")
}

func TestGetImageURL(t *testing.T) {
	assert.Empty(t, tmdb.GetImageURL("", "w500"))
	assert.Equal(t, "https://image.tmdb.org/t/p/original/x.png", tmdb.GetImageURL("/x.png", "original"))
}
