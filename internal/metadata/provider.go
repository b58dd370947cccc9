// Package metadata resolves title candidates into media records by querying
// one or more sub-providers and merging what they return.
package metadata

import (
	"context"

	"github.com/kdimtricp/popscan/internal/models"
)

// Provider turns lookup contexts into media titles. "No match" is an empty
// slice, not an error.
type Provider interface {
	Name() string
	ResolveCandidates(ctx context.Context, contexts []models.LookupContext) ([]models.MediaTitle, error)
}

// SubProvider is a single external catalog queried by free-text title.
type SubProvider interface {
	Name() string
	Lookup(ctx context.Context, query string) ([]models.MediaTitle, error)
}
