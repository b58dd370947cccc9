package metadata

import (
	"context"
	"strings"

	"github.com/kdimtricp/popscan/internal/demo"
	"github.com/kdimtricp/popscan/internal/models"
)

const FallbackName = "mock"

// Fallback resolves candidates against the demo catalog only. A candidate
// matches a title by exact lowercase name or "name year", otherwise by
// substring containment in either direction.
type Fallback struct {
	titles []models.MediaTitle
	keys   []fallbackKey
	exact  map[string]int
}

type fallbackKey struct {
	key   string
	index int
}

var _ Provider = (*Fallback)(nil)

func NewFallback() *Fallback {
	f := &Fallback{
		titles: demo.Titles(),
		exact:  make(map[string]int),
	}
	for i, t := range f.titles {
		f.addKey(strings.ToLower(t.Title), i)
		if t.ReleaseYear != "" {
			f.addKey(strings.ToLower(t.Title)+" "+t.ReleaseYear, i)
		}
	}
	return f
}

func (f *Fallback) addKey(key string, index int) {
	f.exact[key] = index
	f.keys = append(f.keys, fallbackKey{key: key, index: index})
}

func (f *Fallback) Name() string {
	return FallbackName
}

func (f *Fallback) ResolveCandidates(_ context.Context, contexts []models.LookupContext) ([]models.MediaTitle, error) {
	matched := make(map[int]bool)
	var order []int
	add := func(i int) {
		if !matched[i] {
			matched[i] = true
			order = append(order, i)
		}
	}

	for _, lc := range contexts {
		for _, c := range lc.Candidates {
			normalized := strings.ToLower(strings.TrimSpace(c.Title))
			if normalized == "" {
				continue
			}
			if i, ok := f.exact[normalized]; ok {
				add(i)
				continue
			}
			for _, k := range f.keys {
				if strings.Contains(k.key, normalized) || strings.Contains(normalized, k.key) {
					add(k.index)
				}
			}
		}
	}

	out := make([]models.MediaTitle, 0, len(order))
	for _, i := range order {
		out = append(out, f.titles[i].Clone())
	}
	return out, nil
}
