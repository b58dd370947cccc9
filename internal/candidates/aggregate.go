package candidates

import (
	"strings"

	"github.com/kdimtricp/popscan/internal/models"
)

const (
	combinedConfidence   = 0.9
	individualConfidence = 0.95
	minAggregateLength   = 3
)

func clean(c models.CandidateTitle) models.CandidateTitle {
	if simplified := StripMarketing(c.Title); simplified != "" {
		c.Title = simplified
	}
	return c
}

// BuildLookupContexts produces one context per segment and, when the segments
// yield usable top candidates, a leading aggregate context. The aggregate
// holds all top candidates joined into a single title followed by each top
// candidate on its own, so multi-line titles are tried before their parts.
func BuildLookupContexts(segments []models.RecognizedTextSegment) []models.LookupContext {
	contexts := make([]models.LookupContext, 0, len(segments)+1)
	var top []models.CandidateTitle

	for _, segment := range segments {
		cleaned := make([]models.CandidateTitle, 0, len(segment.Candidates))
		for _, c := range segment.Candidates {
			cleaned = append(cleaned, clean(c))
		}
		contexts = append(contexts, models.LookupContext{Candidates: cleaned})

		if len(segment.Candidates) > 0 && segment.Candidates[0].Title != "" {
			top = append(top, cleaned[0])
		}
	}

	var aggregate []models.CandidateTitle
	if len(top) > 0 {
		titles := make([]string, 0, len(top))
		for _, c := range top {
			titles = append(titles, c.Title)
		}
		combined := collapse(strings.Join(titles, " "))
		if len([]rune(combined)) >= minAggregateLength {
			aggregate = append(aggregate, models.CandidateTitle{Title: combined, Confidence: combinedConfidence})
		}
		for _, c := range top {
			if len([]rune(c.Title)) >= minAggregateLength {
				c.Confidence = individualConfidence
				aggregate = append(aggregate, c)
			}
		}
	}

	if len(aggregate) > 0 {
		contexts = append([]models.LookupContext{{Candidates: aggregate}}, contexts...)
	}
	return contexts
}
