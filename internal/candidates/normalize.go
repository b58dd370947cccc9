// Package candidates turns noisy OCR lines into ranked title candidates and
// groups them into lookup contexts for metadata resolution.
package candidates

import (
	"regexp"
	"strings"

	"github.com/kdimtricp/popscan/internal/models"
)

var (
	disallowedChars = regexp.MustCompile(`[^\w:'&!?.\s]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	spaceRun        = regexp.MustCompile(` {2,}`)
	trailingTitle   = regexp.MustCompile(`[:\-].*$`)
	clockTime       = regexp.MustCompile(`\d{2}:\d{2}`)

	marketingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(now|today|tonight) streaming`),
		regexp.MustCompile(`(?i)new episodes? (available|streaming)`),
		regexp.MustCompile(`(?i)only on [a-z\s]+`),
		regexp.MustCompile(`(?i)watch (it|now) on [a-z\s]+`),
		regexp.MustCompile(`(?i)available now`),
		regexp.MustCompile(`(?i)premieres?`),
		regexp.MustCompile(`(?i)exclusive`),
	}

	// Service names match anywhere, including glued to other words. Longer
	// names first so "hbo max" is removed before "max".
	servicePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)netflix`),
		regexp.MustCompile(`(?i)prime video`),
		regexp.MustCompile(`(?i)amazon prime`),
		regexp.MustCompile(`(?i)disney\+?`),
		regexp.MustCompile(`(?i)hbo ?max`),
		regexp.MustCompile(`(?i)max`),
		regexp.MustCompile(`(?i)apple tv\+?`),
		regexp.MustCompile(`(?i)hulu`),
	}

	metadataPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(season|episode|ep|s\d+|e\d+)\b`),
		regexp.MustCompile(`(?i)\b(official|trailer|exclusive)\b`),
	}
)

const (
	minConfidence     = 0.1
	maxConfidence     = 1.0
	confidenceStep    = 0.1
	minLineConfidence = 0.05
)

// Line is a single recognized line with the engine's confidence on a 0-100
// scale.
type Line struct {
	Text       string
	Confidence float64
	Box        *models.BoundingBox
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Sanitize replaces characters that never occur in titles with spaces and
// collapses whitespace.
func Sanitize(raw string) string {
	return collapse(disallowedChars.ReplaceAllString(raw, " "))
}

// StripMarketing removes promotional phrases, streaming service names and
// episode metadata tokens. Matching is case-insensitive.
func StripMarketing(s string) string {
	passes := [][]*regexp.Regexp{marketingPatterns, servicePatterns, metadataPatterns}
	for _, pass := range passes {
		for _, re := range pass {
			s = collapse(re.ReplaceAllString(s, " "))
		}
	}
	return s
}

// Normalize derives ranked title variants from one OCR line. The first
// candidate carries baseConfidence and every following one drops by 0.1,
// never below 0.1.
func Normalize(rawLine string, baseConfidence float64) []models.CandidateTitle {
	cleaned := StripMarketing(Sanitize(rawLine))

	variants := make([]string, 0, 4)
	if cleaned != "" {
		variants = append(variants, cleaned)
	}
	if short := strings.TrimSpace(trailingTitle.ReplaceAllString(cleaned, "")); short != "" && short != cleaned {
		variants = append(variants, short)
	}
	if upper := strings.ToUpper(cleaned); upper != "" && upper != cleaned {
		variants = append(variants, upper)
	}
	if noClock := strings.TrimSpace(clockTime.ReplaceAllString(cleaned, "")); noClock != "" && noClock != cleaned {
		variants = append(variants, noClock)
	}

	seen := make(map[string]struct{}, len(variants))
	out := make([]models.CandidateTitle, 0, len(variants))
	for _, v := range variants {
		v = strings.TrimSpace(spaceRun.ReplaceAllString(v, " "))
		if len([]rune(v)) < 2 {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, models.CandidateTitle{
			Title:      v,
			Confidence: clamp(baseConfidence-confidenceStep*float64(len(out)), minConfidence, maxConfidence),
		})
	}
	return out
}

// SegmentsFromLines builds recognized segments from engine lines, skipping
// blank ones.
func SegmentsFromLines(lines []Line) []models.RecognizedTextSegment {
	segments := make([]models.RecognizedTextSegment, 0, len(lines))
	for _, line := range lines {
		raw := strings.TrimSpace(line.Text)
		if raw == "" {
			continue
		}
		base := clamp(line.Confidence/100, minLineConfidence, maxConfidence)
		segments = append(segments, models.RecognizedTextSegment{
			RawText:     raw,
			BoundingBox: line.Box,
			Candidates:  Normalize(raw, base),
		})
	}
	return segments
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
