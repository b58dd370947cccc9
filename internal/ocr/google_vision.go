package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kdimtricp/popscan/internal/candidates"
	"github.com/kdimtricp/popscan/internal/capture"
	"github.com/kdimtricp/popscan/internal/models"
)

const (
	DefaultGoogleVisionEndpoint = "https://vision.googleapis.com/v1/images:annotate"

	googleVisionDemo = "googleVision-demo"

	// TEXT_DETECTION reports no per-line confidence.
	visionLineConfidence = 85
)

// GoogleVision sends frames to the Cloud Vision TEXT_DETECTION feature.
type GoogleVision struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

type VisionOption func(*GoogleVision)

func WithEndpoint(endpoint string) VisionOption {
	return func(g *GoogleVision) {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			g.endpoint = endpoint
		}
	}
}

func WithHTTPClient(client *http.Client) VisionOption {
	return func(g *GoogleVision) {
		if client != nil {
			g.httpClient = client
		}
	}
}

func WithVisionLogger(logger zerolog.Logger) VisionOption {
	return func(g *GoogleVision) {
		g.logger = logger
	}
}

func NewGoogleVision(apiKey string, opts ...VisionOption) *GoogleVision {
	g := &GoogleVision{
		apiKey:   apiKey,
		endpoint: DefaultGoogleVisionEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type googleVisionRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent  `json:"image"`
	Features []featureType `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type featureType struct {
	Type string `json:"type"`
}

type googleVisionResponse struct {
	Responses []annotateResponse `json:"responses"`
	Error     *googleError       `json:"error"`
}

type googleError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type annotateResponse struct {
	TextAnnotations []textAnnotation `json:"textAnnotations"`
	Error           *googleError     `json:"error"`
}

type textAnnotation struct {
	Description  string       `json:"description"`
	Locale       string       `json:"locale"`
	BoundingPoly boundingPoly `json:"boundingPoly"`
}

type boundingPoly struct {
	Vertices []vertex `json:"vertices"`
}

type vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (g *GoogleVision) Name() string {
	return KindGoogleVision
}

func (g *GoogleVision) Scan(ctx context.Context, req models.ScanRequest) (*models.OCRResult, error) {
	if req.DemoMode || req.FrameDataURL == "" {
		return demoResult(googleVisionDemo), nil
	}

	_, image, err := capture.DecodeDataURL(req.FrameDataURL)
	if err != nil {
		return nil, err
	}

	annotations, err := g.detectText(ctx, image)
	if err != nil {
		return nil, err
	}

	var fullText string
	if len(annotations) > 0 {
		fullText = strings.TrimSpace(annotations[0].Description)
	}

	var lines []candidates.Line
	for _, l := range strings.Split(fullText, "\n") {
		lines = append(lines, candidates.Line{Text: l, Confidence: visionLineConfidence})
	}

	g.logger.Debug().Int("lines", len(lines)).Msg("google vision text detected")
	return &models.OCRResult{
		Segments:   candidates.SegmentsFromLines(lines),
		FullText:   fullText,
		CapturedAt: time.Now().UTC(),
		Provider:   KindGoogleVision,
	}, nil
}

func (g *GoogleVision) detectText(ctx context.Context, image []byte) ([]textAnnotation, error) {
	reqBody := googleVisionRequest{
		Requests: []imageRequest{
			{
				Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
				Features: []featureType{{Type: "TEXT_DETECTION"}},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s?key=%s", g.endpoint, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var visionResp googleVisionResponse
	if err := json.Unmarshal(body, &visionResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("google vision API returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if visionResp.Error != nil {
		return nil, fmt.Errorf("google vision API error: %s", visionResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google vision API returned status %d", resp.StatusCode)
	}
	if len(visionResp.Responses) == 0 {
		return nil, nil
	}
	if e := visionResp.Responses[0].Error; e != nil {
		return nil, fmt.Errorf("google vision API error: %s", e.Message)
	}
	return visionResp.Responses[0].TextAnnotations, nil
}
