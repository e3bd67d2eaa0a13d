package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultModel    = "gemini-pro"
	defaultBaseURL  = "https://generativelanguage.googleapis.com"
	defaultCallTTL  = 10 * time.Second
	maxOutputTokens = 200
	classifierMIME  = "application/json"
)

var (
	errMissingAPIKey     = errors.New("classifier api key not configured")
	errEmptyCandidate    = errors.New("classifier returned no candidates")
	errUnparsableVerdict = errors.New("classifier verdict not valid JSON")
	ErrInvalidClassifier = errors.New("scoring: invalid classifier config")
)

// ClassifierConfig bundles configuration required to instantiate a GeminiClassifier.
type ClassifierConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *zap.Logger
	Clock      func() time.Time
}

// Classifier rates note content. Implementations may be remote and slow;
// callers own the fallback when classification fails.
type Classifier interface {
	Classify(ctx context.Context, note NoteContext) (ContentScore, error)
}

// GeminiClassifier scores content with the Gemini generateContent endpoint
// at zero temperature so equal inputs yield equal verdicts.
type GeminiClassifier struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
	clock      func() time.Time
}

// NewGeminiClassifier constructs a classifier with validated configuration.
func NewGeminiClassifier(cfg ClassifierConfig) (*GeminiClassifier, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClassifier, errMissingAPIKey)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallTTL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &GeminiClassifier{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger,
		clock:      clock,
	}, nil
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
}

type generateContent struct {
	Role  string         `json:"role"`
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMIMEType string  `json:"responseMimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []generatePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Classify sends the prompt and parses the JSON verdict.
func (c *GeminiClassifier) Classify(ctx context.Context, note NoteContext) (ContentScore, error) {
	prompt := BuildPrompt(note, c.clock())
	raw, err := c.call(ctx, prompt)
	if err != nil {
		return ContentScore{}, err
	}
	verdict, err := parseVerdict(raw)
	if err != nil {
		c.logger.Warn("classifier verdict rejected", zap.Error(err))
		return ContentScore{}, err
	}
	return verdict, nil
}

func (c *GeminiClassifier) call(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload := generateRequest{
		Contents: []generateContent{{Role: "user", Parts: []generatePart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      0,
			MaxOutputTokens:  maxOutputTokens,
			ResponseMIMEType: classifierMIME,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", classifierMIME)

	response, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier request returned status %d", response.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", errEmptyCandidate
	}
	return strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text), nil
}

var verdictPattern = regexp.MustCompile(`(?s)\{.*\}`)

type verdictPayload struct {
	Score     *float64 `json:"score"`
	Rationale string   `json:"rationale"`
}

// parseVerdict extracts the JSON object from the model output, tolerating
// stray text around it, and validates the fields.
func parseVerdict(raw string) (ContentScore, error) {
	match := verdictPattern.FindString(raw)
	if match == "" {
		return ContentScore{}, errUnparsableVerdict
	}
	var payload verdictPayload
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return ContentScore{}, fmt.Errorf("%w: %v", errUnparsableVerdict, err)
	}
	rationale := strings.TrimSpace(payload.Rationale)
	if payload.Score == nil || rationale == "" {
		return ContentScore{}, errUnparsableVerdict
	}
	return ContentScore{Score: Clamp(*payload.Score), Rationale: rationale}, nil
}
