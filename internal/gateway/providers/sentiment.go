package providers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
)

const defaultGoogleLanguageBaseURL = "https://language.googleapis.com"

// Document scores inside this band are reported as neutral
const neutralBand = 0.25

// GoogleLanguageAdapter handles Google Cloud Natural Language sentiment requests
type GoogleLanguageAdapter struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
}

type googleSentimentRequest struct {
	Document struct {
		Type     string `json:"type"`
		Content  string `json:"content"`
		Language string `json:"language,omitempty"`
	} `json:"document"`
	EncodingType string `json:"encodingType"`
}

type googleSentimentResponse struct {
	DocumentSentiment struct {
		Magnitude float64 `json:"magnitude"`
		Score     float64 `json:"score"`
	} `json:"documentSentiment"`
	Language string `json:"language"`
}

// NewGoogleLanguageAdapter creates a new Google sentiment adapter
func NewGoogleLanguageAdapter(apiKey, baseURL string) *GoogleLanguageAdapter {
	if baseURL == "" {
		baseURL = defaultGoogleLanguageBaseURL
	}
	return &GoogleLanguageAdapter{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

func (a *GoogleLanguageAdapter) Name() string       { return "google_cloud_ai" }
func (a *GoogleLanguageAdapter) Capability() string { return models.CapabilitySentiment }

// Call scores the sentiment of payload.Text. Google reports no confidence so
// Confidence is left at zero.
func (a *GoogleLanguageAdapter) Call(ctx context.Context, op Operation, payload Payload, cfg models.ServiceConfig) (*Result, error) {
	if op != OpAnalyzeSentiment {
		return nil, unsupportedOperation(a.Name(), op)
	}

	var req googleSentimentRequest
	req.Document.Type = "PLAIN_TEXT"
	req.Document.Content = payload.Text
	req.Document.Language = payload.Language
	req.EncodingType = "UTF8"

	endpoint := strings.TrimRight(cfg.ConfigString("language_endpoint", a.baseURL), "/") + "/v1/documents:analyzeSentiment"

	var resp googleSentimentResponse
	if err := postJSON(ctx, a.httpClient, "Google Natural Language", endpoint, googleKeyHeader(a.apiKey), req, &resp); err != nil {
		return nil, err
	}

	score := resp.DocumentSentiment.Score
	label := "neutral"
	switch {
	case score > neutralBand:
		label = "positive"
	case score < -neutralBand:
		label = "negative"
	}

	return &Result{
		Sentiment: label,
		Intensity: math.Min(resp.DocumentSentiment.Magnitude, 1),
		Model:     "natural-language-v1",
		Raw: map[string]any{
			"score":     score,
			"magnitude": resp.DocumentSentiment.Magnitude,
			"language":  resp.Language,
		},
	}, nil
}

// AzureTextAnalyticsAdapter handles Azure Text Analytics (v3.1) sentiment requests
type AzureTextAnalyticsAdapter struct {
	key        string
	baseURL    string
	httpClient HTTPClient
}

type azureSentimentRequest struct {
	Documents []azureSentimentDocument `json:"documents"`
}

type azureSentimentDocument struct {
	ID       string `json:"id"`
	Language string `json:"language,omitempty"`
	Text     string `json:"text"`
}

type azureConfidenceScores struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

type azureSentimentResponse struct {
	Documents []struct {
		ID               string                `json:"id"`
		Sentiment        string                `json:"sentiment"`
		ConfidenceScores azureConfidenceScores `json:"confidenceScores"`
	} `json:"documents"`
	Errors []struct {
		ID    string `json:"id"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"errors"`
	ModelVersion string `json:"modelVersion"`
}

// NewAzureTextAnalyticsAdapter creates a new Azure sentiment adapter. endpoint
// is the Cognitive Services resource endpoint.
func NewAzureTextAnalyticsAdapter(key, endpoint string) *AzureTextAnalyticsAdapter {
	return &AzureTextAnalyticsAdapter{
		key:        key,
		baseURL:    strings.TrimRight(endpoint, "/"),
		httpClient: newHTTPClient(),
	}
}

func (a *AzureTextAnalyticsAdapter) Name() string       { return "azure_cognitive_services" }
func (a *AzureTextAnalyticsAdapter) Capability() string { return models.CapabilitySentiment }

// Call scores the sentiment of payload.Text
func (a *AzureTextAnalyticsAdapter) Call(ctx context.Context, op Operation, payload Payload, cfg models.ServiceConfig) (*Result, error) {
	if op != OpAnalyzeSentiment {
		return nil, unsupportedOperation(a.Name(), op)
	}

	base := strings.TrimRight(cfg.ConfigString("endpoint", a.baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("azure_cognitive_services endpoint is not configured")
	}

	req := azureSentimentRequest{
		Documents: []azureSentimentDocument{{ID: "1", Language: payload.Language, Text: payload.Text}},
	}
	headers := map[string]string{"Ocp-Apim-Subscription-Key": a.key}

	var resp azureSentimentResponse
	if err := postJSON(ctx, a.httpClient, "Azure Text Analytics", base+"/text/analytics/v3.1/sentiment", headers, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("Azure Text Analytics error %s: %s", resp.Errors[0].Error.Code, resp.Errors[0].Error.Message)
	}
	if len(resp.Documents) == 0 {
		return nil, fmt.Errorf("Azure Text Analytics returned no documents")
	}

	doc := resp.Documents[0]
	return &Result{
		Sentiment:  doc.Sentiment,
		Confidence: labelConfidence(doc.Sentiment, doc.ConfidenceScores),
		Model:      resp.ModelVersion,
		Raw: map[string]any{
			"positive": doc.ConfidenceScores.Positive,
			"neutral":  doc.ConfidenceScores.Neutral,
			"negative": doc.ConfidenceScores.Negative,
		},
	}, nil
}

func labelConfidence(label string, s azureConfidenceScores) float64 {
	switch label {
	case "positive":
		return s.Positive
	case "negative":
		return s.Negative
	case "neutral":
		return s.Neutral
	}
	// mixed
	return math.Max(s.Positive, math.Max(s.Neutral, s.Negative))
}
