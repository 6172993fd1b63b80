package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
)

const (
	defaultGoogleTranslateBaseURL = "https://translation.googleapis.com"
	defaultAzureTranslatorBaseURL = "https://api.cognitive.microsofttranslator.com"
)

// GoogleTranslateAdapter handles Google Cloud Translation (v2) requests
type GoogleTranslateAdapter struct {
	apiKey     string
	baseURL    string
	httpClient HTTPClient
}

type googleTranslateRequest struct {
	Q      []string `json:"q"`
	Source string   `json:"source,omitempty"`
	Target string   `json:"target"`
	Format string   `json:"format"`
}

type googleTranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
}

// NewGoogleTranslateAdapter creates a new Google translation adapter
func NewGoogleTranslateAdapter(apiKey, baseURL string) *GoogleTranslateAdapter {
	if baseURL == "" {
		baseURL = defaultGoogleTranslateBaseURL
	}
	return &GoogleTranslateAdapter{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

func (a *GoogleTranslateAdapter) Name() string       { return "google_cloud_ai" }
func (a *GoogleTranslateAdapter) Capability() string { return models.CapabilityTranslation }

// Call translates payload.Text into payload.TargetLanguage
func (a *GoogleTranslateAdapter) Call(ctx context.Context, op Operation, payload Payload, cfg models.ServiceConfig) (*Result, error) {
	if op != OpTranslate {
		return nil, unsupportedOperation(a.Name(), op)
	}

	req := googleTranslateRequest{
		Q:      []string{payload.Text},
		Source: payload.SourceLanguage,
		Target: googleLocale(payload.TargetLanguage, payload.Dialect),
		Format: "text",
	}
	endpoint := strings.TrimRight(cfg.ConfigString("endpoint", a.baseURL), "/") + "/language/translate/v2"

	var resp googleTranslateResponse
	if err := postJSON(ctx, a.httpClient, "Google Translate", endpoint, googleKeyHeader(a.apiKey), req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data.Translations) == 0 {
		return nil, fmt.Errorf("Google Translate returned no translations")
	}

	tr := resp.Data.Translations[0]
	return &Result{
		Text:  tr.TranslatedText,
		Model: cfg.ConfigString("model", "nmt"),
		Raw: map[string]any{
			"target":                   req.Target,
			"detected_source_language": tr.DetectedSourceLanguage,
		},
	}, nil
}

// AzureTranslatorAdapter handles Azure Translator (v3) requests
type AzureTranslatorAdapter struct {
	key        string
	region     string
	baseURL    string
	httpClient HTTPClient
}

type azureTranslateDocument struct {
	Text string `json:"Text"`
}

type azureTranslateResult struct {
	DetectedLanguage *struct {
		Language string  `json:"language"`
		Score    float64 `json:"score"`
	} `json:"detectedLanguage,omitempty"`
	Translations []struct {
		Text string `json:"text"`
		To   string `json:"to"`
	} `json:"translations"`
}

// NewAzureTranslatorAdapter creates a new Azure translation adapter
func NewAzureTranslatorAdapter(key, region, baseURL string) *AzureTranslatorAdapter {
	if baseURL == "" {
		baseURL = defaultAzureTranslatorBaseURL
	}
	return &AzureTranslatorAdapter{
		key:        key,
		region:     region,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

func (a *AzureTranslatorAdapter) Name() string       { return "azure_cognitive_services" }
func (a *AzureTranslatorAdapter) Capability() string { return models.CapabilityTranslation }

// Call translates payload.Text into payload.TargetLanguage
func (a *AzureTranslatorAdapter) Call(ctx context.Context, op Operation, payload Payload, cfg models.ServiceConfig) (*Result, error) {
	if op != OpTranslate {
		return nil, unsupportedOperation(a.Name(), op)
	}

	target := azureLocale(payload.TargetLanguage, payload.Dialect)
	query := url.Values{}
	query.Set("api-version", "3.0")
	query.Set("to", target)
	if payload.SourceLanguage != "" {
		query.Set("from", payload.SourceLanguage)
	}
	endpoint := strings.TrimRight(cfg.ConfigString("translator_endpoint", a.baseURL), "/") + "/translate?" + query.Encode()

	headers := map[string]string{"Ocp-Apim-Subscription-Key": a.key}
	if a.region != "" {
		headers["Ocp-Apim-Subscription-Region"] = a.region
	}

	var resp []azureTranslateResult
	body := []azureTranslateDocument{{Text: payload.Text}}
	if err := postJSON(ctx, a.httpClient, "Azure Translator", endpoint, headers, body, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 || len(resp[0].Translations) == 0 {
		return nil, fmt.Errorf("Azure Translator returned no translations")
	}

	raw := map[string]any{"target": target}
	if resp[0].DetectedLanguage != nil {
		raw["detected_source_language"] = resp[0].DetectedLanguage.Language
	}
	return &Result{
		Text:  resp[0].Translations[0].Text,
		Model: "translator-v3",
		Raw:   raw,
	}, nil
}

// googleLocale maps a Portuguese target plus dialect to a Google language code.
// Google's plain "pt" is Brazilian Portuguese.
func googleLocale(target, dialect string) string {
	if !isPortuguese(target) {
		return target
	}
	if dialect == "continental" {
		return "pt-PT"
	}
	return "pt"
}

// azureLocale maps a Portuguese target plus dialect to an Azure language code.
// Azure's plain "pt" is Brazilian Portuguese.
func azureLocale(target, dialect string) string {
	if !isPortuguese(target) {
		return target
	}
	if dialect == "continental" {
		return "pt-pt"
	}
	return "pt"
}

func isPortuguese(lang string) bool {
	lang = strings.ToLower(lang)
	return lang == "pt" || strings.HasPrefix(lang, "pt-")
}
