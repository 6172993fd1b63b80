package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultHTTPTimeout caps vendor HTTP calls when the context has no deadline
const defaultHTTPTimeout = 60 * time.Second

// HTTPClient is the subset of *http.Client used by the REST adapters
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// googleAPIKeyHeader carries the key for Google REST APIs. Keys stay out of
// the URL so transport errors never echo them.
const googleAPIKeyHeader = "X-Goog-Api-Key"

func googleKeyHeader(key string) map[string]string {
	return map[string]string{googleAPIKeyHeader: key}
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// postJSON sends body as JSON and decodes a 200 response into out
func postJSON(ctx context.Context, client HTTPClient, vendor, url string, headers map[string]string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", vendor, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", vendor, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s API error: %w", vendor, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", vendor, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API error (status %d): %s", vendor, httpResp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", vendor, err)
	}

	return nil
}
