package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RESTProvider talks to an external sandbox service over HTTP.
type RESTProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewRESTProvider creates a provider for the sandbox service at baseURL.
func NewRESTProvider(baseURL string) *RESTProvider {
	return &RESTProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

type createResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Create provisions a new sandbox via POST /sandboxes.
func (p *RESTProvider) Create(ctx context.Context) (*Handle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/sandboxes", nil)
	if err != nil {
		return nil, fmt.Errorf("create sandbox request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create sandbox: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sandbox service returned status %d: %s", resp.StatusCode, string(body))
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decode sandbox response: %w", err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("sandbox service returned empty id")
	}

	return &Handle{ID: created.ID, URL: created.URL, CreatedAt: time.Now()}, nil
}

// Write overlays files via POST /sandboxes/{id}/files.
func (p *RESTProvider) Write(ctx context.Context, id string, files []File) error {
	body, err := json.Marshal(map[string][]File{"files": files})
	if err != nil {
		return fmt.Errorf("marshal file payload: %w", err)
	}

	url := fmt.Sprintf("%s/sandboxes/%s/files", p.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create write request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("write files to sandbox %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sandbox service returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// Destroy tears down a sandbox via DELETE /sandboxes/{id}.
func (p *RESTProvider) Destroy(ctx context.Context, id string) error {
	url := fmt.Sprintf("%s/sandboxes/%s", p.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create destroy request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("destroy sandbox %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sandbox service returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
