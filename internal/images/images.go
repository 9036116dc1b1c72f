// Package images is the HTTP client for the image-generation service the
// marketing logo tool uses. The service renders a prompt into image bytes;
// when no endpoint is configured the tool draws an inline placeholder
// instead, so this client is optional wiring.
package images

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
)

// RESTGenerator talks to an image-generation service over HTTP.
type RESTGenerator struct {
	baseURL    string
	httpClient *http.Client
}

// NewRESTGenerator creates a generator for the service at baseURL.
func NewRESTGenerator(baseURL string) *RESTGenerator {
	return &RESTGenerator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	ImageData string `json:"image_data"`
}

// Generate renders a prompt via POST /images and returns the image bytes.
func (g *RESTGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/images", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("image service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var generated generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}
	if generated.ImageData == "" {
		return nil, fmt.Errorf("image service returned no image")
	}

	img, err := base64.StdEncoding.DecodeString(generated.ImageData)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}
	return img, nil
}
