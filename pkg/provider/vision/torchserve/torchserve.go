// Package torchserve provides a vision provider backed by a TorchServe-style
// inference server.
//
// The server is expected to expose POST /predictions/{model} accepting raw
// image bytes and returning a JSON object mapping class labels to softmax
// probabilities:
//
//	{"Tomato___Late_blight": 0.93, "Tomato___Early_blight": 0.04, ...}
//
// The provider picks the highest-probability entry as the top prediction.
//
// Usage:
//
//	p, err := torchserve.New("http://localhost:8080", "leafdoc",
//	    torchserve.WithTimeout(10*time.Second),
//	)
//	pred, err := p.Classify(ctx, imageBytes)
package torchserve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/verdantlabs/leafdoc/pkg/provider/vision"
)

const defaultTimeout = 30 * time.Second

// Compile-time assertion that Provider implements vision.Provider.
var _ vision.Provider = (*Provider)(nil)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client entirely. Mainly useful
// for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements vision.Provider against a TorchServe inference endpoint.
// Safe for concurrent use.
type Provider struct {
	serverURL  string
	model      string
	httpClient *http.Client
}

// New creates a Provider that sends images to the TorchServe instance at
// serverURL (e.g., "http://localhost:8080") using the named model. Both
// serverURL and model must be non-empty.
func New(serverURL, model string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("torchserve: serverURL must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("torchserve: model must not be empty")
	}
	p := &Provider{
		serverURL:  serverURL,
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Classify implements vision.Provider. It POSTs the raw image bytes and
// returns the label with the highest reported probability.
func (p *Provider) Classify(ctx context.Context, image []byte) (vision.Prediction, error) {
	if len(image) == 0 {
		return vision.Prediction{}, fmt.Errorf("torchserve: image must not be empty")
	}

	url := p.serverURL + "/predictions/" + p.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return vision.Prediction{}, fmt.Errorf("torchserve: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return vision.Prediction{}, fmt.Errorf("torchserve: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return vision.Prediction{}, fmt.Errorf("torchserve: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return vision.Prediction{}, fmt.Errorf("torchserve: server returned %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var scores map[string]float64
	if err := json.Unmarshal(body, &scores); err != nil {
		return vision.Prediction{}, fmt.Errorf("torchserve: decode response: %w", err)
	}

	var best vision.Prediction
	for label, prob := range scores {
		if prob > best.Confidence || (prob == best.Confidence && label < best.Label) {
			best = vision.Prediction{Label: label, Confidence: prob}
		}
	}
	return best, nil
}

// truncate returns at most n bytes of b as a string, for error messages.
func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
