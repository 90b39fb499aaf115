package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Pair is a single (query, document text) scoring input.
type Pair struct {
	Query string `json:"query"`
	Text  string `json:"text"`
}

// CrossEncoder scores query-document pairs jointly. Higher scores mean
// higher relevance.
type CrossEncoder interface {
	// Predict scores all pairs in one batched call.
	Predict(ctx context.Context, pairs []Pair, batchSize int) ([]float64, error)

	// Release frees the resources held by the encoder.
	Release()
}

// ModelLoader instantiates a CrossEncoder for a model on a device.
type ModelLoader interface {
	Load(ctx context.Context, model, device string) (CrossEncoder, error)
}

// HTTPLoader loads cross-encoder models through a local scoring sidecar
// that fronts the actual inference runtime.
type HTTPLoader struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// HTTPLoaderOption configures an HTTPLoader.
type HTTPLoaderOption func(*HTTPLoader)

// WithHTTPClient sets a custom HTTP client. Default has a 120 second
// timeout to leave room for slow first-time model downloads.
func WithHTTPClient(client *http.Client) HTTPLoaderOption {
	return func(l *HTTPLoader) {
		if client != nil {
			l.client = client
		}
	}
}

// WithHTTPLoaderLogger sets a custom logger. Default is slog.Default().
func WithHTTPLoaderLogger(logger *slog.Logger) HTTPLoaderOption {
	return func(l *HTTPLoader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewHTTPLoader creates a loader talking to the scoring sidecar at baseURL.
func NewHTTPLoader(baseURL string, opts ...HTTPLoaderOption) *HTTPLoader {
	l := &HTTPLoader{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load asks the sidecar to load the model onto the device and returns an
// encoder bound to it.
func (l *HTTPLoader) Load(ctx context.Context, model, device string) (CrossEncoder, error) {
	req := struct {
		Model  string `json:"model"`
		Device string `json:"device"`
	}{Model: model, Device: device}

	if err := l.postJSON(ctx, "/models/load", req, nil); err != nil {
		return nil, err
	}

	l.logger.Info("cross-encoder model loaded", "model", model, "device", device)
	return &httpEncoder{loader: l, model: model}, nil
}

func (l *HTTPLoader) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("scoring sidecar returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// httpEncoder scores pairs through the sidecar's scoring endpoint.
type httpEncoder struct {
	loader *HTTPLoader
	model  string
}

func (e *httpEncoder) Predict(ctx context.Context, pairs []Pair, batchSize int) ([]float64, error) {
	req := struct {
		Model     string `json:"model"`
		Pairs     []Pair `json:"pairs"`
		BatchSize int    `json:"batch_size"`
	}{Model: e.model, Pairs: pairs, BatchSize: batchSize}

	var resp struct {
		Scores []float64 `json:"scores"`
	}
	if err := e.loader.postJSON(ctx, "/score", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Scores) != len(pairs) {
		return nil, fmt.Errorf("scoring sidecar returned %d scores for %d pairs", len(resp.Scores), len(pairs))
	}
	return resp.Scores, nil
}

func (e *httpEncoder) Release() {
	req := struct {
		Model string `json:"model"`
	}{Model: e.model}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.loader.postJSON(ctx, "/models/unload", req, nil); err != nil {
		e.loader.logger.Warn("failed to unload cross-encoder model", "model", e.model, "err", err)
	}
}
