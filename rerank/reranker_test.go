package rerank_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lokalrag/rerank"
	"github.com/poiesic/lokalrag/rerank/mock"
)

func newTestReranker(t *testing.T, config rerank.Config, loader rerank.ModelLoader) *rerank.ReRanker {
	t.Helper()
	r, err := rerank.New(config, loader, rerank.WithDeviceDetector(fixedDetector{device: rerank.DeviceCPU}))
	require.NoError(t, err)
	return r
}

type fixedDetector struct {
	device string
	calls  *int
}

func (d fixedDetector) Detect() (string, error) {
	if d.calls != nil {
		*d.calls++
	}
	return d.device, nil
}

type failingDetector struct{}

func (failingDetector) Detect() (string, error) {
	return "", errors.New("probe unavailable")
}

func docs(texts ...string) []*rerank.Document {
	out := make([]*rerank.Document, len(texts))
	for i, text := range texts {
		out[i] = &rerank.Document{Text: text}
	}
	return out
}

func TestNewRequiresLoader(t *testing.T) {
	_, err := rerank.New(rerank.DefaultConfig(), nil)
	assert.ErrorIs(t, err, rerank.ErrLoaderRequired)
}

func TestRerankEmptyInputSkipsLoad(t *testing.T) {
	loader := mock.NewMockLoader()
	r := newTestReranker(t, rerank.DefaultConfig(), loader)

	results, err := r.Rerank(context.Background(), "query", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, loader.LoadCount())
	assert.False(t, r.GetInfo().Loaded)
}

func TestRerankOrdersByScore(t *testing.T) {
	loader := mock.NewMockLoader()
	r := newTestReranker(t, rerank.DefaultConfig(), loader)

	input := docs(
		"the cat sat on the mat",
		"gradient descent optimization techniques",
		"optimization of gradient based learning",
	)

	results, err := r.Rerank(context.Background(), "gradient descent optimization", input, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "gradient descent optimization techniques", results[0].Text)
	assert.True(t, results[0].Reranked)
	assert.GreaterOrEqual(t, results[0].RerankScore, results[1].RerankScore)
}

func TestRerankLoadsOnce(t *testing.T) {
	loader := mock.NewMockLoader()
	r := newTestReranker(t, rerank.DefaultConfig(), loader)
	ctx := context.Background()

	_, err := r.Rerank(ctx, "query", docs("query text"), 5)
	require.NoError(t, err)
	_, err = r.Rerank(ctx, "query", docs("query text"), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, loader.LoadCount())
}

func TestRerankThresholdBeforeTruncation(t *testing.T) {
	loader := mock.NewMockLoader()
	loader.LoadFunc = func(ctx context.Context, model, device string) (rerank.CrossEncoder, error) {
		encoder := mock.NewMockEncoder()
		encoder.PredictFunc = func(ctx context.Context, pairs []rerank.Pair, batchSize int) ([]float64, error) {
			return []float64{0.9, 0.2, 0.8}, nil
		}
		return encoder, nil
	}

	config := rerank.DefaultConfig().WithThreshold(0.5)
	r := newTestReranker(t, config, loader)

	results, err := r.Rerank(context.Background(), "query", docs("a", "b", "c"), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.9, results[0].RerankScore)
	assert.Equal(t, 0.8, results[1].RerankScore)
}

func TestRerankScoringFailureDegrades(t *testing.T) {
	loader := mock.NewMockLoader()
	loader.LoadFunc = func(ctx context.Context, model, device string) (rerank.CrossEncoder, error) {
		encoder := mock.NewMockEncoder()
		encoder.PredictFunc = func(ctx context.Context, pairs []rerank.Pair, batchSize int) ([]float64, error) {
			return nil, errors.New("inference backend crashed")
		}
		return encoder, nil
	}
	r := newTestReranker(t, rerank.DefaultConfig(), loader)

	input := docs("first", "second", "third")
	results, err := r.Rerank(context.Background(), "query", input, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Text)
	assert.False(t, results[0].Reranked)

	// Degraded calls do not count toward metrics.
	assert.Equal(t, 0, r.GetInfo().Metrics.TotalReranks)
}

func TestRerankLoadFailure(t *testing.T) {
	loader := mock.NewMockLoader()
	failing := true
	loader.LoadFunc = func(ctx context.Context, model, device string) (rerank.CrossEncoder, error) {
		if failing {
			return nil, errors.New("model download failed")
		}
		return mock.NewMockEncoder(), nil
	}
	r := newTestReranker(t, rerank.DefaultConfig(), loader)
	ctx := context.Background()

	_, err := r.Rerank(ctx, "query", docs("text"), 5)
	var loadErr *rerank.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.False(t, r.GetInfo().Loaded)

	// The instance is usable once the loader recovers.
	failing = false
	_, err = r.Rerank(ctx, "query", docs("text"), 5)
	assert.NoError(t, err)
	assert.True(t, r.GetInfo().Loaded)
}

func TestUnloadAndReload(t *testing.T) {
	loader := mock.NewMockLoader()
	calls := 0
	r, err := rerank.New(rerank.DefaultConfig(), loader,
		rerank.WithDeviceDetector(fixedDetector{device: rerank.DeviceCPU, calls: &calls}))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = r.Rerank(ctx, "query", docs("text"), 5)
	require.NoError(t, err)
	encoder := loader.LastEncoder()

	r.Unload()
	assert.True(t, encoder.Released())
	assert.False(t, r.GetInfo().Loaded)

	_, err = r.Rerank(ctx, "query", docs("text"), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.LoadCount())

	// Device detection happens once; the resolved device survives Unload.
	assert.Equal(t, 1, calls)
}

func TestExplicitDeviceSkipsDetection(t *testing.T) {
	loader := mock.NewMockLoader()
	calls := 0
	config := rerank.DefaultConfig().WithDevice(rerank.DeviceCUDA)
	r, err := rerank.New(config, loader,
		rerank.WithDeviceDetector(fixedDetector{device: rerank.DeviceCPU, calls: &calls}))
	require.NoError(t, err)

	_, err = r.Rerank(context.Background(), "query", docs("text"), 5)
	require.NoError(t, err)
	assert.Equal(t, rerank.DeviceCUDA, loader.LastDevice())
	assert.Equal(t, 0, calls)
}

func TestDetectionFailureFallsBackToCPU(t *testing.T) {
	loader := mock.NewMockLoader()
	r, err := rerank.New(rerank.DefaultConfig(), loader,
		rerank.WithDeviceDetector(failingDetector{}))
	require.NoError(t, err)

	_, err = r.Rerank(context.Background(), "query", docs("text"), 5)
	require.NoError(t, err)
	assert.Equal(t, rerank.DeviceCPU, loader.LastDevice())
}

func TestGetInfo(t *testing.T) {
	loader := mock.NewMockLoader()
	r := newTestReranker(t, rerank.DefaultConfig(), loader)

	info := r.GetInfo()
	assert.False(t, info.Loaded)
	assert.Equal(t, rerank.DeviceAuto, info.Device)
	assert.Equal(t, 0, info.Metrics.TotalReranks)
	assert.Empty(t, info.MemoryMB)

	_, err := r.Rerank(context.Background(), "query", docs("query text"), 5)
	require.NoError(t, err)

	info = r.GetInfo()
	assert.True(t, info.Loaded)
	assert.Equal(t, rerank.DeviceCPU, info.Device)
	assert.Equal(t, 1, info.Metrics.TotalReranks)
	assert.NotEmpty(t, info.MemoryMB)
}

func TestTestLatency(t *testing.T) {
	loader := mock.NewMockLoader()
	r := newTestReranker(t, rerank.DefaultConfig(), loader)

	report, err := r.TestLatency(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 10, report.NumDocs)
	assert.Equal(t, rerank.DeviceCPU, report.Device)
	assert.GreaterOrEqual(t, report.RerankTimeMs, 0.0)
	assert.GreaterOrEqual(t, report.MsPerDoc, 0.0)
}

func TestConfigValidation(t *testing.T) {
	loader := mock.NewMockLoader()

	_, err := rerank.New(rerank.DefaultConfig().WithLimits(5, 25), loader)
	assert.Error(t, err)

	_, err = rerank.New(rerank.DefaultConfig().WithThreshold(1.5), loader)
	assert.Error(t, err)
}
