package lokalrag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lokalrag/config"
	"github.com/poiesic/lokalrag/rerank/mock"
)

func TestOpen(t *testing.T) {
	t.Run("create new knowledge base", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_kb")
		kb, err := Open(tmpDir, WithRerankLoader(mock.NewMockLoader()))
		require.NoError(t, err)
		require.NotNil(t, kb)
		defer kb.Close()

		assert.NotNil(t, kb.DocumentStore())
		assert.NotNil(t, kb.Provider())
		assert.NotNil(t, kb.ReRanker())
		assert.NotNil(t, kb.SessionRegistry())
	})

	t.Run("rerank disabled leaves reranker nil", func(t *testing.T) {
		settings := config.DefaultSettings()
		settings.Rerank = settings.Rerank.WithEnabled(false)

		kb, err := Open(filepath.Join(t.TempDir(), "test_kb"), WithSettings(settings))
		require.NoError(t, err)
		defer kb.Close()

		assert.Nil(t, kb.ReRanker())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		kb, err := Open(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, kb)
	})
}

func TestKnowledgeBase_Close(t *testing.T) {
	kb, err := Open(t.TempDir(), WithRerankLoader(mock.NewMockLoader()))
	require.NoError(t, err)

	assert.NoError(t, kb.Close())
}

func TestKnowledgeBase_FactoryMethods(t *testing.T) {
	kb, err := Open(t.TempDir(), WithRerankLoader(mock.NewMockLoader()))
	require.NoError(t, err)
	defer kb.Close()

	t.Run("can create search pipeline", func(t *testing.T) {
		pipeline, err := kb.NewSearchPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		assert.True(t, pipeline.GetPipelineInfo().RerankerEnabled)
	})

	t.Run("can create chat", func(t *testing.T) {
		c, err := kb.NewChat()
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Same(t, kb.SessionRegistry(), c.Registry())
	})
}
