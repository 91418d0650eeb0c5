package container

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/docextract/internal/application/service"
	"github.com/garyjia/docextract/internal/config"
	"github.com/garyjia/docextract/internal/models"
)

func testConfig(t *testing.T, dbPath string) *config.Config {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.Path = dbPath
	cfg.OpenAI.APIKey = ""
	return cfg
}

func TestNewContainer_RequiresConfigAndLogger(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(testConfig(t, ""), nil)
	assert.Error(t, err)
}

func TestContainer_WithStorage(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "docs.db"))
	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	assert.True(t, c.Ready())
	assert.Error(t, c.Start(ctx), "second start must fail")

	health := c.Health(ctx)
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.Equal(t, "disabled", health.Components["ai_tier"].Message)

	result, err := c.Service().ExtractText(ctx, "po.txt", "Invoice # 4411\nTotal: $10.00\n")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Record.ID)

	records, err := c.Service().ListDocuments(ctx, models.DocumentFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestContainer_WithoutStorage(t *testing.T) {
	c, err := NewContainer(testConfig(t, ""), zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	assert.Equal(t, "disabled", c.Health(ctx).Components["database"].Message)

	result, err := c.Service().ExtractText(ctx, "po.txt", "Invoice # 4411\nTotal: $10.00\n")
	require.NoError(t, err)
	assert.Empty(t, result.Record.ID)

	_, err = c.Service().ListDocuments(ctx, models.DocumentFilter{})
	assert.ErrorIs(t, err, service.ErrStorageDisabled)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Start(ctx), "start after close must fail")
}

func TestProvideEngine_AppliesConfig(t *testing.T) {
	engine := ProvideEngine(config.ExtractionConfig{ReviewThreshold: 0.85}, zap.NewNop())
	assert.Equal(t, 0.85, engine.Triage().ReviewThreshold)
}
