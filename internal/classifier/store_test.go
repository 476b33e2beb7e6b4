package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
)

const sampleRulesYAML = `rules:
  - match_key: azoom
    category: تسوق
    type: purchase
  - match_key: راتب
    category: رواتب
    is_incoming: true
    owner_scope: shafi
`

func writeRulesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestYAMLRuleStoreLoads(t *testing.T) {
	store := NewYAMLRuleStore(writeRulesFile(t, sampleRulesYAML), time.Minute, logging.NewMockLogger())

	rules, err := store.Rules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "azoom", rules[0].MatchKey)
	assert.Equal(t, "تسوق", rules[0].Category)
	assert.Nil(t, rules[0].IsIncoming)

	require.NotNil(t, rules[1].IsIncoming)
	assert.True(t, *rules[1].IsIncoming)
	assert.Equal(t, "shafi", rules[1].OwnerScope)
}

func TestYAMLRuleStoreMissingFile(t *testing.T) {
	logger := logging.NewMockLogger()
	store := NewYAMLRuleStore(filepath.Join(t.TempDir(), "absent.yaml"), time.Minute, logger)

	rules, err := store.Rules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rules)
	assert.True(t, logger.HasMessage("Classifier rules file not found"))
}

func TestYAMLRuleStoreMalformedFile(t *testing.T) {
	store := NewYAMLRuleStore(writeRulesFile(t, "rules: [unclosed"), time.Minute, logging.NewMockLogger())
	_, err := store.Rules(context.Background())
	assert.Error(t, err)
}

func TestYAMLRuleStoreCachesWithinTTL(t *testing.T) {
	path := writeRulesFile(t, sampleRulesYAML)
	store := NewYAMLRuleStore(path, time.Minute, logging.NewMockLogger())

	now := time.Now()
	store.now = func() time.Time { return now }

	first, err := store.Rules(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	require.NoError(t, os.WriteFile(path, []byte("rules: []\n"), 0o644))

	cached, err := store.Rules(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached, 2, "rewrite within TTL must serve the cached list")

	now = now.Add(2 * time.Minute)
	reloaded, err := store.Rules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reloaded)
}
