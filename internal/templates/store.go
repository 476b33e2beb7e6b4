package templates

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
)

// ruleFile is the top-level YAML structure of templates.yaml.
type ruleFile struct {
	Templates []Rule `yaml:"templates"`
}

// Store loads template rules from a YAML file and caches the compiled
// matcher. Rules change rarely, so the compiled set is reused for a short
// TTL keyed by the file content hash.
type Store struct {
	path     string
	cacheTTL time.Duration
	logger   logging.Logger

	mu        sync.Mutex
	cached    *Matcher
	cacheKey  string
	cachedAt  time.Time
	nowFunc   func() time.Time
}

// NewStore creates a rule store for the given YAML file.
func NewStore(path string, cacheTTL time.Duration, logger logging.Logger) *Store {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Store{
		path:     path,
		cacheTTL: cacheTTL,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Matcher returns the compiled matcher for the current rule file. A missing
// file yields an empty matcher (template extraction simply never matches).
func (s *Store) Matcher() (*Matcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.nowFunc().Sub(s.cachedAt) < s.cacheTTL {
		return s.cached, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.WithField("file", s.path).Warn("Template rules file not found, extraction falls back to heuristics")
			s.cached = NewMatcher(nil, s.logger)
			s.cachedAt = s.nowFunc()
			return s.cached, nil
		}
		return nil, fmt.Errorf("templates: read %s: %w", s.path, err)
	}

	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if s.cached != nil && key == s.cacheKey {
		s.cachedAt = s.nowFunc()
		return s.cached, nil
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", s.path, err)
	}

	s.cached = NewMatcher(rf.Templates, s.logger)
	s.cacheKey = key
	s.cachedAt = s.nowFunc()
	s.logger.WithFields(
		logging.Field{Key: logging.FieldCount, Value: s.cached.Len()},
		logging.Field{Key: "file", Value: s.path},
	).Debug("Compiled template rules")
	return s.cached, nil
}
