package classifier

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// rulesFile is the top-level YAML structure of rules.yaml.
type rulesFile struct {
	Rules []models.ClassifierRule `yaml:"rules"`
}

// YAMLRuleStore loads ordered classifier rules from a YAML file, rereading
// at most once per TTL. A missing file means no rules, not an error.
type YAMLRuleStore struct {
	path   string
	ttl    time.Duration
	logger logging.Logger

	mu       sync.Mutex
	cached   []models.ClassifierRule
	loadedAt time.Time
	now      func() time.Time
}

// NewYAMLRuleStore creates a rule store for the given file.
func NewYAMLRuleStore(path string, ttl time.Duration, logger logging.Logger) *YAMLRuleStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &YAMLRuleStore{
		path:   path,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Rules returns the ordered rule list.
func (s *YAMLRuleStore) Rules(_ context.Context) ([]models.ClassifierRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.loadedAt) < s.ttl {
		return s.cached, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.WithField("file", s.path).Warn("Classifier rules file not found")
			s.cached = []models.ClassifierRule{}
			s.loadedAt = s.now()
			return s.cached, nil
		}
		return nil, fmt.Errorf("classifier: read %s: %w", s.path, err)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("classifier: parse %s: %w", s.path, err)
	}

	s.cached = rf.Rules
	s.loadedAt = s.now()
	s.logger.WithField(logging.FieldCount, len(s.cached)).Debug("Loaded classifier rules")
	return s.cached, nil
}

// StaticRules is a RuleSource over a fixed in-memory list, used in tests.
type StaticRules []models.ClassifierRule

// Rules returns the static list.
func (r StaticRules) Rules(_ context.Context) ([]models.ClassifierRule, error) {
	return r, nil
}
