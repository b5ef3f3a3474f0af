package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Prompts is the set of prompt templates used for model calls.
// CriteriaUser takes the job description; RankingUser takes the resume
// text and then the JSON-encoded criteria.
type Prompts struct {
	CriteriaSystem string
	CriteriaUser   string
	RankingSystem  string
	RankingUser    string
}

// promptFile mirrors the layout of the prompts YAML file
type promptFile struct {
	Criteria promptPair `mapstructure:"criteria"`
	Ranking  promptPair `mapstructure:"ranking"`
}

type promptPair struct {
	System string `mapstructure:"system"`
	User   string `mapstructure:"user"`
}

// PromptStore holds the active prompts. Reads are safe while a reload
// swaps in new templates.
type PromptStore struct {
	mu       sync.RWMutex
	defaults Prompts
	current  Prompts
	path     string
}

// NewPromptStore returns a store serving defaults until a file is loaded
func NewPromptStore(defaults Prompts) *PromptStore {
	return &PromptStore{defaults: defaults, current: defaults}
}

// Get returns a copy of the active prompts
func (s *PromptStore) Get() Prompts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Path returns the prompt file the store was loaded from, if any
func (s *PromptStore) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// LoadFile reads path and overlays its non-empty templates on the defaults.
// On error the active prompts are left untouched.
func (s *PromptStore) LoadFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve prompts file path '%s': %w", path, err)
	}

	prompts, err := readPromptFile(absPath, s.defaults)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = prompts
	s.path = absPath
	s.mu.Unlock()

	log.Printf("[CONFIG] Loaded prompts from file: %s", absPath)
	return nil
}

// Reload re-reads the file given to LoadFile
func (s *PromptStore) Reload() error {
	path := s.Path()
	if path == "" {
		return nil
	}
	return s.LoadFile(path)
}

func readPromptFile(path string, defaults Prompts) (Prompts, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Prompts{}, fmt.Errorf("prompts file not found: %s", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		return Prompts{}, fmt.Errorf("failed to read prompts file '%s': %w", path, err)
	}

	var file promptFile
	if err := v.Unmarshal(&file); err != nil {
		return Prompts{}, fmt.Errorf("failed to decode prompts file '%s': %w", path, err)
	}

	prompts := defaults
	overlay(&prompts.CriteriaSystem, file.Criteria.System)
	overlay(&prompts.CriteriaUser, file.Criteria.User)
	overlay(&prompts.RankingSystem, file.Ranking.System)
	overlay(&prompts.RankingUser, file.Ranking.User)

	if err := prompts.Validate(); err != nil {
		return Prompts{}, fmt.Errorf("invalid prompts file '%s': %w", path, err)
	}
	return prompts, nil
}

func overlay(target *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*target = trimmed
	}
}

// Validate checks that every template is present. User templates are
// passed to fmt.Sprintf, so they must hold exactly their %s placeholders
// and no other verbs; a literal percent sign is written %%.
func (p Prompts) Validate() error {
	checks := []struct {
		name         string
		value        string
		placeholders int
		formatted    bool
	}{
		{"criteria.system", p.CriteriaSystem, 0, false},
		{"criteria.user", p.CriteriaUser, 1, true},
		{"ranking.system", p.RankingSystem, 0, false},
		{"ranking.user", p.RankingUser, 2, true},
	}

	var problems []string
	for _, check := range checks {
		if strings.TrimSpace(check.value) == "" {
			problems = append(problems, fmt.Sprintf("%s is empty", check.name))
			continue
		}
		if !check.formatted {
			continue
		}
		got, err := countPlaceholders(check.value)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", check.name, err))
			continue
		}
		if got != check.placeholders {
			problems = append(problems, fmt.Sprintf("%s must contain %d %%s placeholder(s), found %d", check.name, check.placeholders, got))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// countPlaceholders counts %s verbs, skipping %% and rejecting anything else
func countPlaceholders(template string) (int, error) {
	count := 0
	for i := 0; i < len(template); i++ {
		if template[i] != '%' {
			continue
		}
		if i+1 == len(template) {
			return 0, fmt.Errorf("trailing %% at end of template (write %%%% for a literal percent)")
		}
		i++
		switch template[i] {
		case 's':
			count++
		case '%':
		default:
			return 0, fmt.Errorf("unsupported verb %%%c at offset %d (only %%s and %%%% are allowed)", template[i], i-1)
		}
	}
	return count, nil
}
