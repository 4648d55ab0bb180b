package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Validate checks the configuration for values that would misbehave at
// runtime. It returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.IMDB.BaseURL) == "" {
		return fmt.Errorf("imdb.base_url must not be empty")
	}
	if c.IMDB.MinIntervalSeconds < 0 {
		return fmt.Errorf("imdb.min_interval_seconds must not be negative")
	}
	if c.Matching.AkaWeight <= 0 || c.Matching.AkaWeight > 1 {
		return fmt.Errorf("matching.aka_weight must be in (0, 1], got %v", c.Matching.AkaWeight)
	}
	if c.Matching.FirstWeight < 1 {
		return fmt.Errorf("matching.first_weight must be >= 1, got %v", c.Matching.FirstWeight)
	}
	if c.Matching.MinMatch < 0 || c.Matching.MinMatch > 1 {
		return fmt.Errorf("matching.min_match must be in [0, 1], got %v", c.Matching.MinMatch)
	}
	if c.Matching.MinDiff < 0 {
		return fmt.Errorf("matching.min_diff must not be negative, got %v", c.Matching.MinDiff)
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		return fmt.Errorf("cache.path must be set when cache.enabled is true")
	}
	for name, task := range c.Tasks {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("task names must not be empty")
		}
		if len(task.Inputs) == 0 {
			return fmt.Errorf("task %q: at least one input is required", name)
		}
		for _, pattern := range append(append([]string{}, task.Accept...), task.Reject...) {
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("task %q: invalid filter pattern %q: %w", name, pattern, err)
			}
		}
	}
	return nil
}
