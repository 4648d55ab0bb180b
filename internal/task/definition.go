package task

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"trawler/internal/config"
)

// ErrUnknownTask reports that no task with the requested name is configured.
var ErrUnknownTask = errors.New("task: unknown task")

// Entry is one item pulled from a task input feed.
type Entry struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Year  int    `json:"year,omitempty"`
}

// Definition is a task with its filter patterns compiled.
type Definition struct {
	Name   string
	Inputs []string
	Lookup bool
	Year   int

	accept []*regexp.Regexp
	reject []*regexp.Regexp
}

// NewDefinition compiles cfg into a runnable Definition.
func NewDefinition(name string, cfg config.Task) (Definition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Definition{}, errors.New("task: name required")
	}
	if len(cfg.Inputs) == 0 {
		return Definition{}, fmt.Errorf("task %s: at least one input required", name)
	}

	def := Definition{
		Name:   name,
		Inputs: append([]string(nil), cfg.Inputs...),
		Lookup: cfg.Lookup,
		Year:   cfg.Year,
	}
	var err error
	if def.accept, err = compilePatterns(cfg.Accept); err != nil {
		return Definition{}, fmt.Errorf("task %s: accept: %w", name, err)
	}
	if def.reject, err = compilePatterns(cfg.Reject); err != nil {
		return Definition{}, fmt.Errorf("task %s: reject: %w", name, err)
	}
	return def, nil
}

// Definitions compiles every configured task, keyed by name.
func Definitions(tasks map[string]config.Task) (map[string]Definition, error) {
	out := make(map[string]Definition, len(tasks))
	for name, cfg := range tasks {
		def, err := NewDefinition(name, cfg)
		if err != nil {
			return nil, err
		}
		out[name] = def
	}
	return out, nil
}

// Accepts applies the reject-then-accept filter to an entry title. A title
// matching any reject pattern loses; otherwise an empty accept list admits
// everything, and a non-empty one requires at least one hit.
func (d Definition) Accepts(title string) bool {
	for _, re := range d.reject {
		if re.MatchString(title) {
			return false
		}
	}
	if len(d.accept) == 0 {
		return true
	}
	for _, re := range d.accept {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		out = append(out, re)
	}
	return out, nil
}
