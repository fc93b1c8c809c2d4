package intents

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Intent is a named category of user meaning with example phrasings and
// candidate replies.
type Intent struct {
	Tag       string   `json:"tag" yaml:"tag"`
	Patterns  []string `json:"patterns" yaml:"patterns"`
	Responses []string `json:"responses" yaml:"responses"`
}

// Example is one training pair.
type Example struct {
	Text string
	Tag  string
}

// ConfigError reports a missing or malformed corpus file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("intents config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Corpus is the immutable set of intents loaded at startup.
type Corpus struct {
	intents []Intent
	byTag   map[string]int
}

type wrapped struct {
	Intents []Intent `json:"intents" yaml:"intents"`
}

// Load reads a JSON or YAML corpus file.
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	list, err := decode(path, data)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	c, err := New(list)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return c, nil
}

func decode(path string, data []byte) ([]Intent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty file")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var list []Intent
		if err := yaml.Unmarshal(trimmed, &list); err == nil {
			return list, nil
		}
		var w wrapped
		if err := yaml.Unmarshal(trimmed, &w); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return w.Intents, nil
	default:
		if trimmed[0] == '{' {
			var w wrapped
			if err := json.Unmarshal(trimmed, &w); err != nil {
				return nil, fmt.Errorf("parse json: %w", err)
			}
			return w.Intents, nil
		}
		var list []Intent
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return list, nil
	}
}

// New validates the intents and builds a Corpus. The slices are copied.
func New(list []Intent) (*Corpus, error) {
	if len(list) == 0 {
		return nil, errors.New("no intents defined")
	}
	c := &Corpus{
		intents: make([]Intent, 0, len(list)),
		byTag:   make(map[string]int, len(list)),
	}
	for i, in := range list {
		tag := strings.TrimSpace(in.Tag)
		if tag == "" {
			return nil, fmt.Errorf("intent #%d: empty tag", i)
		}
		if _, dup := c.byTag[tag]; dup {
			return nil, fmt.Errorf("intent %q: duplicate tag", tag)
		}
		if len(in.Patterns) == 0 {
			return nil, fmt.Errorf("intent %q: no patterns", tag)
		}
		if len(in.Responses) == 0 {
			return nil, fmt.Errorf("intent %q: no responses", tag)
		}
		for _, p := range in.Patterns {
			if strings.TrimSpace(p) == "" {
				return nil, fmt.Errorf("intent %q: blank pattern", tag)
			}
		}
		for _, r := range in.Responses {
			if strings.TrimSpace(r) == "" {
				return nil, fmt.Errorf("intent %q: blank response", tag)
			}
		}
		c.byTag[tag] = len(c.intents)
		c.intents = append(c.intents, Intent{
			Tag:       tag,
			Patterns:  append([]string(nil), in.Patterns...),
			Responses: append([]string(nil), in.Responses...),
		})
	}
	return c, nil
}

func (c *Corpus) Len() int { return len(c.intents) }

func (c *Corpus) Lookup(tag string) (Intent, bool) {
	i, ok := c.byTag[tag]
	if !ok {
		return Intent{}, false
	}
	return c.intents[i], true
}

// Tags returns the sorted tag set.
func (c *Corpus) Tags() []string {
	out := make([]string, 0, len(c.intents))
	for _, in := range c.intents {
		out = append(out, in.Tag)
	}
	sort.Strings(out)
	return out
}

// Examples flattens the corpus into (pattern, tag) pairs in file order.
func (c *Corpus) Examples() []Example {
	var out []Example
	for _, in := range c.intents {
		for _, p := range in.Patterns {
			out = append(out, Example{Text: p, Tag: in.Tag})
		}
	}
	return out
}

// Fingerprint hashes the corpus content the classifier learns from: tags and
// patterns, not responses.
func (c *Corpus) Fingerprint() string {
	h := sha256.New()
	for _, in := range c.intents {
		h.Write([]byte(in.Tag))
		h.Write([]byte{0})
		for _, p := range in.Patterns {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))
}
