// Package config loads the optional repo-root .loupe file. A missing
// or unreadable config never fails a command; defaults apply.
package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up at the repository root.
const FileName = ".loupe"

// IgnoreFileName lists extra ignore patterns, one per line.
const IgnoreFileName = ".loupeignore"

type Config struct {
	Search    Search    `yaml:"search"`
	Summarize Summarize `yaml:"summarize"`
	// Ignore holds extra glob patterns skipped during discovery.
	Ignore []string `yaml:"ignore"`
}

// Search tunes BM25 ranking.
type Search struct {
	K1         float64 `yaml:"k1"`
	B          float64 `yaml:"b"`
	MaxResults int     `yaml:"max_results"`
}

// Summarize configures the summary generator service.
type Summarize struct {
	Endpoint          string  `yaml:"endpoint"`
	Model             string  `yaml:"model"`
	BatchSize         int     `yaml:"batch_size"`
	Concurrency       int     `yaml:"concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

func Default() Config {
	return Config{
		Search: Search{K1: 1.5, B: 0.75, MaxResults: 20},
		Summarize: Summarize{
			Endpoint:          "http://localhost:11434",
			Model:             "qwen2.5-coder",
			BatchSize:         8,
			Concurrency:       4,
			RequestsPerSecond: 4,
		},
	}
}

// Load reads <root>/.loupe, merging it over the defaults. Malformed
// YAML or unset fields fall back to default values.
func Load(root string) Config {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		return cfg
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		slog.Warn("config.parse.err", "file", FileName, "err", err)
		return cfg
	}

	if loaded.Search.K1 > 0 {
		cfg.Search.K1 = loaded.Search.K1
	}
	if loaded.Search.B > 0 {
		cfg.Search.B = loaded.Search.B
	}
	if loaded.Search.MaxResults > 0 {
		cfg.Search.MaxResults = loaded.Search.MaxResults
	}
	if loaded.Summarize.Endpoint != "" {
		cfg.Summarize.Endpoint = loaded.Summarize.Endpoint
	}
	if loaded.Summarize.Model != "" {
		cfg.Summarize.Model = loaded.Summarize.Model
	}
	if loaded.Summarize.BatchSize > 0 {
		cfg.Summarize.BatchSize = loaded.Summarize.BatchSize
	}
	if loaded.Summarize.Concurrency > 0 {
		cfg.Summarize.Concurrency = loaded.Summarize.Concurrency
	}
	if loaded.Summarize.RequestsPerSecond > 0 {
		cfg.Summarize.RequestsPerSecond = loaded.Summarize.RequestsPerSecond
	}
	cfg.Ignore = append(cfg.Ignore, loaded.Ignore...)

	return cfg
}

// IgnoreFile returns the path of the repo's ignore file if present.
func IgnoreFile(root string) string {
	path := filepath.Join(root, IgnoreFileName)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
