package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Embedding backends.
const (
	ModelMock   = "mock"
	ModelLocal  = "local"
	ModelRemote = "remote"
)

// Report formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatText    = "text"
)

// Weights are the fusion weights of the four representations.
type Weights struct {
	Code      float64 `json:"code" yaml:"code"`
	Style     float64 `json:"style" yaml:"style"`
	Structure float64 `json:"structure" yaml:"structure"`
	Holistic  float64 `json:"holistic" yaml:"holistic"`
}

// RemoteConfig configures the OpenAI-compatible embedding endpoint.
type RemoteConfig struct {
	URL               string  `json:"url" yaml:"url"`
	APIKey            string  `json:"-" yaml:"-"`
	Model             string  `json:"model" yaml:"model"`
	TimeoutMs         int     `json:"timeoutMs" yaml:"timeoutMs"`
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
}

// Timeout returns the per-request deadline.
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// ExplainConfig enables LLM explanations appended to pair hints.
type ExplainConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Model    string `json:"model" yaml:"model"`
	MaxPairs int    `json:"maxPairs" yaml:"maxPairs"`
}

// QdrantConfig is used by the export command.
type QdrantConfig struct {
	URL        string `json:"url" yaml:"url"`
	APIKey     string `json:"-" yaml:"-"`
	Collection string `json:"collection" yaml:"collection"`
}

// Config is the effective configuration of one run.
type Config struct {
	Root    string   `json:"root" yaml:"root"`
	Include []string `json:"include" yaml:"include"`
	Exclude []string `json:"exclude" yaml:"exclude"`

	SimilarityThreshold     float64  `json:"similarityThreshold" yaml:"similarityThreshold"`
	HighSimilarityThreshold float64  `json:"highSimilarityThreshold" yaml:"highSimilarityThreshold"`
	MaxSimilarityThreshold  *float64 `json:"maxSimilarityThreshold,omitempty" yaml:"maxSimilarityThreshold,omitempty"`
	Limit                   int      `json:"limit" yaml:"limit"`
	MinPathDistance         int      `json:"minPathDistance" yaml:"minPathDistance"`
	CompareGlobs            []string `json:"compareGlobs" yaml:"compareGlobs"`

	Model        string       `json:"model" yaml:"model"`
	ModelPath    string       `json:"modelPath" yaml:"modelPath"`
	LocalCommand string       `json:"localCommand" yaml:"localCommand"`
	Remote       RemoteConfig `json:"remote" yaml:"remote"`
	Weight       Weights      `json:"weight" yaml:"weight"`
	Concurrency  int          `json:"concurrency" yaml:"concurrency"`

	// ModelRepo is the base URL the local model files are fetched from when
	// AutoDownloadModel is on and the model directory is incomplete.
	ModelRepo         string `json:"modelRepo" yaml:"modelRepo"`
	AutoDownloadModel bool   `json:"autoDownloadModel" yaml:"autoDownloadModel"`

	CachePath        string  `json:"cachePath" yaml:"cachePath"`
	CleanProbability float64 `json:"cleanProbability" yaml:"cleanProbability"`

	AllowIgnores                 bool     `json:"allowIgnores" yaml:"allowIgnores"`
	StyleExtensions              []string `json:"styleExtensions" yaml:"styleExtensions"`
	IgnoreComponentNamePatterns  []string `json:"ignoreComponentNamePatterns" yaml:"ignoreComponentNamePatterns"`
	IgnoreComponentUsagePatterns []string `json:"ignoreComponentUsagePatterns" yaml:"ignoreComponentUsagePatterns"`
	DisableAnalyses              []string `json:"disableAnalyses" yaml:"disableAnalyses"`

	Output        string `json:"output" yaml:"output"`
	Out           string `json:"out" yaml:"out"`
	RelativePaths bool   `json:"relativePaths" yaml:"relativePaths"`
	ShowProgress  bool   `json:"showProgress" yaml:"showProgress"`

	Explain ExplainConfig `json:"explain" yaml:"explain"`
	Qdrant  QdrantConfig  `json:"qdrant" yaml:"qdrant"`
}

// DefaultModelRepo serves the files of the default local model.
const DefaultModelRepo = "https://huggingface.co/Xenova/all-MiniLM-L6-v2/resolve/main"

// DefaultCacheFile is the cache location relative to the project root.
var DefaultCacheFile = filepath.Join(".cache", "duplicalis", "embeddings.json")

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Root:                    ".",
		Include:                 []string{"**/*.{ts,tsx,js,jsx}"},
		Exclude:                 []string{"**/node_modules/**", "**/dist/**", "**/build/**"},
		SimilarityThreshold:     0.85,
		HighSimilarityThreshold: 0.93,
		Model:                   ModelLocal,
		ModelPath:               filepath.Join("models", "all-MiniLM-L6-v2"),
		ModelRepo:               DefaultModelRepo,
		AutoDownloadModel:       true,
		Remote:                  RemoteConfig{TimeoutMs: 15000},
		Weight:                  Weights{Code: 0.4, Style: 0.2, Structure: 0.2, Holistic: 0.2},
		Concurrency:             4,
		CleanProbability:        0.1,
		AllowIgnores:            true,
		StyleExtensions:         []string{".css", ".scss", ".sass", ".less"},
		Output:                  FormatConsole,
		ShowProgress:            true,
		Explain:                 ExplainConfig{MaxPairs: 20},
	}
}

// Resolve makes the root absolute and derives paths that depend on it.
func (c *Config) Resolve() error {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("failed to resolve root: %w", err)
	}
	c.Root = root
	if c.CachePath == "" {
		c.CachePath = filepath.Join(root, DefaultCacheFile)
	} else if !filepath.IsAbs(c.CachePath) {
		c.CachePath = filepath.Join(root, c.CachePath)
	}
	return nil
}

// Validate rejects settings the pipeline cannot honor.
func (c *Config) Validate() error {
	inUnit := func(v float64) bool { return v >= 0 && v <= 1 }

	switch {
	case !inUnit(c.SimilarityThreshold):
		return fmt.Errorf("%w: similarityThreshold must be within [0,1], got %v", ErrInvalidConfig, c.SimilarityThreshold)
	case !inUnit(c.HighSimilarityThreshold):
		return fmt.Errorf("%w: highSimilarityThreshold must be within [0,1], got %v", ErrInvalidConfig, c.HighSimilarityThreshold)
	case c.HighSimilarityThreshold < c.SimilarityThreshold:
		return fmt.Errorf("%w: highSimilarityThreshold must not be below similarityThreshold", ErrInvalidConfig)
	case c.MaxSimilarityThreshold != nil && !inUnit(*c.MaxSimilarityThreshold):
		return fmt.Errorf("%w: maxSimilarityThreshold must be within [0,1], got %v", ErrInvalidConfig, *c.MaxSimilarityThreshold)
	case c.MaxSimilarityThreshold != nil && *c.MaxSimilarityThreshold < c.SimilarityThreshold:
		return fmt.Errorf("%w: maxSimilarityThreshold must not be below similarityThreshold", ErrInvalidConfig)
	case c.Limit < 0:
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidConfig)
	case c.MinPathDistance < 0:
		return fmt.Errorf("%w: minPathDistance must not be negative", ErrInvalidConfig)
	case c.Weight.Code < 0 || c.Weight.Style < 0 || c.Weight.Structure < 0 || c.Weight.Holistic < 0:
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
	case !inUnit(c.CleanProbability):
		return fmt.Errorf("%w: cleanProbability must be within [0,1], got %v", ErrInvalidConfig, c.CleanProbability)
	case !slices.Contains([]string{ModelMock, ModelLocal, ModelRemote}, c.Model):
		return fmt.Errorf("%w: unknown model %q", ErrInvalidConfig, c.Model)
	case !slices.Contains([]string{FormatConsole, FormatJSON, FormatText}, c.Output):
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, c.Output)
	case c.Remote.TimeoutMs < 0:
		return fmt.Errorf("%w: remote timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// AnalysisDisabled reports whether a label was turned off.
func (c *Config) AnalysisDisabled(label string) bool {
	return slices.Contains(c.DisableAnalyses, label)
}
