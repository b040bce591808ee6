// Package config defines the run configuration for a classification
// job. All fields are optional pointers so partial JSON documents only
// override what they name; the Get accessors supply defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/terralytics/landcover/internal/llm"
)

// Defaults applied by the Get accessors when a field is unset.
const (
	DefaultNumClusters   = 5
	DefaultMaxIterations = 100
	DefaultRandomSeed    = 42
	DefaultMinAreaPixels = 100
	DefaultLLMProvider   = llm.ProviderOllama
	DefaultLLMBaseURL    = "http://localhost:11434"
	DefaultLLMModel      = "llama2"
)

// RunConfig is the JSON-loadable configuration for one classification
// run.
type RunConfig struct {
	NumClusters   *int   `json:"num_clusters,omitempty"`
	MaxIterations *int   `json:"max_iterations,omitempty"`
	RandomSeed    *int64 `json:"random_seed,omitempty"`

	EnablePostprocessing *bool `json:"enable_postprocessing,omitempty"`
	MinAreaPixels        *int  `json:"min_area_pixels,omitempty"`

	EnableLLMInterpretation *bool  `json:"enable_llm_interpretation,omitempty"`
	LLMProvider             string `json:"llm_provider,omitempty"`
	LLMBaseURL              string `json:"llm_base_url,omitempty"`
	LLMAPIKey               string `json:"llm_api_key,omitempty"`
	LLMModel                string `json:"llm_model,omitempty"`

	OutputDir string `json:"output_dir,omitempty"`
}

// Load reads a RunConfig from a JSON file. Unknown fields are rejected
// so typos surface instead of silently using defaults.
func Load(path string) (*RunConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	var cfg RunConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// GetNumClusters returns the configured cluster count or the default.
func (c *RunConfig) GetNumClusters() int {
	if c != nil && c.NumClusters != nil {
		return *c.NumClusters
	}
	return DefaultNumClusters
}

// GetMaxIterations returns the iteration cap or the default.
func (c *RunConfig) GetMaxIterations() int {
	if c != nil && c.MaxIterations != nil {
		return *c.MaxIterations
	}
	return DefaultMaxIterations
}

// GetRandomSeed returns the clustering seed or the default.
func (c *RunConfig) GetRandomSeed() int64 {
	if c != nil && c.RandomSeed != nil {
		return *c.RandomSeed
	}
	return DefaultRandomSeed
}

// GetEnablePostprocessing reports whether spatial cleanup is on.
// Postprocessing is opt-in.
func (c *RunConfig) GetEnablePostprocessing() bool {
	if c != nil && c.EnablePostprocessing != nil {
		return *c.EnablePostprocessing
	}
	return false
}

// GetMinAreaPixels returns the small-region threshold or the default.
func (c *RunConfig) GetMinAreaPixels() int {
	if c != nil && c.MinAreaPixels != nil {
		return *c.MinAreaPixels
	}
	return DefaultMinAreaPixels
}

// GetEnableLLMInterpretation reports whether the remote interpreter is
// requested. Interpretation always falls back to the rule engine when
// the remote call fails, so enabling this never blocks a run.
func (c *RunConfig) GetEnableLLMInterpretation() bool {
	if c != nil && c.EnableLLMInterpretation != nil {
		return *c.EnableLLMInterpretation
	}
	return false
}

// GetLLMConfig assembles the remote generation settings with defaults.
func (c *RunConfig) GetLLMConfig() llm.Config {
	cfg := llm.Config{
		Provider: DefaultLLMProvider,
		BaseURL:  DefaultLLMBaseURL,
		Model:    DefaultLLMModel,
	}
	if c == nil {
		return cfg
	}
	if c.LLMProvider != "" {
		cfg.Provider = c.LLMProvider
	}
	if c.LLMBaseURL != "" {
		cfg.BaseURL = c.LLMBaseURL
	}
	if c.LLMModel != "" {
		cfg.Model = c.LLMModel
	}
	cfg.APIKey = c.LLMAPIKey
	return cfg
}

// GetOutputDir returns the configured artifact directory, or empty when
// none is set and the caller should derive one.
func (c *RunConfig) GetOutputDir() string {
	if c != nil {
		return c.OutputDir
	}
	return ""
}

// Validate rejects configurations the pipeline cannot run with.
func (c *RunConfig) Validate() error {
	if k := c.GetNumClusters(); k < 2 {
		return fmt.Errorf("num_clusters must be >= 2, got %d", k)
	}
	if n := c.GetMaxIterations(); n < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", n)
	}
	if n := c.GetMinAreaPixels(); n < 0 {
		return fmt.Errorf("min_area_pixels must be >= 0, got %d", n)
	}
	if c.GetEnableLLMInterpretation() {
		if _, err := llm.NewClient(c.GetLLMConfig()); err != nil {
			return fmt.Errorf("llm settings: %w", err)
		}
	}
	return nil
}
