// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rerank

import "fmt"

// Config holds re-ranking configuration.
type Config struct {
	// Enabled toggles re-ranking globally.
	Enabled bool `json:"enabled"`

	// Model is the cross-encoder model identifier.
	Model string `json:"model"`

	// Device selects the inference device: "auto", "cpu", "mps" or "cuda".
	Device string `json:"device"`

	// DefaultTopK is the number of Stage-1 candidates retrieved for re-ranking.
	DefaultTopK int `json:"default_top_k"`

	// DefaultTopN is the number of results returned after re-ranking.
	DefaultTopN int `json:"default_top_n"`

	// BatchSize is the scoring batch size.
	BatchSize int `json:"batch_size"`

	// CacheModel keeps the model in memory after loading.
	CacheModel bool `json:"cache_model"`

	// Threshold drops results scoring below it. Zero disables filtering.
	Threshold float64 `json:"threshold"`
}

// DefaultConfig returns the default re-ranking configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Model:       "jinaai/jina-reranker-v2-base-multilingual",
		Device:      "auto",
		DefaultTopK: 25,
		DefaultTopN: 5,
		BatchSize:   16,
		CacheModel:  true,
		Threshold:   0.0,
	}
}

// Validate checks the configuration for internally inconsistent values.
func (c Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("rerank model must not be empty")
	}
	if c.DefaultTopK <= 0 {
		return fmt.Errorf("default_top_k must be positive, got %d", c.DefaultTopK)
	}
	if c.DefaultTopN <= 0 {
		return fmt.Errorf("default_top_n must be positive, got %d", c.DefaultTopN)
	}
	if c.DefaultTopN > c.DefaultTopK {
		return fmt.Errorf("default_top_n (%d) must not exceed default_top_k (%d)", c.DefaultTopN, c.DefaultTopK)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0, 1], got %g", c.Threshold)
	}
	return nil
}

// WithEnabled returns a copy of the configuration with Enabled set.
func (c Config) WithEnabled(enabled bool) Config {
	c.Enabled = enabled
	return c
}

// WithDevice returns a copy of the configuration with the device set.
func (c Config) WithDevice(device string) Config {
	c.Device = device
	return c
}

// WithThreshold returns a copy of the configuration with the threshold set.
func (c Config) WithThreshold(threshold float64) Config {
	c.Threshold = threshold
	return c
}

// WithLimits returns a copy of the configuration with retrieval limits set.
func (c Config) WithLimits(topK, topN int) Config {
	c.DefaultTopK = topK
	c.DefaultTopN = topN
	return c
}
