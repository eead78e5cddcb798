package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks cross-field constraints cleanenv cannot express.
// A missing API key is not an error here: the ingestion pipeline reports it
// per request so the rest of the API stays usable.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LLM.Provider) {
	case "openrouter", "mock":
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("llm.base_url: invalid url %q", c.LLM.BaseURL))
	}
	if !strings.HasPrefix(c.LLM.ChatPath, "/") {
		errs = append(errs, errors.New("llm.chat_path: must start with /"))
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		errs = append(errs, errors.New("llm.model: required"))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, errors.New("llm.max_attempts: must be >= 1"))
	}
	if c.LLM.ParseBudget < 1 {
		errs = append(errs, errors.New("llm.parse_budget: must be >= 1"))
	}
	if c.LLM.Backoff < 0 {
		errs = append(errs, errors.New("llm.backoff: must be >= 0"))
	}

	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn: required"))
	}

	if c.Cache.Size < 1 {
		errs = append(errs, errors.New("cache.size: must be >= 1"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry.sample_ratio: must be within [0,1]"))
	}
	if c.Ingest.MaxSourceBytes < 1 {
		errs = append(errs, errors.New("ingest.max_source_bytes: must be >= 1"))
	}
	if c.HTTP.MaxBodyBytes < int64(c.Ingest.MaxSourceBytes) {
		errs = append(errs, errors.New("http.max_body_bytes: must be >= ingest.max_source_bytes"))
	}

	return errors.Join(errs...)
}
