package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "database connection string is required",
		})
	} else if _, err := url.Parse(c.Database.URL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "invalid database URL",
		})
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if _, err := url.Parse(c.Embedding.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "embedding.base_url",
			Message: "invalid embedding server URL",
		})
	}

	if c.Sources.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "sources.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Sources.TimeoutSecs < 1 {
		errors = append(errors, ValidationError{
			Field:   "sources.timeout_secs",
			Message: "timeout_secs must be positive",
		})
	}

	for _, raw := range append(append([]string{}, c.Sources.PDFURLs...), c.Sources.FeedURLs...) {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "sources",
				Message: fmt.Sprintf("invalid source URL: %s", raw),
			})
		}
	}

	if c.Indexer.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "indexer.max_attempts",
			Message: "max_attempts must be positive",
		})
	}

	return errors
}
