package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings a command needs before it starts. mode is the
// command name.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "analyze":
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Anthropic.Model == "" {
			errs = append(errs, "anthropic.model is required")
		}
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 32 {
			errs = append(errs, "batch.concurrency must be between 1 and 32")
		}
		switch c.Batch.OnNarrativeError {
		case OnErrorDegrade, OnErrorAbort:
		default:
			errs = append(errs, fmt.Sprintf("batch.on_narrative_error must be %s or %s", OnErrorDegrade, OnErrorAbort))
		}
		if c.Narrative.TimeoutSecs <= 0 {
			errs = append(errs, "narrative.timeout_secs must be > 0")
		}
		if c.Narrative.RequestsPerSecond < 0 {
			errs = append(errs, "narrative.requests_per_second must be >= 0")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Cache.TTLSecs < 0 {
			errs = append(errs, "cache.ttl_secs must be >= 0")
		}
	case "profile", "browse", "export", "seed", "migrate", "import", "status":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
