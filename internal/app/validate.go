package app

import (
	"fmt"
	"os"

	"arenachat/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// and focused so callers can surface user-friendly errors.
func validateConfig(eff config.EffectiveConfigResult) error {
	// data path must be present
	if p := eff.DBPath; p == "" {
		return fmt.Errorf("data path is empty: set --db flag, ARENACHAT_DB_PATH env, or server.db_path in config")
	}

	// TLS cert/key presence check if one is set
	cert := eff.Config.Server.TLS.CertFile
	key := eff.Config.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	// rate limit values must not be negative
	if eff.Config.Security.RateLimit.RPS < 0 {
		return fmt.Errorf("security.rate_limit.rps must not be negative")
	}
	if eff.Config.Security.RateLimit.Burst < 0 {
		return fmt.Errorf("security.rate_limit.burst must not be negative")
	}

	// retention needs an age period unless it is a dry run; the cron
	// expression itself is validated by the scheduler on start
	if eff.Config.Retention.Enabled {
		if eff.Config.Retention.Period.Duration() < 0 {
			return fmt.Errorf("retention.period must not be negative")
		}
	}

	return nil
}
