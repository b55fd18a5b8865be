package resilience

import (
	"time"
)

// FromRetryConfig converts millisecond config values to a RetryConfig.
// maxRetries counts retries after the first attempt.
func FromRetryConfig(maxRetries, initialDelayMs, maxDelayMs int, multiplier, jitterFraction float64) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxRetries > 0 {
		cfg.MaxAttempts = maxRetries + 1
	}
	if initialDelayMs > 0 {
		cfg.InitialBackoff = time.Duration(initialDelayMs) * time.Millisecond
	}
	if maxDelayMs > 0 {
		cfg.MaxBackoff = time.Duration(maxDelayMs) * time.Millisecond
	}
	if multiplier > 0 {
		cfg.Multiplier = multiplier
	}
	if jitterFraction >= 0 {
		cfg.JitterFraction = jitterFraction
	}
	return cfg
}

// FromCircuitConfig converts config values to a CircuitBreakerConfig.
func FromCircuitConfig(failureThreshold, cooldownMs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if cooldownMs > 0 {
		cfg.Cooldown = time.Duration(cooldownMs) * time.Millisecond
	}
	return cfg
}
