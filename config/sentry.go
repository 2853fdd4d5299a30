package config

import "github.com/kilianp07/teamcast/infra/monitoring"

// SentryConfig defines settings for Sentry error monitoring.
type SentryConfig = monitoring.Config
