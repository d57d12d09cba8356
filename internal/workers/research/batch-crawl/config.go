// internal/workers/research/batch-crawl/config.go
package batchcrawl

import "time"

type Config struct {
	Formats         []string
	PollInterval    time.Duration
	MaxPollAttempts int
	// MaxPollErrors is the number of consecutive failed status checks
	// tolerated before giving up.
	MaxPollErrors int
	Timeout       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Formats:         []string{"markdown"},
		PollInterval:    2 * time.Second,
		MaxPollAttempts: 150,
		MaxPollErrors:   3,
		Timeout:         5 * time.Minute,
	}
}
