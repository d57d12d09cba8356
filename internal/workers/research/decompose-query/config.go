// internal/workers/research/decompose-query/config.go
package decomposequery

import "time"

type Config struct {
	MaxSubQueries int
	MaxAttempts   int
	MinWords      int
	Timeout       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxSubQueries: 3,
		MaxAttempts:   2,
		MinWords:      3,
		Timeout:       60 * time.Second,
	}
}
