// internal/workers/research/search-web/config.go
package searchweb

import "time"

type Config struct {
	DefaultLimit int
	Timeout      time.Duration
}

func LoadConfig() *Config {
	return &Config{
		DefaultLimit: 5,
		Timeout:      30 * time.Second,
	}
}
