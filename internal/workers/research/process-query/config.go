// internal/workers/research/process-query/config.go
package processquery

import "time"

type Config struct {
	SearchLimit       int
	ResultsPerQuery   int
	SearchConcurrency int
	// ShortCircuitOnDecomposeFailure stops the run when decomposition
	// returns its failure sentinel instead of searching for it.
	ShortCircuitOnDecomposeFailure bool
	Timeout                        time.Duration
}

func LoadConfig() *Config {
	return &Config{
		SearchLimit:                    5,
		ResultsPerQuery:                2,
		SearchConcurrency:              1,
		ShortCircuitOnDecomposeFailure: true,
		Timeout:                        10 * time.Minute,
	}
}
