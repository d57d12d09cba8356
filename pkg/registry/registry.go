// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const ResearchWorkflow = "research-query"

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	return &reg, reg.Validate()
}

// LoadOrDefault reads path when set and falls back to Default otherwise.
func LoadOrDefault(path string) (*ActivityRegistry, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadRegistry(path)
}

// Find returns the activity bound to taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Enabled lists the activities whose workers should be started.
func (r *ActivityRegistry) Enabled() []Activity {
	var out []Activity
	for _, a := range r.Activities {
		if a.ImplementationStatus == StatusImplemented {
			out = append(out, a)
		}
	}
	return out
}

// Validate checks ids and task types are unique and timeouts parse.
func (r *ActivityRegistry) Validate() error {
	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, a := range r.Activities {
		if a.ID == "" || a.TaskType == "" {
			return fmt.Errorf("activity %q: id and taskType are required", a.DisplayName)
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity id: %s", a.ID)
		}
		if taskTypes[a.TaskType] {
			return fmt.Errorf("duplicate task type: %s", a.TaskType)
		}
		ids[a.ID] = true
		taskTypes[a.TaskType] = true

		if a.Retries < 0 || a.MaxJobsActive < 0 {
			return fmt.Errorf("activity %s: retries and maxJobsActive must not be negative", a.ID)
		}
		if _, err := a.TimeoutDuration(); err != nil {
			return fmt.Errorf("activity %s: %w", a.ID, err)
		}
		switch a.ImplementationStatus {
		case StatusPlanned, StatusImplemented, StatusDisabled:
		default:
			return fmt.Errorf("activity %s: unknown implementation status %q", a.ID, a.ImplementationStatus)
		}
	}
	return nil
}

// TimeoutDuration parses Timeout; an empty value is zero.
func (a Activity) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", a.Timeout, err)
	}
	return d, nil
}

// Default is the built-in registry of research pipeline activities.
func Default() *ActivityRegistry {
	activity := func(id, name, desc, timeout string, retries int, codes []string, input []string, tags ...string) Activity {
		return Activity{
			ID:                   id,
			DisplayName:          name,
			Description:          desc,
			TaskType:             id,
			ImplementationStatus: StatusImplemented,
			Inputs:               input,
			ErrorCodes:           codes,
			Timeout:              timeout,
			Retries:              retries,
			Workflows:            []string{ResearchWorkflow},
			Tags:                 tags,
		}
	}

	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-10-19T00:00:00Z",
		Activities: []Activity{
			activity("process-query", "Process Query",
				"Runs the whole research pipeline for one user query",
				"10m", 1, []string{"INVALID_QUERY", "DECOMPOSITION_FAILED", "CRAWL_FAILED", "CRAWL_TIMEOUT", "LLM_TIMEOUT", "SYNTHESIS_FAILED"},
				[]string{"query"}, "pipeline"),
			activity("decompose-query", "Decompose Query",
				"Splits a user query into three focused sub-queries",
				"60s", 0, []string{"INVALID_QUERY"}, []string{"query"}, "llm"),
			activity("search-web", "Search Web",
				"Fetches organic search results for one sub-query",
				"30s", 0, nil, []string{"query"}, "search"),
			activity("batch-crawl", "Batch Crawl",
				"Submits a batch crawl and polls it to completion",
				"5m", 2, []string{"CRAWL_FAILED", "CRAWL_TIMEOUT"}, []string{"urls"}, "crawl"),
			activity("assemble-targets", "Assemble Targets",
				"Attaches crawled markdown to targets and keeps the valid ones",
				"5s", 0, nil, []string{"targets", "contents"}, "validation"),
			activity("synthesize-answer", "Synthesize Answer",
				"Produces the structured answer from assembled data points",
				"2m", 1, []string{"LLM_TIMEOUT", "SYNTHESIS_FAILED"}, []string{"query", "dataPoints"}, "llm"),
		},
	}
}
