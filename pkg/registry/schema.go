// pkg/registry/schema.go
package registry

// ActivityRegistry describes the job types a research deployment serves.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity is one Zeebe job type. Timeout uses time.ParseDuration syntax;
// Retries and MaxJobsActive of zero defer to the worker configuration.
type Activity struct {
	ID                   string   `json:"id"`
	DisplayName          string   `json:"displayName"`
	Description          string   `json:"description"`
	TaskType             string   `json:"taskType"`
	ImplementationStatus string   `json:"implementationStatus"`
	Inputs               []string `json:"inputs"`
	ErrorCodes           []string `json:"errorCodes"`
	Timeout              string   `json:"timeout"`
	Retries              int      `json:"retries"`
	MaxJobsActive        int      `json:"maxJobsActive,omitempty"`
	Workflows            []string `json:"workflows"`
	Tags                 []string `json:"tags"`
}

const (
	StatusPlanned     = "planned"
	StatusImplemented = "implemented"
	StatusDisabled    = "disabled"
)
