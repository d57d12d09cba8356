// Package audit persists the intermediate artifacts of every pipeline run:
// search results per sub-query, crawl targets before and after enrichment,
// and the final answer.
package audit

import (
	"context"
	"errors"
	"fmt"

	"research-workers/internal/common/metrics"
)

// Kind selects the audit area an artifact is written to.
type Kind string

const (
	KindSearchResults Kind = "search_result"
	KindPreCrawl      Kind = "precrawl_result"
	KindFinal         Kind = "final_result"
	KindUserResponse  Kind = "user_response_result"
)

var kindDirs = map[Kind]string{
	KindSearchResults: "serpai_folder",
	KindPreCrawl:      "precrawl_results",
	KindFinal:         "final_results",
	KindUserResponse:  "user_response",
}

// Dir is the directory name of the audit area.
func (k Kind) Dir() string {
	return kindDirs[k]
}

func (k Kind) valid() bool {
	_, ok := kindDirs[k]
	return ok
}

var ErrUnknownKind = errors.New("AUDIT_UNKNOWN_KIND")

// Store persists one artifact and returns a reference to it (a file path
// or a row id).
type Store interface {
	Save(ctx context.Context, kind Kind, v interface{}) (string, error)
}

// NopStore discards everything. Used when auditing is disabled.
type NopStore struct{}

func (NopStore) Save(ctx context.Context, kind Kind, v interface{}) (string, error) {
	return "", nil
}

// MultiStore writes to every store in order. The reference of the first
// store is returned; failures from all stores are joined.
type MultiStore []Store

func (m MultiStore) Save(ctx context.Context, kind Kind, v interface{}) (string, error) {
	var (
		ref  string
		errs []error
	)
	for i, s := range m {
		r, err := s.Save(ctx, kind, v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if i == 0 {
			ref = r
		}
	}
	return ref, errors.Join(errs...)
}

func observe(kind Kind, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.AuditWrites.WithLabelValues(string(kind), status).Inc()
}

func checkKind(kind Kind) error {
	if !kind.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil
}
