// Package crawl holds the batch crawling capability: submit a set of URLs
// as one job, then poll it until it reaches a terminal status.
package crawl

import (
	"context"
	"errors"

	"research-workers/internal/models"
)

// Provider is a batch scrape backend.
type Provider interface {
	// Submit starts a batch job and returns its id.
	Submit(ctx context.Context, urls []string, formats []string) (string, error)
	// Status returns the job as currently known. Documents are nil until the
	// job completes.
	Status(ctx context.Context, jobID string) (*models.BatchJob, error)
}

var (
	ErrJobRejected = errors.New("CRAWL_JOB_REJECTED")
	ErrJobNotFound = errors.New("CRAWL_JOB_NOT_FOUND")
)
