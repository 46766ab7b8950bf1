package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/repository"
	"golang.org/x/sync/errgroup"
)

const digestListLimit = 10

// DigestSummary is what one digest run reports. Counts are exact; the lists
// hold at most digestListLimit entries each, newest first.
type DigestSummary struct {
	Frequency          domain.DigestFrequency
	Since              time.Time
	Until              time.Time
	JobCount           int
	TenderCount        int
	TotalApplications  int
	JobApplications    []domain.ApplicationSummary
	TenderApplications []domain.ApplicationSummary
}

func (s DigestSummary) IsEmpty() bool {
	return s.TotalApplications == 0
}

// DigestWindowStart returns the inclusive lower bound of the digest window.
func DigestWindowStart(freq domain.DigestFrequency, now time.Time) (time.Time, error) {
	switch freq {
	case domain.DigestDaily:
		return now.Add(-24 * time.Hour), nil
	case domain.DigestWeekly:
		return now.Add(-7 * 24 * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("%w: digest frequency must be daily or weekly, got %q", domain.ErrValidation, freq)
}

type DigestAggregator struct {
	applications repository.ApplicationRepository
}

func NewDigestAggregator(applications repository.ApplicationRepository) *DigestAggregator {
	return &DigestAggregator{applications: applications}
}

func (a *DigestAggregator) Aggregate(ctx context.Context, freq domain.DigestFrequency, now time.Time) (DigestSummary, error) {
	since, err := DigestWindowStart(freq, now)
	if err != nil {
		return DigestSummary{}, err
	}

	summary := DigestSummary{
		Frequency: freq,
		Since:     since.UTC(),
		Until:     now.UTC(),
	}

	var jobCount, tenderCount int64
	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := a.applications.ListSince(groupCtx, domain.ApplicationKindJob, since, digestListLimit)
		if err != nil {
			return fmt.Errorf("failed to list job applications: %w", err)
		}
		summary.JobApplications = items
		return nil
	})
	g.Go(func() error {
		n, err := a.applications.CountSince(groupCtx, domain.ApplicationKindJob, since)
		if err != nil {
			return fmt.Errorf("failed to count job applications: %w", err)
		}
		jobCount = n
		return nil
	})
	g.Go(func() error {
		items, err := a.applications.ListSince(groupCtx, domain.ApplicationKindTender, since, digestListLimit)
		if err != nil {
			return fmt.Errorf("failed to list tender applications: %w", err)
		}
		summary.TenderApplications = items
		return nil
	})
	g.Go(func() error {
		n, err := a.applications.CountSince(groupCtx, domain.ApplicationKindTender, since)
		if err != nil {
			return fmt.Errorf("failed to count tender applications: %w", err)
		}
		tenderCount = n
		return nil
	})
	if err := g.Wait(); err != nil {
		return DigestSummary{}, err
	}

	summary.JobApplications = capSummaries(summary.JobApplications)
	summary.TenderApplications = capSummaries(summary.TenderApplications)
	summary.JobCount = int(jobCount)
	summary.TenderCount = int(tenderCount)
	summary.TotalApplications = summary.JobCount + summary.TenderCount
	return summary, nil
}

func capSummaries(items []domain.ApplicationSummary) []domain.ApplicationSummary {
	if items == nil {
		return []domain.ApplicationSummary{}
	}
	if len(items) > digestListLimit {
		return items[:digestListLimit]
	}
	return items
}
