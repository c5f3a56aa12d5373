package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"signage-studio/internal/event"
	"signage-studio/internal/model"
	"signage-studio/internal/repository"
)

// AuditReport describes one campaign whose indices are not 0..N-1.
type AuditReport struct {
	CampaignID int64   `json:"campaign_id"`
	Entries    int     `json:"entries"`
	Misplaced  []int64 `json:"misplaced"`
	Repaired   bool    `json:"repaired"`
}

// SequenceAuditor periodically checks that every campaign sequence is
// contiguous and, when repair is enabled, renumbers it in stored order.
type SequenceAuditor struct {
	sequences repository.SequenceStore
	bus       event.Bus
	schedule  string
	repair    bool
	now       func() time.Time
	log       *slog.Logger
}

func NewSequenceAuditor(sequences repository.SequenceStore, bus event.Bus, schedule string, repair bool) *SequenceAuditor {
	return &SequenceAuditor{
		sequences: sequences,
		bus:       bus,
		schedule:  schedule,
		repair:    repair,
		now:       time.Now,
		log:       slog.With("component", "sequence.auditor"),
	}
}

// Run schedules Audit until ctx is cancelled and waits for a running audit to
// finish before returning.
func (a *SequenceAuditor) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(a.schedule, func() {
		if _, err := a.Audit(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("sequence audit failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule sequence audit %q: %w", a.schedule, err)
	}

	c.Start()
	a.log.Info("sequence auditor started", "schedule", a.schedule, "repair", a.repair)

	<-ctx.Done()
	<-c.Stop().Done()
	a.log.Info("sequence auditor stopped")
	return nil
}

// Audit inspects every sequenced campaign once.
func (a *SequenceAuditor) Audit(ctx context.Context) ([]AuditReport, error) {
	campaigns, err := a.sequences.CampaignIDs(ctx)
	if err != nil {
		return nil, err
	}

	var reports []AuditReport
	var errs []error
	for _, campaignID := range campaigns {
		report, ok, err := a.auditCampaign(ctx, campaignID)
		if err != nil {
			errs = append(errs, fmt.Errorf("campaign %d: %w", campaignID, err))
			continue
		}
		if ok {
			continue
		}
		reports = append(reports, report)
	}

	return reports, errors.Join(errs...)
}

func (a *SequenceAuditor) auditCampaign(ctx context.Context, campaignID int64) (AuditReport, bool, error) {
	entries, err := a.sequences.ListByCampaign(ctx, campaignID)
	if err != nil {
		return AuditReport{}, false, err
	}

	report := AuditReport{CampaignID: campaignID, Entries: len(entries)}
	for i, e := range entries {
		if e.SequenceIndex != i {
			report.Misplaced = append(report.Misplaced, e.TimelineID)
		}
	}
	if len(report.Misplaced) == 0 {
		return report, true, nil
	}

	a.log.Warn("sequence gap detected", "campaign_id", campaignID, "entries", len(entries), "misplaced", len(report.Misplaced))
	if !a.repair {
		return report, false, nil
	}

	stamp := uint64(a.now().UnixNano())
	fixed := make([]model.SequenceEntry, 0, len(report.Misplaced))
	for i, e := range entries {
		if e.SequenceIndex == i {
			continue
		}
		e.SequenceIndex = i
		e.Version = max(stamp, e.Version+1)
		fixed = append(fixed, e)
	}

	if err := a.sequences.Reindex(ctx, fixed); err != nil {
		return report, false, fmt.Errorf("repair: %w", err)
	}

	report.Repaired = true
	a.log.Info("sequence repaired", "campaign_id", campaignID, "updated", len(fixed))
	a.bus.Publish(event.New(event.TypeSequenceRepaired, report))
	return report, false, nil
}
