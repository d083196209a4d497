// Package schedule starts workflows on recurring cron schedules.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spinscribe/spinscribe/pkg/engine"
	"github.com/spinscribe/spinscribe/pkg/models"
)

// Entry describes one recurring workflow: a standard 5-field cron expression
// plus the start request to submit on every tick.
type Entry struct {
	ID             string
	CronExpr       string
	WorkflowType   string
	ProjectID      string
	ChatID         string
	ContentRequest models.ContentRequest
}

func (e Entry) Validate() error {
	if e.ID == "" {
		return errors.New("schedule entry ID is required")
	}

	if e.CronExpr == "" {
		return errors.New("schedule entry cron expression is required")
	}

	if _, err := cron.ParseStandard(e.CronExpr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	if e.WorkflowType == "" {
		return errors.New("schedule entry workflow type is required")
	}

	return nil
}

// ParseEntry parses the CLI form of a schedule entry:
// "id|cron|workflow_type|project_id|chat_id|title". The trailing fields are
// optional.
func ParseEntry(spec string) (Entry, error) {
	parts := strings.Split(spec, "|")
	if len(parts) < 3 {
		return Entry{}, fmt.Errorf("invalid schedule entry %q: want id|cron|workflow_type[|project_id[|chat_id[|title]]]", spec)
	}

	entry := Entry{
		ID:           strings.TrimSpace(parts[0]),
		CronExpr:     strings.TrimSpace(parts[1]),
		WorkflowType: strings.TrimSpace(parts[2]),
	}

	if len(parts) > 3 {
		entry.ProjectID = strings.TrimSpace(parts[3])
	}

	if len(parts) > 4 {
		entry.ChatID = strings.TrimSpace(parts[4])
	}

	if len(parts) > 5 {
		entry.ContentRequest.Title = strings.TrimSpace(parts[5])
	}

	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}

	return entry, nil
}

// Scheduler owns the cron runner and submits start requests to the engine on
// each tick. Entries are validated at registration so a bad expression fails
// at startup, not at fire time.
type Scheduler struct {
	engine  *engine.Engine
	logger  *slog.Logger
	cron    *cron.Cron
	entries []Entry
}

func NewScheduler(eng *engine.Engine, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		engine: eng,
		logger: logger.With("module", "workflow_scheduler"),
	}
}

func (s *Scheduler) Add(entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.entries = append(s.entries, entry)

	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	for _, entry := range s.entries {
		id, err := s.cron.AddFunc(entry.CronExpr, s.fire(ctx, entry))
		if err != nil {
			return fmt.Errorf("failed to add cron job for schedule %s: %w", entry.ID, err)
		}

		s.logger.InfoContext(ctx, "Registered schedule",
			"schedule_id", entry.ID,
			"cron", entry.CronExpr,
			"workflow_type", entry.WorkflowType,
			"cron_entry_id", id,
		)
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) fire(ctx context.Context, entry Entry) func() {
	return func() {
		workflowID, err := s.engine.StartWorkflow(ctx, engine.StartRequest{
			WorkflowType:   entry.WorkflowType,
			ProjectID:      entry.ProjectID,
			ChatID:         entry.ChatID,
			ContentRequest: entry.ContentRequest,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Scheduled workflow failed to start",
				"schedule_id", entry.ID,
				"workflow_type", entry.WorkflowType,
				"error", err,
			)

			return
		}

		s.logger.InfoContext(ctx, "Scheduled workflow started",
			"schedule_id", entry.ID,
			"workflow_id", workflowID,
		)
	}
}

func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Stopping workflow scheduler")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	return nil
}
