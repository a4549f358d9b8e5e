// Package status owns every write of an article's deposit status.
package status

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"K10PlusExport/internal/domain"
	"K10PlusExport/internal/ports"
)

// Event drives a status transition.
type Event uint8

const (
	EventDepositSucceeded Event = iota
	EventDepositFailed
	EventMarkRegistered
	EventMarkUnregistered
)

func (e Event) String() string {
	switch e {
	case EventDepositSucceeded:
		return "depositSucceeded"
	case EventDepositFailed:
		return "depositFailed"
	case EventMarkRegistered:
		return "markRegistered"
	case EventMarkUnregistered:
		return "markUnregistered"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// Next returns the status reached by applying event. Every event is accepted
// from every status, so the current status does not influence the target.
func Next(_ domain.DepositStatus, event Event) (domain.DepositStatus, error) {
	switch event {
	case EventDepositSucceeded:
		return domain.StatusRegistered, nil
	case EventDepositFailed:
		return domain.StatusFailed, nil
	case EventMarkRegistered:
		return domain.StatusMarkedRegistered, nil
	case EventMarkUnregistered:
		return domain.StatusMarkedUnregistered, nil
	default:
		return 0, fmt.Errorf("unknown status event %d", uint8(event))
	}
}

// Store applies transitions on top of a StatusRepository.
type Store struct {
	repo   ports.StatusRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewStore wraps repo. A nil logger discards transition logs.
func NewStore(repo ports.StatusRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{repo: repo, now: time.Now, logger: logger}
}

// Get returns the stored record, or NotDeposited for unseen articles.
func (s *Store) Get(ctx context.Context, articleID int64) (domain.StatusRecord, error) {
	record, found, err := s.repo.LoadStatus(ctx, articleID)
	if err != nil {
		return domain.StatusRecord{}, fmt.Errorf("load status %d: %w", articleID, err)
	}
	if !found {
		return domain.StatusRecord{Status: domain.StatusNotDeposited}, nil
	}
	return record, nil
}

// RecordDepositSuccess moves the article to Registered.
func (s *Store) RecordDepositSuccess(ctx context.Context, articleID int64) error {
	return s.apply(ctx, articleID, EventDepositSucceeded, "")
}

// RecordDepositFailure moves the article to Failed and keeps message.
func (s *Store) RecordDepositFailure(ctx context.Context, articleID int64, message string) error {
	return s.apply(ctx, articleID, EventDepositFailed, message)
}

// MarkRegistered records an operator override that the article is in the
// catalog.
func (s *Store) MarkRegistered(ctx context.Context, articleID int64) error {
	return s.apply(ctx, articleID, EventMarkRegistered, "")
}

// MarkUnregistered queues the article for the next scheduled deposit.
func (s *Store) MarkUnregistered(ctx context.Context, articleID int64) error {
	return s.apply(ctx, articleID, EventMarkUnregistered, "")
}

func (s *Store) apply(ctx context.Context, articleID int64, event Event, message string) error {
	current, err := s.Get(ctx, articleID)
	if err != nil {
		return err
	}

	next, err := Next(current.Status, event)
	if err != nil {
		return err
	}

	record := domain.StatusRecord{Status: next, UpdatedAt: s.now().UTC()}
	if next == domain.StatusFailed {
		record.LastError = message
	}

	if err := s.repo.SaveStatus(ctx, articleID, record); err != nil {
		return fmt.Errorf("save status %d: %w", articleID, err)
	}

	s.logger.Debug("status changed",
		"article_id", articleID,
		"event", event.String(),
		"from", current.Status.String(),
		"to", next.String())
	return nil
}
