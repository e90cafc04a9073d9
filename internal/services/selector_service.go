package services

import (
	"context"
	"sync"
	"time"

	"github.com/inktime/server/internal/models"
	"github.com/inktime/server/internal/observability"
	"github.com/inktime/server/internal/repository"
)

// SelectorService resolves the featured photo for a calendar day. Each day
// moves unresolved -> resolved exactly once: the first query picks a photo
// and durably writes the day's selection record; every later query for the
// same day returns that record unchanged, across restarts included.
//
// Selection order is total and documented: eligible photos (anything not
// rejected) sort by least-recently-featured first, with never-featured
// photos ahead of all featured ones, and ties broken by ascending photo ID.
type SelectorService struct {
	photos     repository.PhotoRepo
	selections repository.SelectionRepo
	hub        *WebSocketHub
	metrics    *observability.RenderMetrics

	// Guards the read-then-write sequence so two concurrent first
	// queries inside this process cannot both compute a winner. Across
	// processes the write-if-absent insert on the selections table is
	// the arbiter.
	mu sync.Mutex
}

// NewSelectorService creates a SelectorService
func NewSelectorService(photos repository.PhotoRepo, selections repository.SelectionRepo) *SelectorService {
	return &SelectorService{photos: photos, selections: selections}
}

// SetWebSocketHub sets the hub used to announce daily selections
func (s *SelectorService) SetWebSocketHub(hub *WebSocketHub) {
	s.hub = hub
}

// SetMetrics enables selection metrics
func (s *SelectorService) SetMetrics(m *observability.RenderMetrics) {
	s.metrics = m
}

// SelectToday resolves the featured photo for the current day
func (s *SelectorService) SelectToday(ctx context.Context) (*models.SelectionRecord, error) {
	return s.SelectForDay(ctx, time.Now())
}

// SelectForDay resolves the featured photo for the given day
func (s *SelectorService) SelectForDay(ctx context.Context, day time.Time) (*models.SelectionRecord, error) {
	ctx, span := observability.StartServiceSpan(ctx, "selector", "SelectForDay")
	defer span.End()

	key := models.Day(day)
	span.SetAttributes(observability.Day(key))

	// Fast path: the day is already resolved
	rec, err := s.selections.Get(ctx, key)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the lock: another request may have resolved the day
	rec, err = s.selections.Get(ctx, key)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	photo, err := s.photos.FirstEligible(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if photo == nil {
		// No record is written, so a later retry can succeed once
		// photos are approved
		return nil, models.ErrNoEligiblePhotos
	}

	rec = &models.SelectionRecord{
		Day:        key,
		PhotoID:    photo.ID,
		ResolvedAt: time.Now().UTC(),
	}

	inserted, err := s.selections.PutIfAbsent(ctx, rec)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if !inserted {
		// Lost the cross-process race; the winner's record is
		// authoritative
		winner, err := s.selections.Get(ctx, key)
		if err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
		if winner != nil {
			return winner, nil
		}
		return nil, models.PhotoError{Message: "selection record vanished after conflicting write"}
	}

	// Featuring state feeds the least-recently-featured ordering for
	// future days. A failure here must not unresolve the day.
	if err := s.photos.MarkFeatured(ctx, photo.ID, day.UTC()); err != nil {
		observability.WithContext(ctx).WithFields(map[string]interface{}{
			"photo_id": photo.ID,
			"day":      key,
		}).Warnf("Failed to mark photo featured: %v", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSelectionResolved(ctx, rec.Day)
	}

	if s.hub != nil {
		s.hub.BroadcastToTopic(TopicSelection, WSMessage{
			Type: WSTypeSelectionResolved,
			Payload: map[string]string{
				"day":     rec.Day,
				"photoId": rec.PhotoID,
			},
		})
	}

	observability.SetSuccess(span)
	return rec, nil
}
