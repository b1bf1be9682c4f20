// Package handlers implements the /api/v2 endpoints. Handlers stay thin:
// parameter extraction, one call into the application layer, response
// envelope.
package handlers

import (
	"context"
	"time"

	"songarchive-backend/application/pagination"
	"songarchive-backend/application/ports"
	"songarchive-backend/pkg/common"

	"go.uber.org/zap"
)

// navigate drives a session's paginator from the request parameters and
// returns the resulting page. Sort and page-size changes are applied before
// the navigation step so cursors are never reused across partitions.
func navigate[T any](ctx context.Context, manager *pagination.Manager[T], params common.ListParams) ([]T, pagination.State, error) {
	p := manager.Session(params.SessionID)
	state := p.Snapshot()

	if params.Sort != "" && params.Sort != state.SortField {
		if err := p.SortChanged(ctx, params.Sort); err != nil {
			return nil, state, err
		}
		state = p.Snapshot()
	}
	if params.Order != "" {
		descending := params.Order == "desc"
		if descending != state.Descending {
			// Same field toggles direction.
			if err := p.SortChanged(ctx, state.SortField); err != nil {
				return nil, state, err
			}
			state = p.Snapshot()
		}
	}
	if params.PageSize > 0 && params.PageSize != state.PageSize {
		if err := p.PageSizeChanged(ctx, params.PageSize); err != nil {
			return nil, state, err
		}
	}

	var err error
	switch {
	case params.Refresh:
		err = p.Refresh(ctx)
	case params.Nav == common.NavNext:
		err = p.LoadNext(ctx, false)
	case params.Nav == common.NavPrev:
		err = p.LoadPrev(ctx, false)
	default:
		err = p.LoadInitial(ctx, false)
	}
	if err != nil {
		return nil, p.Snapshot(), err
	}
	return p.Items(), p.Snapshot(), nil
}

// paginationMeta converts paginator state into the response envelope form.
// Pages are 1-based toward the client.
func paginationMeta(state pagination.State) *common.MetaInfo {
	return &common.MetaInfo{
		Pagination: &common.PaginationInfo{
			Page:       state.PageIndex + 1,
			PageSize:   state.PageSize,
			Total:      state.Total,
			TotalPages: state.TotalPages(),
			HasNext:    state.PageIndex < state.TotalPages()-1,
			HasPrev:    state.PageIndex > 0,
		},
	}
}

// Notifier fans a mutation out to the event bus and connected clients.
// Delivery is best effort; a failed notification never fails the request
// that caused it.
type Notifier struct {
	signals ports.SignalPublisher
	push    ports.PushDispatcher
	logger  *zap.Logger
}

// NewNotifier creates a notifier. Either collaborator may be nil.
func NewNotifier(signals ports.SignalPublisher, push ports.PushDispatcher, logger *zap.Logger) *Notifier {
	return &Notifier{signals: signals, push: push, logger: logger}
}

// NotifyMutation publishes the signal and pushes it to connected clients.
func (n *Notifier) NotifyMutation(ctx context.Context, collection, action, recordID string) {
	signal := ports.MutationSignal{
		Collection: collection,
		Action:     action,
		RecordID:   recordID,
		OccurredAt: time.Now().UTC(),
	}

	if n.signals != nil {
		if err := n.signals.Publish(ctx, signal); err != nil {
			n.logger.Warn("Failed to publish mutation signal",
				zap.String("collection", collection),
				zap.String("action", action),
				zap.Error(err),
			)
		}
	}
	if n.push != nil {
		payload := []byte(`{"type":"mutation","collection":"` + collection + `","action":"` + action + `"}`)
		if err := n.push.Push(ctx, payload); err != nil {
			n.logger.Warn("Failed to push mutation notification",
				zap.String("collection", collection),
				zap.Error(err),
			)
		}
	}
}
