package core

import (
	"context"
	"fmt"
	"log/slog"

	"QuoteChat/entity"
)

const threadListLimit = 200

// ListThreads returns threads newest activity first. Staff see every thread,
// customers only their own.
func (c *Core) ListThreads(ctx context.Context, actor *entity.Actor, status entity.ThreadStatus) ([]entity.ThreadSummary, error) {
	if c.store == nil {
		return nil, fmt.Errorf("core not configured")
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", entity.ErrBadRequest, status)
	}

	filter := entity.ThreadFilter{Status: status, Limit: threadListLimit}
	if !actor.IsStaff {
		filter.CustomerID = actor.ID
	}
	threads, err := c.store.ListThreads(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	names := make(map[int64]string)
	summaries := make([]entity.ThreadSummary, 0, len(threads))
	for i := range threads {
		id := threads[i].ProductID
		name, ok := names[id]
		if !ok {
			name = c.productName(ctx, id)
			names[id] = name
		}
		summaries = append(summaries, threads[i].Summary(name))
	}
	return summaries, nil
}

// GetThread returns the thread with its collected fields.
func (c *Core) GetThread(ctx context.Context, actor *entity.Actor, threadID string) (*entity.Thread, error) {
	if c.store == nil {
		return nil, fmt.Errorf("core not configured")
	}
	thread, err := c.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if _, err = authorRole(actor, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// SetStatus lets staff move a thread through its lifecycle.
func (c *Core) SetStatus(ctx context.Context, actor *entity.Actor, threadID string, status entity.ThreadStatus) error {
	if c.store == nil {
		return fmt.Errorf("core not configured")
	}
	if !actor.IsStaff {
		return fmt.Errorf("%w: only staff can change the thread status", entity.ErrForbidden)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", entity.ErrBadRequest, status)
	}
	if err := c.store.SetStatus(ctx, threadID, status); err != nil {
		return err
	}

	c.log.With(
		slog.String("thread", threadID),
		slog.Int64("staff", actor.ID),
		slog.String("status", string(status)),
	).Info("thread status changed")
	return nil
}

func (c *Core) productName(ctx context.Context, productID int64) string {
	if c.catalog != nil {
		if name, err := c.catalog.ProductName(ctx, productID); err == nil {
			return name
		}
	}
	return fmt.Sprintf("#%d", productID)
}
