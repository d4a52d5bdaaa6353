package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"QuoteChat/bot/handoff"
	"QuoteChat/entity"
	"QuoteChat/internal/lib/sl"
)

const maxCommitAttempts = 5

// CreateThread returns the thread for (customer, product), creating it with
// the bot welcome message on first use.
func (c *Core) CreateThread(ctx context.Context, actor *entity.Actor, customerID, productID int64) (string, error) {
	if c.store == nil || c.catalog == nil {
		return "", fmt.Errorf("core not configured")
	}
	if customerID == 0 {
		customerID = actor.ID
	}
	if customerID != actor.ID && !actor.IsStaff {
		return "", fmt.Errorf("%w: cannot open a thread for another customer", entity.ErrForbidden)
	}
	if productID <= 0 {
		return "", fmt.Errorf("%w: product id is required", entity.ErrBadRequest)
	}

	productName, err := c.catalog.ProductName(ctx, productID)
	if err != nil {
		return "", fmt.Errorf("product %d: %w", productID, err)
	}

	profile := c.customerProfile(ctx, customerID)
	customerName := fmt.Sprintf("#%d", customerID)
	switch {
	case customerID == actor.ID:
		customerName = actor.DisplayName()
	case profile != nil:
		customerName = profile.DisplayName()
	}

	thread := entity.NewThread(customerID, productID)
	seed := entity.NewBotMessage(thread.ID, c.machine.Opening(thread, profile, customerName, productName))

	stored, created, err := c.store.GetOrCreateThread(ctx, thread, seed)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}

	if created {
		c.log.With(
			slog.String("thread", stored.ID),
			slog.Int64("customer", customerID),
			slog.Int64("product", productID),
		).Info("thread created")
		c.publish(stored, []*entity.Message{seed})
	}
	return stored.ID, nil
}

// Send appends the actor's message and, for customers, lets the dialogue
// reply. It returns the committed messages as seen by the caller.
func (c *Core) Send(ctx context.Context, actor *entity.Actor, threadID, text string, upload *entity.Upload) ([]entity.MessageView, error) {
	if c.store == nil {
		return nil, fmt.Errorf("core not configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is required", entity.ErrBadRequest)
	}

	thread, err := c.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	role, err := authorRole(actor, thread)
	if err != nil {
		return nil, err
	}

	var attachment *entity.Attachment
	if upload != nil {
		attachment, err = c.storeAttachment(ctx, actor, threadID, upload)
		if err != nil {
			return nil, err
		}
	}

	var profile *entity.Profile
	if role == entity.RoleCustomer {
		profile = c.customerProfile(ctx, thread.CustomerID)
	}

	log := c.log.With(
		slog.String("thread", threadID),
		slog.Int64("author", actor.ID),
		slog.String("role", string(role)),
	)

	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		if attempt > 1 {
			if thread, err = c.store.GetThread(ctx, threadID); err != nil {
				return nil, err
			}
		}

		msg := entity.NewActorMessage(threadID, actor, role, text)
		msg.Attachment = attachment

		t, err := c.prepare(ctx, thread, actor, role, profile, text)
		if err != nil {
			return nil, err
		}
		msgs := []*entity.Message{msg}
		if t.reply != "" {
			msgs = append(msgs, entity.NewBotMessage(threadID, t.reply))
		}

		err = c.store.Commit(ctx, t.next, thread.Version, msgs)
		if errors.Is(err, entity.ErrConflict) {
			log.With(slog.Int("attempt", attempt)).Debug("version conflict, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("commit message: %w", err)
		}

		c.publish(t.next, msgs)
		if role == entity.RoleCustomer {
			state, awaiting := c.machine.State(t.next)
			log.With(
				slog.String("state", string(state)),
				slog.Bool("awaiting_confirmation", awaiting),
			).Debug("dialogue state")
		}
		if t.handedOff || t.completed {
			log.With(
				slog.Bool("handoff", t.handedOff),
				slog.Bool("completed", t.completed),
			).Info("thread moved to in_progress")
		}
		if t.completed {
			c.notifyLeadReady(ctx, t.next)
		}
		return c.views(actor, msgs), nil
	}

	log.Warn("gave up after repeated version conflicts")
	return nil, fmt.Errorf("%w: thread %s is busy, try again", entity.ErrConflict, threadID)
}

// Fetch returns messages strictly after since, or the whole history.
func (c *Core) Fetch(ctx context.Context, actor *entity.Actor, threadID string, since *time.Time) ([]entity.MessageView, error) {
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

	messages, err := c.store.ListMessages(ctx, threadID, since)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	views := make([]entity.MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, c.view(actor.ID, &messages[i]))
	}
	return views, nil
}

// turn is the outcome of one send before it is committed.
type turn struct {
	next      *entity.Thread
	reply     string
	completed bool
	handedOff bool
}

// prepare computes the thread write and bot reply for a message.
func (c *Core) prepare(ctx context.Context, thread *entity.Thread, actor *entity.Actor, role entity.AuthorRole, profile *entity.Profile, text string) (turn, error) {
	if role == entity.RoleStaff {
		next := thread.Clone()
		if next.StaffID == 0 {
			next.StaffID = actor.ID
		}
		return turn{next: next}, nil
	}

	history, err := c.store.ListMessages(ctx, thread.ID, nil)
	if err != nil {
		return turn{}, fmt.Errorf("load history: %w", err)
	}
	next := thread.Clone()
	if silenced, changed := handoff.Apply(next, history); silenced {
		return turn{next: next, handedOff: changed}, nil
	}

	d := c.machine.Decide(thread, profile, text)
	return turn{next: d.Thread, reply: d.Reply, completed: d.Completed}, nil
}

func (c *Core) customerProfile(ctx context.Context, customerID int64) *entity.Profile {
	if c.profiles == nil {
		return nil
	}
	profile, err := c.profiles.CustomerProfile(ctx, customerID)
	if err != nil {
		c.log.With(
			slog.Int64("customer", customerID),
			sl.Err(err),
		).Warn("load customer profile")
		return nil
	}
	return profile
}

func (c *Core) notifyLeadReady(ctx context.Context, thread *entity.Thread) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.NotifyLeadReady(ctx, thread, c.productName(ctx, thread.ProductID)); err != nil {
		c.log.With(
			slog.String("thread", thread.ID),
			sl.Err(err),
		).Error("notify lead ready")
	}
}

func (c *Core) publish(thread *entity.Thread, msgs []*entity.Message) {
	if c.events == nil {
		return
	}
	c.events.Publish(thread.ID, func(viewerID int64) []entity.MessageView {
		views := make([]entity.MessageView, 0, len(msgs))
		for _, msg := range msgs {
			views = append(views, c.view(viewerID, msg))
		}
		return views
	})
}

// authorRole checks that the actor may take part in the thread.
func authorRole(actor *entity.Actor, thread *entity.Thread) (entity.AuthorRole, error) {
	switch {
	case actor.ID == thread.CustomerID:
		return entity.RoleCustomer, nil
	case actor.IsStaff:
		return entity.RoleStaff, nil
	}
	return "", fmt.Errorf("%w: not a participant of thread %s", entity.ErrForbidden, thread.ID)
}
