// Package alert implements the alert dispatcher: a periodic sweep that
// delivers pending notifications over the messaging channel.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tmasterhq/taskmaster/internal/domain"
	"github.com/tmasterhq/taskmaster/internal/events"
	"github.com/tmasterhq/taskmaster/internal/store"
)

// Sender delivers a text message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Dispatcher scans for pending alerts and delivers them. It holds no state
// across sweeps beyond what the store persists.
type Dispatcher struct {
	repo   store.Repository
	sender Sender
	hub    *events.Hub
}

// NewDispatcher creates a dispatcher. hub may be nil to disable the activity
// feed.
func NewDispatcher(repo store.Repository, sender Sender, hub *events.Hub) *Dispatcher {
	return &Dispatcher{repo: repo, sender: sender, hub: hub}
}

// CreateParams are the fields of a new alert.
type CreateParams struct {
	Message       string
	TaskID        int64
	Task          string
	ProjectID     int64
	UserID        string
	Priority      string
	ScheduledTime time.Time
}

// Create stores a new alert in PENDING state for the next sweep to pick up.
func (d *Dispatcher) Create(ctx context.Context, p CreateParams) (*domain.Alert, error) {
	scheduled := p.ScheduledTime
	if scheduled.IsZero() {
		scheduled = time.Now()
	}
	alert := &domain.Alert{
		Message:       p.Message,
		TaskID:        p.TaskID,
		Task:          p.Task,
		ProjectID:     p.ProjectID,
		UserID:        p.UserID,
		Priority:      p.Priority,
		ScheduledTime: scheduled,
		Status:        domain.AlertStatusPending,
	}
	saved, err := d.repo.SaveAlert(ctx, alert)
	if err != nil {
		return nil, fmt.Errorf("save alert: %w", err)
	}
	return saved, nil
}

// CreateAndSend stores a new alert and attempts delivery right away instead
// of waiting for the next sweep. If delivery fails the alert stays PENDING
// and the sweep retries it.
func (d *Dispatcher) CreateAndSend(ctx context.Context, p CreateParams) (*domain.Alert, error) {
	alert, err := d.Create(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := d.deliver(ctx, alert); err != nil {
		slog.Warn("Immediate alert delivery failed, left pending",
			"alert_id", alert.ID, "user_id", alert.UserID, "error", err)
	}
	return alert, nil
}

// Sweep delivers every PENDING alert once. Per-alert failures are logged and
// skipped; the alert stays PENDING and is retried next sweep. Alerts are
// marked SENT only after confirmed delivery, so a crashed sweep can at worst
// resend, never silently drop.
func (d *Dispatcher) Sweep(ctx context.Context) (int, error) {
	pending, err := d.repo.ListAlertsByStatus(ctx, domain.AlertStatusPending)
	if err != nil {
		return 0, fmt.Errorf("list pending alerts: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.Info("Alert sweep found pending alerts", "count", len(pending))

	sent := 0
	for _, alert := range pending {
		if err := d.deliver(ctx, alert); err != nil {
			slog.Warn("Alert delivery failed", "alert_id", alert.ID, "user_id", alert.UserID, "error", err)
			continue
		}
		sent++
	}

	slog.Info("Alert sweep completed", "sent", sent, "pending", len(pending)-sent)
	return sent, nil
}

// deliver resolves the target, sends the notification, and marks the alert
// SENT on confirmed delivery only.
func (d *Dispatcher) deliver(ctx context.Context, alert *domain.Alert) error {
	userID, err := strconv.ParseInt(alert.UserID, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed user id %q: %w", alert.UserID, err)
	}

	user, err := d.repo.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user %d: %w", userID, err)
	}
	if user == nil {
		return fmt.Errorf("user %d not found", userID)
	}
	if !user.HasChatID() {
		return fmt.Errorf("user %d has no chat id", userID)
	}

	body := renderNotification(alert)
	if err := d.sender.Send(ctx, user.ChatID, body); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	alert.Status = domain.AlertStatusSent
	if _, err := d.repo.SaveAlert(ctx, alert); err != nil {
		// Message is out but the status write failed; the next sweep will
		// resend. Prefer a duplicate over a lost notification.
		return fmt.Errorf("mark alert sent: %w", err)
	}

	d.hub.Publish(events.Event{Type: events.TypeAlertSent, ChatID: user.ChatID, Text: alert.Task})
	slog.Info("Alert delivered", "alert_id", alert.ID, "user_id", userID, "chat_id", user.ChatID)
	return nil
}

func renderNotification(alert *domain.Alert) string {
	return fmt.Sprintf("You have a new alert:\n\nTask: %s\nDescription: %s\nPriority: %s\nScheduled: %s",
		alert.Task, alert.Message, alert.Priority, alert.ScheduledTime.Format("2006-01-02 15:04"))
}

// StartWorker runs a background goroutine that sweeps pending alerts on a
// fixed interval. Sweeps run synchronously in the loop so ticks never
// overlap; the worker exits when ctx is cancelled.
func StartWorker(ctx context.Context, d *Dispatcher, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Alert worker started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				if _, err := d.Sweep(ctx); err != nil {
					slog.Error("Alert sweep failed", "error", err)
				}
			case <-ctx.Done():
				slog.Info("Alert worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
