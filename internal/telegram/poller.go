package telegram

import (
	"context"
	"log/slog"
	"time"
)

// Update is one entry from getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is the subset of an inbound message the engine cares about.
type Message struct {
	Text string `json:"text"`
	Chat Chat   `json:"chat"`
	From *From  `json:"from"`
}

// Chat identifies the conversation a message arrived in.
type Chat struct {
	ID int64 `json:"id"`
}

// From identifies the sending user.
type From struct {
	ID int64 `json:"id"`
}

// MessageHandler receives each inbound text message.
type MessageHandler func(ctx context.Context, chatID, fromID int64, text string)

const (
	longPollSeconds = 30
	errorBackoff    = 3 * time.Second
)

// Poller is a long-poll event source feeding inbound messages to a handler.
type Poller struct {
	client  *Client
	handler MessageHandler
	offset  int64
}

// NewPoller creates a poller pushing messages into handler.
func NewPoller(client *Client, handler MessageHandler) *Poller {
	return &Poller{client: client, handler: handler}
}

// Run polls until ctx is cancelled. Poll errors back off briefly and retry;
// the update offset ensures no message is handled twice.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("Bot poller started")
	for {
		if ctx.Err() != nil {
			slog.Info("Bot poller shutting down", "reason", ctx.Err())
			return
		}

		updates, err := p.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Bot poller shutting down", "reason", ctx.Err())
				return
			}
			slog.Warn("Poll failed, backing off", "error", err)
			select {
			case <-time.After(errorBackoff):
			case <-ctx.Done():
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= p.offset {
				p.offset = update.UpdateID + 1
			}
			if update.Message == nil || update.Message.Text == "" || update.Message.From == nil {
				continue
			}
			p.handler(ctx, update.Message.Chat.ID, update.Message.From.ID, update.Message.Text)
		}
	}
}

func (p *Poller) poll(ctx context.Context) ([]Update, error) {
	payload := map[string]interface{}{
		"offset":  p.offset,
		"timeout": longPollSeconds,
	}
	var updates []Update
	if err := p.client.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}
