// Package conversation holds the message threads between students, parents and staff.
package conversation

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/collection"
	"github.com/trezcool/portal/core/view"
)

var (
	errEmptyMessage = errors.New("message cannot be blank")
	errAlreadyRead  = errors.New("already read")
)

type (
	Message struct {
		From   string    `json:"from"`
		Text   string    `json:"text"`
		SentAt time.Time `json:"sent_at"`
	}

	Conversation struct {
		ID            string    `json:"id"`
		Subject       string    `json:"subject"`
		Participants  []string  `json:"participants"`
		Messages      []Message `json:"messages"`
		LastMessageAt time.Time `json:"last_message_at"`
		Unread        int       `json:"unread"`
	}
)

func messageTexts(c Conversation) any {
	texts := make([]string, 0, len(c.Messages))
	for _, m := range c.Messages {
		texts = append(texts, m.Text)
	}
	return texts
}

var Schema = view.Schema[Conversation]{
	Name: "conversations",
	Fields: map[string]view.Field[Conversation]{
		"id":            {Kind: view.String, Value: func(c Conversation) any { return c.ID }},
		"subject":       {Kind: view.String, Value: func(c Conversation) any { return c.Subject }},
		"participants":  {Kind: view.List, Value: func(c Conversation) any { return c.Participants }},
		"messages":      {Kind: view.List, Value: messageTexts},
		"lastMessageAt": {Kind: view.Time, Value: func(c Conversation) any { return c.LastMessageAt }},
		"unread":        {Kind: view.Number, Value: func(c Conversation) any { return c.Unread }},
		"hasUnread":     {Kind: view.Bool, Value: func(c Conversation) any { return c.Unread > 0 }},
	},
	Searchable:      []string{"subject", "participants", "messages"},
	DefaultOrdering: []view.Ordering{{Field: "lastMessageAt", Direction: view.Descending}},
	ID:              func(c Conversation) string { return c.ID },
}

type Service struct {
	*collection.Collection[Conversation]
	now func() time.Time
}

func NewService(src collection.Source[Conversation], saver collection.Saver[Conversation], logger core.Logger, opts ...collection.Options[Conversation]) *Service {
	var o collection.Options[Conversation]
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	o.Logger = logger
	return &Service{Collection: collection.New(Schema, src, saver, o), now: o.Now}
}

// Post appends a message to the conversation and counts it as unread.
func (svc *Service) Post(ctx context.Context, id, from, text string) (Conversation, error) {
	text = core.CleanString(text)
	if text == "" {
		return Conversation{}, core.NewValidationError(errEmptyMessage, core.FieldError{Field: "text", Error: errEmptyMessage.Error()})
	}
	return svc.Update(ctx, id, func(c Conversation) (Conversation, error) {
		now := svc.now()
		c.Messages = append(c.Messages[:len(c.Messages):len(c.Messages)], Message{From: core.CleanString(from), Text: text, SentAt: now})
		c.LastMessageAt = now
		c.Unread++
		return c, nil
	})
}

func (svc *Service) MarkRead(ctx context.Context, id string) (Conversation, error) {
	c, err := svc.Update(ctx, id, func(c Conversation) (Conversation, error) {
		if c.Unread == 0 {
			return c, errAlreadyRead
		}
		c.Unread = 0
		return c, nil
	})
	if err == errAlreadyRead {
		return svc.Get(ctx, id)
	}
	return c, err
}

// UnreadCount returns the number of conversations with unread messages and the total of unread messages.
func (svc *Service) UnreadCount(ctx context.Context) (threads, messages int, err error) {
	records, err := svc.Snapshot(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, c := range records {
		if c.Unread > 0 {
			threads++
			messages += c.Unread
		}
	}
	return threads, messages, nil
}
