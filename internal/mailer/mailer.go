// Package mailer renders notification templates and hands them to the worker for delivery.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltmpl "html/template"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/google/uuid"

	"github.com/kavindurs8/studifynew-sub001/pkg/queue"
)

//go:embed templates/*
var templatesFS embed.FS

// Message is a templated email for one recipient.
type Message struct {
	Template  string
	To        string
	SessionID *uuid.UUID
	Data      map[string]string
}

// Sender accepts messages for fire-and-forget delivery.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Rendered is a message ready for a delivery backend.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// QueueSender enqueues messages on the worker email queue.
type QueueSender struct {
	queue *queue.Queue
}

// NewQueueSender creates a sender backed by the Redis job queue.
func NewQueueSender(q *queue.Queue) *QueueSender {
	return &QueueSender{queue: q}
}

// Send validates the template name and enqueues the message.
func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mailer: message %q has no recipient", msg.Template)
	}
	if !Exists(msg.Template) {
		return fmt.Errorf("mailer: unknown template %q", msg.Template)
	}
	return s.queue.EnqueueEmail(ctx, queue.EmailPayload{
		Template:  msg.Template,
		Recipient: msg.To,
		SessionID: msg.SessionID,
		Data:      msg.Data,
	})
}

type templatePair struct {
	text *texttmpl.Template
	html *htmltmpl.Template
}

var (
	parsed    map[string]templatePair
	parseErr  error
	parseOnce sync.Once
)

func loadTemplates() {
	parsed = make(map[string]templatePair)
	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		parseErr = fmt.Errorf("read templates: %w", err)
		return
	}
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".txt")
		if !ok {
			continue
		}
		txt, err := texttmpl.New(name).Option("missingkey=zero").ParseFS(templatesFS, "templates/"+e.Name())
		if err != nil {
			parseErr = fmt.Errorf("parse %s: %w", e.Name(), err)
			return
		}
		pair := templatePair{text: txt}
		if _, err := templatesFS.Open("templates/" + name + ".gohtml"); err == nil {
			html, err := htmltmpl.New(name+".gohtml").Option("missingkey=zero").ParseFS(templatesFS, "templates/"+name+".gohtml")
			if err != nil {
				parseErr = fmt.Errorf("parse %s.gohtml: %w", name, err)
				return
			}
			pair.html = html
		}
		parsed[name] = pair
	}
}

// Exists reports whether a template with this name is embedded.
func Exists(name string) bool {
	parseOnce.Do(loadTemplates)
	_, ok := parsed[name]
	return ok
}

// Render executes the named template with data.
func Render(name string, data map[string]string) (*Rendered, error) {
	parseOnce.Do(loadTemplates)
	if parseErr != nil {
		return nil, parseErr
	}
	pair, ok := parsed[name]
	if !ok {
		return nil, fmt.Errorf("mailer: unknown template %q", name)
	}

	var subject, text, html bytes.Buffer
	if err := pair.text.ExecuteTemplate(&subject, "subject", data); err != nil {
		return nil, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := pair.text.ExecuteTemplate(&text, "body", data); err != nil {
		return nil, fmt.Errorf("render %s body: %w", name, err)
	}
	if pair.html != nil {
		if err := pair.html.Execute(&html, data); err != nil {
			return nil, fmt.Errorf("render %s html: %w", name, err)
		}
	}
	return &Rendered{
		Subject: strings.TrimSpace(subject.String()),
		Text:    strings.TrimLeft(text.String(), "\n"),
		HTML:    html.String(),
	}, nil
}
