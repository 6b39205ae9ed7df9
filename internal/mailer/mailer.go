package mailer

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Template names.
const (
	TemplateBan   = "ban"
	TemplateUnban = "unban"
)

// Payload carries the values a template can reference.
type Payload struct {
	To        string
	Name      string
	Reason    string
	Message   string
	ExpiresAt *time.Time
	Permanent bool
}

// Dispatcher renders a named template and sends it.
type Dispatcher interface {
	Send(ctx context.Context, name string, p Payload) error
}

//go:embed templates.yml
var defaultCatalogue []byte

type templateSpec struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type compiled struct {
	subject string
	body    *template.Template
}

// Mailer is the template-driven Dispatcher.
type Mailer struct {
	from      string
	sender    Sender
	templates map[string]compiled
}

// New builds a Mailer from the embedded template catalogue.
func New(from string, sender Sender) (*Mailer, error) {
	return NewFromCatalogue(from, sender, defaultCatalogue)
}

// NewFromCatalogue builds a Mailer from a YAML catalogue of name -> {subject, body}.
func NewFromCatalogue(from string, sender Sender, raw []byte) (*Mailer, error) {
	var specs map[string]templateSpec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	m := &Mailer{from: from, sender: sender, templates: make(map[string]compiled, len(specs))}
	for name, spec := range specs {
		if strings.TrimSpace(spec.Subject) == "" {
			return nil, fmt.Errorf("mail template %q has no subject", name)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("parse mail template %q: %w", name, err)
		}
		m.templates[name] = compiled{subject: spec.Subject, body: tmpl}
	}
	return m, nil
}

// Render returns the subject and HTML body for name.
func (m *Mailer) Render(name string, p Payload) (string, string, error) {
	t, ok := m.templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", name)
	}
	if !p.Permanent && name == TemplateBan && p.ExpiresAt == nil {
		return "", "", fmt.Errorf("temporary ban email needs an expiry")
	}
	var buf bytes.Buffer
	if err := t.body.Execute(&buf, p); err != nil {
		return "", "", fmt.Errorf("render mail template %q: %w", name, err)
	}
	return t.subject, buf.String(), nil
}

func (m *Mailer) Send(ctx context.Context, name string, p Payload) error {
	if strings.TrimSpace(p.To) == "" {
		return fmt.Errorf("mail %q: recipient required", name)
	}
	subject, body, err := m.Render(name, p)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		From:    m.from,
		To:      []string{p.To},
		Subject: subject,
		Body:    body,
	})
}

// Gated skips sending while enabled reports false.
type Gated struct {
	Next    Dispatcher
	Enabled func() bool
}

func (g Gated) Send(ctx context.Context, name string, p Payload) error {
	if g.Enabled != nil && !g.Enabled() {
		return nil
	}
	return g.Next.Send(ctx, name, p)
}
