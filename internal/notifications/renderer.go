package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gearconnect/statuspage/internal/domain"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer renders notifications from templates.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer creates a new renderer and loads all templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"title":         titleCase,
		"upper":         strings.ToUpper,
		"join":          strings.Join,
		"formatTime":    formatTime,
		"severityEmoji": severityEmoji,
	}

	r := &Renderer{templates: make(map[string]*template.Template)}

	combos := map[Channel][]MessageKind{
		ChannelEmail:      {MessageIncident, MessageResolution, MessageConfirmation},
		ChannelMattermost: {MessageIncident, MessageResolution},
	}
	for channel, kinds := range combos {
		for _, kind := range kinds {
			name := templateName(channel, kind)
			filename := fmt.Sprintf("templates/%s.tmpl", name)

			content, err := templatesFS.ReadFile(filename)
			if err != nil {
				return nil, fmt.Errorf("read template %s: %w", filename, err)
			}

			tmpl, err := template.New(name).Funcs(funcMap).Parse(string(content))
			if err != nil {
				return nil, fmt.Errorf("parse template %s: %w", name, err)
			}
			r.templates[name] = tmpl
		}
	}

	return r, nil
}

// Render returns the subject and body of payload for channel.
func (r *Renderer) Render(channel Channel, payload Payload) (subject, body string, err error) {
	name := templateName(channel, payload.Kind)
	tmpl, ok := r.templates[name]
	if !ok {
		return "", "", fmt.Errorf("template not found: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", "", fmt.Errorf("execute template %s: %w", name, err)
	}

	return renderSubject(payload), strings.TrimSpace(buf.String()), nil
}

func renderSubject(payload Payload) string {
	switch payload.Kind {
	case MessageIncident:
		return fmt.Sprintf("[Incident] %s", payload.Incident.Title)
	case MessageResolution:
		return fmt.Sprintf("[Resolved] %s", payload.Incident.Title)
	case MessageConfirmation:
		return "You are subscribed to status notifications"
	default:
		return "Status notification"
	}
}

func templateName(channel Channel, kind MessageKind) string {
	return fmt.Sprintf("%s_%s", channel, kind)
}

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

// formatTime accepts time.Time or *time.Time; nil and zero render empty.
func formatTime(v any) string {
	var t time.Time
	switch tv := v.(type) {
	case time.Time:
		t = tv
	case *time.Time:
		if tv == nil {
			return ""
		}
		t = *tv
	default:
		return ""
	}
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("Jan 2, 2006 15:04 UTC")
}

func severityEmoji(severity domain.Severity) string {
	switch severity {
	case domain.SeverityMinor:
		return "🟡"
	case domain.SeverityMajor:
		return "🟠"
	case domain.SeverityCritical:
		return "🔴"
	default:
		return "⚪"
	}
}
