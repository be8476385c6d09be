package tracker

import (
	"encoding/json"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/gearconnect/statuspage/internal/gateway"
)

// wireIssue is the upstream issue payload. Only fields the status page uses
// are decoded; counts may arrive as strings.
type wireIssue struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Culprit   string           `json:"culprit"`
	Status    string           `json:"status"`
	Level     string           `json:"level"`
	FirstSeen gateway.FlexTime `json:"firstSeen"`
	LastSeen  gateway.FlexTime `json:"lastSeen"`
	Count     gateway.FlexInt  `json:"count"`
	UserCount gateway.FlexInt  `json:"userCount"`
	Tags      []wireTag        `json:"tags"`
	Permalink string           `json:"permalink"`
	ShortID   string           `json:"shortId"`
	Platform  string           `json:"platform"`
}

type wireTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wireEvent struct {
	ID          string           `json:"id"`
	EventID     string           `json:"eventID"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Level       string           `json:"level"`
	DateCreated gateway.FlexTime `json:"dateCreated"`
	User        map[string]any   `json:"user"`
	Contexts    map[string]any   `json:"contexts"`
	Tags        []wireTag        `json:"tags"`
	Entries     []wireEntry      `json:"entries"`
}

type wireEntry struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireBreadcrumb struct {
	Type      string           `json:"type"`
	Category  string           `json:"category"`
	Message   string           `json:"message"`
	Level     string           `json:"level"`
	Timestamp gateway.FlexTime `json:"timestamp"`
	Data      map[string]any   `json:"data"`
}

func convertTags(in []wireTag) []domain.Tag {
	tags := make([]domain.Tag, 0, len(in))
	for _, t := range in {
		tags = append(tags, domain.Tag{Key: t.Key, Value: t.Value})
	}
	return tags
}

func (w wireIssue) toDomain() domain.RawIssue {
	return domain.RawIssue{
		ID:        w.ID,
		Title:     w.Title,
		Culprit:   w.Culprit,
		Status:    domain.IssueState(w.Status),
		Level:     domain.IssueLevel(w.Level),
		FirstSeen: w.FirstSeen.Ptr(),
		LastSeen:  w.LastSeen.Ptr(),
		Count:     int(w.Count),
		UserCount: int(w.UserCount),
		Tags:      convertTags(w.Tags),
		Permalink: w.Permalink,
		ShortID:   w.ShortID,
		Platform:  w.Platform,
	}
}

func (w wireEvent) toDomain() domain.RawEvent {
	id := w.ID
	if id == "" {
		id = w.EventID
	}

	ev := domain.RawEvent{
		ID:          id,
		Title:       w.Title,
		Message:     w.Message,
		Level:       domain.IssueLevel(w.Level),
		DateCreated: w.DateCreated.Ptr(),
		User:        w.User,
		Device:      contextSection(w.Contexts, "device"),
		OS:          contextSection(w.Contexts, "os"),
		App:         contextSection(w.Contexts, "app"),
		Tags:        convertTags(w.Tags),
	}

	for _, entry := range w.Entries {
		switch entry.Type {
		case "exception":
			ev.StackTrace = stackTrace(entry.Data)
		case "breadcrumbs":
			ev.Breadcrumbs = breadcrumbs(entry.Data)
		}
	}
	return ev
}

func contextSection(contexts map[string]any, key string) map[string]any {
	if section, ok := contexts[key].(map[string]any); ok {
		return section
	}
	return nil
}

// stackTrace returns the stacktrace of the first exception value.
func stackTrace(data json.RawMessage) map[string]any {
	var exc struct {
		Values []struct {
			Stacktrace map[string]any `json:"stacktrace"`
		} `json:"values"`
	}
	if err := json.Unmarshal(data, &exc); err != nil || len(exc.Values) == 0 {
		return nil
	}
	return exc.Values[0].Stacktrace
}

func breadcrumbs(data json.RawMessage) []domain.Breadcrumb {
	var crumbs struct {
		Values []wireBreadcrumb `json:"values"`
	}
	if err := json.Unmarshal(data, &crumbs); err != nil {
		return nil
	}
	out := make([]domain.Breadcrumb, 0, len(crumbs.Values))
	for _, c := range crumbs.Values {
		out = append(out, domain.Breadcrumb{
			Type:      c.Type,
			Category:  c.Category,
			Message:   c.Message,
			Level:     c.Level,
			Timestamp: c.Timestamp.Ptr(),
			Data:      c.Data,
		})
	}
	return out
}
