package domain

import "time"

// IssueState is the lifecycle state reported by the error tracker.
type IssueState string

// Issue states known to the error tracker.
const (
	IssueStateUnresolved IssueState = "unresolved"
	IssueStateResolved   IssueState = "resolved"
	IssueStateIgnored    IssueState = "ignored"
	IssueStateResolving  IssueState = "resolving"
)

// IssueLevel is the severity level reported by the error tracker.
type IssueLevel string

// Issue levels known to the error tracker.
const (
	IssueLevelFatal   IssueLevel = "fatal"
	IssueLevelError   IssueLevel = "error"
	IssueLevelWarning IssueLevel = "warning"
	IssueLevelInfo    IssueLevel = "info"
)

// Tag is a raw key/value pair attached to an issue or event.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Tag keys consulted by the classifier.
const (
	TagKeyService          = "service"
	TagKeyComponent        = "component"
	TagKeyIncidentSeverity = "incident_severity"
	TagKeyIncidentType     = "incident_type"
)

// RawIssue is an error-tracker issue as fetched upstream.
// FirstSeen and LastSeen are nil when the upstream payload omits them.
type RawIssue struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Culprit   string     `json:"culprit"`
	Status    IssueState `json:"status"`
	Level     IssueLevel `json:"level"`
	FirstSeen *time.Time `json:"firstSeen"`
	LastSeen  *time.Time `json:"lastSeen"`
	Count     int        `json:"count"`
	UserCount int        `json:"userCount"`
	Tags      []Tag      `json:"tags"`
	Permalink string     `json:"permalink,omitempty"`
	ShortID   string     `json:"shortId,omitempty"`
	Platform  string     `json:"platform,omitempty"`
}

// RawEvent is a single error-tracker event with its debugging context.
type RawEvent struct {
	ID          string
	Title       string
	Message     string
	Level       IssueLevel
	DateCreated *time.Time
	User        map[string]any
	Device      map[string]any
	OS          map[string]any
	App         map[string]any
	StackTrace  map[string]any
	Breadcrumbs []Breadcrumb
	Tags        []Tag
}
