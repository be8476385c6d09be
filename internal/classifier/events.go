package classifier

import (
	"strings"

	"github.com/gearconnect/statuspage/internal/domain"
)

// DefaultBreadcrumbLimit bounds the breadcrumb trail kept per event.
const DefaultBreadcrumbLimit = 5

// DescribeEvent enriches a raw event for debugging display, keeping only the
// most recent breadcrumbLimit breadcrumbs.
func DescribeEvent(event domain.RawEvent, breadcrumbLimit int) domain.DetailedError {
	title := strings.TrimSpace(event.Title)
	if title == "" {
		title = strings.TrimSpace(event.Message)
	}
	if title == "" {
		title = UnknownErrorTitle
	}

	level := event.Level
	if level == "" {
		level = domain.IssueLevelError
	}

	breadcrumbs := event.Breadcrumbs
	if breadcrumbLimit > 0 && len(breadcrumbs) > breadcrumbLimit {
		breadcrumbs = breadcrumbs[len(breadcrumbs)-breadcrumbLimit:]
	}
	if breadcrumbs == nil {
		breadcrumbs = []domain.Breadcrumb{}
	}

	tags := event.Tags
	if tags == nil {
		tags = []domain.Tag{}
	}

	return domain.DetailedError{
		ID:          event.ID,
		Title:       title,
		Level:       level,
		Timestamp:   event.DateCreated,
		User:        event.User,
		Device:      event.Device,
		OS:          event.OS,
		App:         event.App,
		StackTrace:  event.StackTrace,
		Breadcrumbs: breadcrumbs,
		Tags:        tags,
	}
}

// DescribeEvents applies DescribeEvent to every event.
func DescribeEvents(events []domain.RawEvent, breadcrumbLimit int) []domain.DetailedError {
	out := make([]domain.DetailedError, 0, len(events))
	for _, ev := range events {
		out = append(out, DescribeEvent(ev, breadcrumbLimit))
	}
	return out
}
