package classifier

import (
	"strings"

	"github.com/gearconnect/statuspage/internal/domain"
)

// TagSet is the typed view of an issue's tags.
// Unrecognized tags are kept for display only and never affect status.
type TagSet struct {
	Services     []string
	Severity     *domain.Severity
	IncidentType string
	Unrecognized []domain.Tag
}

// ParseTags sorts raw tags into the keys the classifier understands.
func ParseTags(tags []domain.Tag) TagSet {
	var set TagSet
	for _, tag := range tags {
		value := strings.TrimSpace(tag.Value)

		switch strings.ToLower(strings.TrimSpace(tag.Key)) {
		case domain.TagKeyService, domain.TagKeyComponent:
			if value != "" {
				set.Services = append(set.Services, value)
			}
		case domain.TagKeyIncidentSeverity:
			sev := domain.Severity(strings.ToLower(value))
			if sev.IsValid() && set.Severity == nil {
				set.Severity = &sev
			}
		case domain.TagKeyIncidentType:
			if set.IncidentType == "" {
				set.IncidentType = value
			}
		default:
			set.Unrecognized = append(set.Unrecognized, tag)
		}
	}
	return set
}
