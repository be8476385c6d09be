package gateway

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// FlexTime decodes RFC 3339 strings or Unix epoch seconds. Values it cannot
// parse decode to the zero FlexTime instead of failing the whole payload.
type FlexTime struct {
	time.Time
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	*t = FlexTime{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				*t = FlexTime{Time: parsed.UTC(), Valid: true}
				return nil
			}
		}
		return nil
	}

	if secs, err := strconv.ParseFloat(string(data), 64); err == nil && !math.IsNaN(secs) && !math.IsInf(secs, 0) {
		whole, frac := math.Modf(secs)
		*t = FlexTime{Time: time.Unix(int64(whole), int64(frac*1e9)).UTC(), Valid: true}
	}
	return nil
}

// Ptr returns the time or nil when it was absent or unparsable.
func (t FlexTime) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// FlexInt decodes integers sent either as JSON numbers or numeric strings.
// Anything else decodes to 0.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	*n = 0
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		*n = FlexInt(v)
	}
	return nil
}
