package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/gearconnect/statuspage/internal/pkg/ctxlog"
)

// ErrorMapping maps a sentinel error to a response.
type ErrorMapping struct {
	Error  error
	Status int
	// Message replaces err.Error() in the response when set.
	Message string
}

// HandleError writes the response of the first mapping matching err.
// Unmapped errors are logged and answered with a bare 500 so internal
// details never reach the client.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	if m, ok := match(err, mappings); ok {
		msg := m.Message
		if msg == "" {
			msg = err.Error()
		}
		ctxlog.FromContext(ctx).Debug("request rejected", "status", m.Status, "error", err)
		Error(w, m.Status, msg)
		return
	}

	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}

func match(err error, mappings []ErrorMapping) (ErrorMapping, bool) {
	for _, m := range mappings {
		if errors.Is(err, m.Error) {
			return m, true
		}
	}
	return ErrorMapping{}, false
}
