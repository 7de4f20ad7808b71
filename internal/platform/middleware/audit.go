package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/telemed/consult/internal/platform/auth"
)

// AuditEntry records who touched which clinical resource.
type AuditEntry struct {
	ActorID    string
	ActorRole  string
	Resource   string
	Action     string // read, create, update, delete
	Path       string
	Method     string
	IPAddress  string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries. Without one the middleware writes
// them to the logger.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// auditedResources are the path segments whose access is audited.
var auditedResources = map[string]bool{
	"prescription":  true,
	"prescriptions": true,
	"history":       true,
}

// Audit logs every request under /api/v1 that reads or changes a
// prescription or a medical history entry.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			resource := auditedResource(req.URL.Path)
			if resource == "" {
				return next(c)
			}

			err := next(c)

			entry := AuditEntry{
				Resource:   resource,
				Action:     actionFromMethod(req.Method),
				Path:       req.URL.Path,
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				StatusCode: c.Response().Status,
				Timestamp:  time.Now().UTC(),
			}
			if he, ok := err.(*echo.HTTPError); ok {
				entry.StatusCode = he.Code
			}
			entry.RequestID, _ = c.Get("request_id").(string)
			if actor, ok := auth.ActorFromContext(req.Context()); ok {
				entry.ActorID = actor.ID.String()
				entry.ActorRole = string(actor.Role)
			}

			if len(recorders) == 0 {
				logger.Info().
					Str("actor_id", entry.ActorID).
					Str("actor_role", entry.ActorRole).
					Str("resource", entry.Resource).
					Str("action", entry.Action).
					Str("path", entry.Path).
					Int("status", entry.StatusCode).
					Str("request_id", entry.RequestID).
					Msg("audit")
			}
			for _, r := range recorders {
				if rerr := r.RecordAccess(entry); rerr != nil {
					logger.Error().Err(rerr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}
			return err
		}
	}
}

func auditedResource(path string) string {
	if !strings.HasPrefix(path, "/api/v1/") {
		return ""
	}
	for _, seg := range strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/") {
		if auditedResources[seg] {
			return strings.TrimSuffix(seg, "s")
		}
	}
	return ""
}

func actionFromMethod(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
