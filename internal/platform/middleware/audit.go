package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/caremgr/caremgr/internal/platform/auth"
)

// AuditEntry records who touched which kind of record, and how.
type AuditEntry struct {
	Identity   string
	Roles      []string
	Entity     string
	RecordID   string
	Action     string // read, create, update, delete
	IPAddress  string
	UserAgent  string
	Path       string
	Method     string
	Timestamp  time.Time
	RequestID  string
	StatusCode int
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every request under /api/v1/ and /services/ once the response
// is written. Handler errors are sent through the echo error handler here.
// Entries are also handed to recorder when one is given.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !isAuditablePath(path) {
				return next(c)
			}

			if err := next(c); err != nil {
				// denials are audited with the status the client receives
				c.Error(err)
			}

			ctx := req.Context()
			entry := AuditEntry{
				Identity:   auth.UserIDFromContext(ctx),
				Roles:      auth.RolesFromContext(ctx),
				Method:     req.Method,
				Path:       path,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				Timestamp:  time.Now().UTC(),
				StatusCode: c.Response().Status,
			}
			entry.RequestID, _ = c.Get("request_id").(string)
			entry.Entity, entry.RecordID, entry.Action = classify(req.Method, path)

			if recorder != nil {
				if recErr := recorder.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("identity", entry.Identity).
				Strs("roles", entry.Roles).
				Str("entity", entry.Entity).
				Str("record_id", entry.RecordID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("record_access")

			return nil
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/") || strings.HasPrefix(path, "/services/")
}

// classify derives the entity, record id and action from a request.
//
//	GET    /api/v1/insurers/7            -> insurers, 7, read
//	DELETE /api/v1/insurers/7            -> insurers, 7, delete
//	POST   /services/Medical/CreateFacility -> Medical, "", create
func classify(method, path string) (entity, id, action string) {
	if rest, ok := strings.CutPrefix(path, "/services/"); ok {
		group, op, _ := strings.Cut(rest, "/")
		return group, "", opAction(op)
	}

	segments := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/"), "/"), "/")
	entity = segments[0]
	if entity == "" {
		entity = "unknown"
	}
	if len(segments) > 1 {
		id = segments[1]
	}
	return entity, id, methodAction(method)
}

func methodAction(method string) string {
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

func opAction(op string) string {
	switch {
	case strings.HasPrefix(op, "Create"), strings.HasPrefix(op, "Register"):
		return "create"
	case strings.HasPrefix(op, "Update"):
		return "update"
	case strings.HasPrefix(op, "Delete"):
		return "delete"
	default:
		return "read"
	}
}
