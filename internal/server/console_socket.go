package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"warden/internal/console"
	"warden/internal/featureflags"
	"warden/internal/middleware"
	"warden/internal/models"
	"warden/internal/observability"
	"warden/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const consolePrincipalLocal = "consolePrincipal"

// Frame types exchanged on the console socket.
const (
	frameView              = "view"
	frameAdminNotification = "admin_notification"
	frameQuery             = "query"
	frameRefresh           = "refresh"
	frameReviews           = "reviews"
)

// clientFrame is a message from the console.
type clientFrame struct {
	Type   string        `json:"type"`
	Query  console.Query `json:"query"`
	Status string        `json:"status"`
}

// viewFrame is the state pushed to the console.
type viewFrame struct {
	Type    string           `json:"type"`
	View    console.PageView `json:"view"`
	Reviews []reviewResponse `json:"reviews"`
	// Error is set when the last refresh failed and the view shows cached data.
	Error string `json:"error,omitempty"`
}

type adminFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ConsoleSocketHandler serves GET /api/admin/ws. The server pushes the current
// view on connect, after every client frame and after every change feed update
// that touches a listed user.
func (s *Server) ConsoleSocketHandler() fiber.Handler {
	upgrade := websocket.New(s.serveConsole)
	return func(c *fiber.Ctx) error {
		p := principal(c)
		if !s.featureFlags.EnabledOr(featureflags.ConsoleSocket, p.ID, true) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Route", c.Path()))
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		c.Locals(consolePrincipalLocal, p)
		return upgrade(c)
	}
}

// consoleConn serializes writes from the read loop and the feed goroutines.
type consoleConn struct {
	conn    *websocket.Conn
	session *console.Session

	mu           sync.Mutex
	state        *console.ViewState
	reviewStatus string
}

func (cc *consoleConn) push() {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	frame := viewFrame{
		Type:    frameView,
		View:    cc.session.View(cc.state),
		Reviews: toReviewResponses(cc.session.Reviews(cc.reviewStatus)),
	}
	if err := cc.session.LastError(); err != nil {
		frame.Error = err.Error()
	}
	if err := cc.conn.WriteJSON(frame); err != nil {
		middleware.Logger.Debug("console push failed", slog.String("error", err.Error()))
	}
}

func (cc *consoleConn) write(v any) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	_ = cc.conn.WriteJSON(v)
}

func (s *Server) serveConsole(conn *websocket.Conn) {
	observability.ConsoleSessions.Inc()
	defer observability.ConsoleSessions.Dec()

	p, _ := conn.Locals(consolePrincipalLocal).(service.Principal)
	ctx, cancel := context.WithCancel(s.shutdownCtx)
	defer cancel()
	ctx = middleware.WithUserID(ctx, p.ID)

	session := console.NewSession(s.userRepo, s.approvalService, s.notifier)
	cc := &consoleConn{
		conn:         conn,
		session:      session,
		state:        console.NewViewState(s.pageSize()),
		reviewStatus: console.DefaultReviewFilter,
	}

	_ = session.Refresh(ctx)
	session.OnChange(func(models.User) { cc.push() })
	if err := session.Start(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "console change feed unavailable", slog.String("error", err.Error()))
	}
	defer session.Close()

	stopAdmin, err := s.notifier.SubscribeAdmin(ctx, func(payload string) {
		cc.write(adminFrame{Type: frameAdminNotification, Payload: json.RawMessage(payload)})
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "admin broadcast subscription failed", slog.String("error", err.Error()))
	} else {
		defer stopAdmin()
	}

	middleware.Logger.InfoContext(ctx, "console session opened")
	cc.push()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var frame clientFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			continue
		}
		switch frame.Type {
		case frameQuery:
			cc.mu.Lock()
			cc.state.Update(frame.Query)
			cc.mu.Unlock()
		case frameReviews:
			cc.mu.Lock()
			cc.reviewStatus = frame.Status
			cc.mu.Unlock()
		case frameRefresh:
			_ = session.Refresh(ctx)
		default:
			continue
		}
		cc.push()
	}
	middleware.Logger.InfoContext(ctx, "console session closed")
}
