package note

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/domain/template"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// ClientFrame is an inbound message from a live editing client.
//
//	{"type": "edit", "path": ["vitals", "temperature"], "value": 37.5}
//	{"type": "save"}
//	{"type": "sign"}
type ClientFrame struct {
	Type  string   `json:"type"`
	Path  []string `json:"path,omitempty"`
	Value any      `json:"value,omitempty"`
}

// ServerFrame is an outbound message to a live editing client.
type ServerFrame struct {
	Type     string            `json:"type"`
	Warnings map[string]string `json:"warnings,omitempty"`
	SignedAt *time.Time        `json:"signed_at,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; tighten in production.
	},
}

// LiveHandler upgrades HTTP connections into live note editing sessions.
// Each connection owns one Editor: edits mutate the session tree in memory,
// the editor's background task autosaves it, and save/sign frames drive the
// explicit lifecycle transitions.
type LiveHandler struct {
	svc      *Service
	log      zerolog.Logger
	interval time.Duration
}

func NewLiveHandler(svc *Service, logger zerolog.Logger, autosaveInterval time.Duration) *LiveHandler {
	return &LiveHandler{svc: svc, log: logger, interval: autosaveInterval}
}

// RegisterRoutes registers the live editing endpoint on the provided group.
func (h *LiveHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/notes/:id/live", h.HandleConnect)
}

// HandleConnect upgrades the connection, opens an editor session for the
// note, and pumps frames until the client disconnects or the note is signed.
func (h *LiveHandler) HandleConnect(c echo.Context) error {
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid note id")
	}
	ctx := c.Request().Context()
	practitionerID, err := uuid.Parse(auth.PractitionerIDFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no practitioner identity")
	}

	editor, err := NewEditor(ctx, h.svc, h.log, noteID, practitionerID, h.interval)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "note not found")
		}
		return err
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		editor.Close()
		return err
	}

	editor.Start(ctx)
	h.readPump(ctx, editor, ws)
	return nil
}

func (h *LiveHandler) readPump(ctx context.Context, editor *Editor, ws Conn) {
	defer func() {
		editor.Close()
		ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			h.send(ws, ServerFrame{Type: "error", Error: "malformed frame"})
			continue
		}

		reply, terminal := h.processFrame(ctx, editor, frame)
		h.send(ws, reply)
		if terminal {
			return
		}
	}
}

// processFrame applies one client frame to the session. The second return
// value reports whether the session is finished (note signed).
func (h *LiveHandler) processFrame(ctx context.Context, editor *Editor, frame ClientFrame) (ServerFrame, bool) {
	switch frame.Type {
	case "edit":
		if err := editor.Edit(frame.Value, frame.Path...); err != nil {
			return errorFrame(err), errors.Is(err, ErrImmutableDocument)
		}
		return ServerFrame{Type: "ack"}, false

	case "save":
		warnings, err := editor.Save(ctx)
		if err != nil {
			return errorFrame(err), errors.Is(err, ErrImmutableDocument)
		}
		return ServerFrame{Type: "saved", Warnings: warnings}, false

	case "sign":
		n, err := editor.Sign(ctx)
		if err != nil {
			return errorFrame(err), errors.Is(err, ErrImmutableDocument)
		}
		return ServerFrame{Type: "signed", SignedAt: n.SignedAt}, true

	default:
		return ServerFrame{Type: "error", Error: "unknown frame type"}, false
	}
}

func errorFrame(err error) ServerFrame {
	var vErr *template.ValidationError
	if errors.As(err, &vErr) {
		return ServerFrame{Type: "error", Error: vErr.Reason, Warnings: vErr.Fields}
	}
	return ServerFrame{Type: "error", Error: err.Error()}
}

func (h *LiveHandler) send(ws Conn, frame ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal live frame")
		return
	}
	if err := ws.WriteMessage(gorillawebsocket.TextMessage, data); err != nil {
		h.log.Debug().Err(err).Msg("live session write failed")
	}
}
