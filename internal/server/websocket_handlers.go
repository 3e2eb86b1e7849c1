package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/MeKo-Tech/codescan/internal/barcode"
	"github.com/MeKo-Tech/codescan/internal/pipeline"
	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketConfig is a text frame that sets options for subsequent binary
// image frames on the same connection.
type WebSocketConfig struct {
	Type    string  `json:"type"` // "config"
	Pattern string  `json:"pattern,omitempty"`
	Sweep   string  `json:"sweep,omitempty"`
	Step    float64 `json:"step,omitempty"`
	Details bool    `json:"details,omitempty"`
}

// WebSocketScanResponse is sent for every received frame.
type WebSocketScanResponse struct {
	Type      string               `json:"type"`
	Status    string               `json:"status"` // "ok", "completed", "error"
	RequestID string               `json:"request_id,omitempty"`
	Result    *pipeline.ScanResult `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	ErrorType string               `json:"error_type,omitempty"`
}

// wsSession is the per-connection scan configuration.
type wsSession struct {
	scanner *pipeline.Scanner
	accept  *regexp.Regexp
	details bool
	seq     int
}

// scanWebSocketHandler streams scans: each binary frame is one photo and is
// answered with one JSON text frame.
func (s *Server) scanWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Debug("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(r.Context(), conn)
}

func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(s.maxUploadMB * 1024 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	sess := &wsSession{scanner: s.scanner}
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket read error", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		websocketMessagesTotal.WithLabelValues("received").Inc()

		var resp WebSocketScanResponse
		switch messageType {
		case websocket.BinaryMessage:
			sess.seq++
			resp = s.scanFrame(ctx, sess, data)
		case websocket.TextMessage:
			resp = s.configure(sess, data)
		default:
			continue
		}
		if err := s.sendWebSocketResponse(conn, resp); err != nil {
			slog.Warn("WebSocket write failed", "error", err)
			return
		}
	}
}

func (s *Server) scanFrame(ctx context.Context, sess *wsSession, data []byte) WebSocketScanResponse {
	resp := WebSocketScanResponse{Type: "scan_result", RequestID: strconv.Itoa(sess.seq)}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := sess.scanner.Scan(ctx, data, sess.accept)
	if err != nil {
		scanRequestsTotal.WithLabelValues("websocket", "error").Inc()
		resp.Status = "error"
		resp.Error = err.Error()
		resp.ErrorType = "processing_error"
		if pipeline.IsInvalidImage(err) {
			resp.ErrorType = "invalid_image"
		}
		return resp
	}
	observeScan("websocket", res, time.Since(start))

	if !sess.details {
		res.Candidates = nil
	}
	if res.Codes == nil {
		res.Codes = []string{}
	}
	resp.Status = "completed"
	resp.Result = &res
	return resp
}

// configure applies a config text frame to the session.
func (s *Server) configure(sess *wsSession, data []byte) WebSocketScanResponse {
	resp := WebSocketScanResponse{Type: "config"}
	fail := func(msg string) WebSocketScanResponse {
		resp.Status = "error"
		resp.ErrorType = "invalid_request"
		resp.Error = msg
		return resp
	}

	var cfg WebSocketConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fail(fmt.Sprintf("Failed to parse request: %v", err))
	}
	if cfg.Type != "config" {
		return fail("Unsupported message type: " + cfg.Type)
	}

	accept := sess.accept
	if cfg.Pattern != "" {
		re, err := regexp.Compile(cfg.Pattern)
		if err != nil {
			return fail(fmt.Sprintf("invalid pattern: %v", err))
		}
		accept = re
	}
	scanner := sess.scanner
	if cfg.Sweep != "" {
		step := cfg.Step
		if step == 0 {
			step = barcode.DefaultFineStep
		}
		sweep, err := barcode.ParseSweep(cfg.Sweep, step)
		if err != nil {
			return fail(err.Error())
		}
		scanner = s.scanner.WithSweep(sweep)
	}

	sess.accept = accept
	sess.scanner = scanner
	sess.details = cfg.Details
	resp.Status = "ok"
	return resp
}

func (s *Server) sendWebSocketResponse(conn *websocket.Conn, resp WebSocketScanResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return nil
}
