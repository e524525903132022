package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/readout/internal/report"
	"github.com/MeKo-Tech/readout/internal/tokens"
	"github.com/gorilla/websocket"
)

// Status values of WebSocketExtractResponse.
const (
	wsStatusProcessing = "processing"
	wsStatusCompleted  = "completed"
	wsStatusError      = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketExtractRequest carries one bundle to extract.
type WebSocketExtractRequest struct {
	Type        string         `json:"type"` // "extract"
	RequestID   string         `json:"request_id,omitempty"`
	Bundle      *tokens.Bundle `json:"bundle,omitempty"`
	Diagnostics bool           `json:"diagnostics,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketExtractResponse reports progress or the outcome of one request.
type WebSocketExtractResponse struct {
	Type      string `json:"type"`
	Status    string `json:"status"` // "processing", "completed", "error"
	Result    any    `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// extractWebSocketHandler streams extractions over a WebSocket connection.
func (s *Server) extractWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(conn)
}

// handleWebSocketConnection processes messages until the client goes away.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(conn, data)
		}
	}
}

// handleWebSocketMessage answers one request with a processing message
// followed by a completed or error message.
func (s *Server) handleWebSocketMessage(conn WebSocketConnWriter, data []byte) {
	var req WebSocketExtractRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if req.Type != "extract" {
		s.sendWebSocketError(conn, req.RequestID, "invalid_request", "Unsupported request type: "+req.Type)
		return
	}
	if req.Bundle == nil {
		s.sendWebSocketError(conn, req.RequestID, "invalid_request", "No bundle provided")
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = strconv.FormatInt(time.Now().UnixNano(), 10)
	}

	s.sendWebSocketResponse(conn, WebSocketExtractResponse{
		Type:      "extract_response",
		Status:    wsStatusProcessing,
		RequestID: requestID,
	})

	res, err := s.runExtraction("websocket", req.Bundle)
	if err != nil {
		s.sendWebSocketError(conn, requestID, "processing_error", err.Error())
		return
	}

	var result any = report.Summarize(res)
	if req.Diagnostics {
		result = res
	}
	s.sendWebSocketResponse(conn, WebSocketExtractResponse{
		Type:      "extract_response",
		Status:    wsStatusCompleted,
		Result:    result,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketExtractResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketExtractResponse{
		Type:      "error",
		Status:    wsStatusError,
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
