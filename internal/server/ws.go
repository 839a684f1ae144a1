package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"obfuscator/internal/job"
	"obfuscator/internal/metrics"
)

// Message is the JSON protocol on the progress channel.
//
// client -> server: {"type":"start","file":...,"preset":...,"password":...,"antibypass":...}
// server -> client: {"type":"progress","status":...,"percent":...}
//
//	{"type":"done","filename":...,"download":...}
//	{"type":"error","message":...}
type Message struct {
	Type       string `json:"type"`
	File       string `json:"file,omitempty"`
	Preset     string `json:"preset,omitempty"`
	Password   string `json:"password,omitempty"`
	AntiBypass bool   `json:"antibypass,omitempty"`
	Prefix     string `json:"prefix,omitempty"`
	Status     string `json:"status,omitempty"`
	Percent    int    `json:"percent,omitempty"`
	Filename   string `json:"filename,omitempty"`
	Download   string `json:"download,omitempty"`
	Message    string `json:"message,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsClient is one progress-channel connection. Writes are serialized by mu.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	client := &wsClient{conn: conn}
	clientID := fmt.Sprintf("%s-%p", r.RemoteAddr, conn)

	s.mu.Lock()
	s.clients[clientID] = client
	s.mu.Unlock()
	metrics.WSConnections.Inc()

	s.logger.Info("progress channel connected", "client", clientID)
	client.send(Message{Type: "status", Status: "connected"})

	defer func() {
		s.mu.Lock()
		delete(s.clients, clientID)
		s.mu.Unlock()
		metrics.WSConnections.Dec()
		conn.Close()
		s.logger.Info("progress channel disconnected", "client", clientID)
	}()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("websocket read error", "err", err)
			}
			return
		}

		switch msg.Type {
		case "start":
			req := job.Request{
				File:       msg.File,
				Preset:     msg.Preset,
				Password:   msg.Password,
				AntiBypass: msg.AntiBypass,
				Prefix:     msg.Prefix,
			}
			// The job is detached from the connection: a client that
			// disconnects mid-job does not abort it, the job runs to its
			// terminal event with no observer.
			go s.runJob(req, client)
		default:
			s.logger.Warn("unknown message type on progress channel", "type", msg.Type)
		}
	}
}

func (s *Server) runJob(req job.Request, client *wsClient) {
	sink := &wsSink{client: client, logger: s.logger}
	s.runner.Run(context.Background(), req, sink)
}

// wsSink forwards progress events onto one connection. Send failures are
// logged and dropped; the job itself does not care whether anyone is
// listening.
type wsSink struct {
	client *wsClient
	logger *slog.Logger
}

func (ws *wsSink) Progress(status string, percent int) {
	ws.emit(Message{Type: "progress", Status: status, Percent: percent})
}

func (ws *wsSink) Done(filename, download string) {
	ws.emit(Message{Type: "done", Filename: filename, Download: download})
}

func (ws *wsSink) Failed(message string) {
	ws.emit(Message{Type: "error", Message: message})
}

func (ws *wsSink) emit(msg Message) {
	if err := ws.client.send(msg); err != nil {
		ws.logger.Debug("progress event dropped", "type", msg.Type, "err", err)
	}
}

func (s *Server) closeAllClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, client := range s.clients {
		client.conn.Close()
		delete(s.clients, id)
	}
}
