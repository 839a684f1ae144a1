package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"obfuscator/internal/job"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWS_Welcome(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeRunner{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialWS(t, srv)
	msg := readMessage(t, conn)
	if msg.Type != "status" || msg.Status != "connected" {
		t.Errorf("welcome = %+v", msg)
	}
}

func TestWS_StartRunsJobAndStreamsEvents(t *testing.T) {
	runner := &fakeRunner{script: func(req job.Request, sink job.Sink) {
		sink.Progress("Reading file", 10)
		sink.Progress("Obfuscating", 50)
		sink.Done("obfuscated_1.js", "/download/obfuscated_1.js")
	}}
	s, _, _ := newTestServer(t, runner)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialWS(t, srv)
	readMessage(t, conn) // welcome

	start := Message{Type: "start", File: "in.js", Preset: "nova", AntiBypass: true}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatal(err)
	}

	first := readMessage(t, conn)
	if first.Type != "progress" || first.Status != "Reading file" || first.Percent != 10 {
		t.Errorf("first event = %+v", first)
	}
	second := readMessage(t, conn)
	if second.Type != "progress" || second.Percent != 50 {
		t.Errorf("second event = %+v", second)
	}
	done := readMessage(t, conn)
	if done.Type != "done" || done.Filename != "obfuscated_1.js" {
		t.Errorf("done event = %+v", done)
	}
	if done.Download != "/download/obfuscated_1.js" {
		t.Errorf("download path %q", done.Download)
	}
}

func TestWS_RequestFieldsReachRunner(t *testing.T) {
	got := make(chan job.Request, 1)
	runner := &fakeRunner{script: func(req job.Request, sink job.Sink) {
		got <- req
		sink.Done("x.js", "/download/x.js")
	}}
	s, _, _ := newTestServer(t, runner)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialWS(t, srv)
	readMessage(t, conn)

	conn.WriteJSON(Message{
		Type:       "start",
		File:       "171_app.js",
		Preset:     "japan-arab",
		Password:   "hunter2",
		AntiBypass: true,
		Prefix:     "release",
	})

	select {
	case req := <-got:
		want := job.Request{
			File:       "171_app.js",
			Preset:     "japan-arab",
			Password:   "hunter2",
			AntiBypass: true,
			Prefix:     "release",
		}
		if req != want {
			t.Errorf("request = %+v, want %+v", req, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runner never invoked")
	}
}

func TestWS_FailureEvent(t *testing.T) {
	runner := &fakeRunner{script: func(req job.Request, sink job.Sink) {
		sink.Progress("Reading file", 10)
		sink.Failed("file not found")
	}}
	s, _, _ := newTestServer(t, runner)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialWS(t, srv)
	readMessage(t, conn)

	conn.WriteJSON(Message{Type: "start", File: "missing.js"})

	readMessage(t, conn) // progress
	errMsg := readMessage(t, conn)
	if errMsg.Type != "error" || errMsg.Message != "file not found" {
		t.Errorf("error event = %+v", errMsg)
	}
}

func TestWS_UnknownTypeIgnored(t *testing.T) {
	runner := &fakeRunner{script: func(req job.Request, sink job.Sink) {
		sink.Done("a.js", "/download/a.js")
	}}
	s, _, _ := newTestServer(t, runner)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dialWS(t, srv)
	readMessage(t, conn)

	// The connection stays open after an unknown type; a subsequent start
	// still works.
	conn.WriteJSON(Message{Type: "ping"})
	conn.WriteJSON(Message{Type: "start", File: "a.js"})

	msg := readMessage(t, conn)
	if msg.Type != "done" {
		t.Errorf("after unknown type, got %+v", msg)
	}
}
