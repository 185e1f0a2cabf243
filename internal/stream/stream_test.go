package stream

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	_ "gridabm/internal/sims/wealth"
	"gridabm/pkg/core"
)

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("clients = %d, want %d", hub.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var f map[string]any
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return f
}

func TestValueEncodesNaNAsNull(t *testing.T) {
	data, err := json.Marshal([]Value{1.5, Value(math.NaN()), Value(math.Inf(1))})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "[1.5,null,null]" {
		t.Fatalf("encoded %s", data)
	}
}

func TestHubBroadcastsAndReplaysLatest(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()
	first := dial(t, hub)
	waitClients(t, hub, 1)

	ctx := context.Background()
	if err := hub.Publish(ctx, Frame{Model: "demo", Step: 7, Width: 2, Height: 1, Cells: []uint8{0, 1}}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if f := readFrame(t, first); f["step"] != 7.0 || f["model"] != "demo" {
		t.Fatalf("frame = %v", f)
	}

	late := dial(t, hub)
	if f := readFrame(t, late); f["step"] != 7.0 {
		t.Fatalf("late client got %v", f)
	}
	waitClients(t, hub, 2)

	first.Close()
	waitClients(t, hub, 1)
}

func TestPublishAfterClose(t *testing.T) {
	hub := NewHub(nil)
	hub.Close()
	if err := hub.Publish(context.Background(), Frame{}); err == nil {
		t.Fatal("publish on a closed hub succeeded")
	}
	if err := hub.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestDriveStreamsEveryStep(t *testing.T) {
	m, err := core.Build("wealth", map[string]string{"steps": "5", "width": "4", "height": "3", "agents": "6"}, core.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	hub := NewHub(nil)
	defer hub.Close()
	conn := dial(t, hub)
	waitClients(t, hub, 1)

	if err := Drive(context.Background(), m, hub, 1000); err != nil {
		t.Fatalf("Drive: %v", err)
	}
	var last map[string]any
	for step := 0; step <= 5; step++ {
		last = readFrame(t, conn)
		if last["step"] != float64(step) {
			t.Fatalf("frame %d has step %v", step, last["step"])
		}
	}
	if last["state"] != "terminated" || last["reason"] != "max steps" {
		t.Fatalf("final frame = %v", last)
	}
	if w, h := last["width"], last["height"]; w != 4.0 || h != 3.0 {
		t.Fatalf("dimensions %vx%v", w, h)
	}
	if cells, _ := last["cells"].(string); cells == "" {
		t.Fatal("cells missing from frame")
	}
}

func TestDriveStopsOnCancel(t *testing.T) {
	m, err := core.Build("wealth", map[string]string{"steps": "1000"}, core.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	hub := NewHub(nil)
	defer hub.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := Drive(ctx, m, hub, 10); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Drive = %v, want deadline exceeded", err)
	}
	if m.Sim().State() == core.Terminated {
		t.Fatal("run finished despite cancellation")
	}
}
