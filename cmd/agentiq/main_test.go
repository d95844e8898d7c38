package main

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dimasergei/agentiq/internal/domain"
	"github.com/dimasergei/agentiq/internal/messaging/inproc"
)

func TestSimulationEventsStream(t *testing.T) {
	bus := inproc.New(8)
	a := &app{bus: bus}

	srv := httptest.NewServer(http.HandlerFunc(a.handleSimulationEvents))
	defer srv.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type=%q want=text/event-stream", ct)
	}

	// The subscription registers on the handler goroutine, so publish until
	// a delivery lands on the stream.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		evt := domain.SimulationEvent{
			Kind:      domain.EventTaskStatusChanged,
			TaskID:    "demo-task-1",
			TaskState: domain.TaskStatusInProgress,
			At:        time.Unix(1000, 0).UTC(),
		}
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = bus.Publish(evt)
			time.Sleep(10 * time.Millisecond)
		}
	}()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var evt domain.SimulationEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if evt.Kind != domain.EventTaskStatusChanged || evt.TaskID != "demo-task-1" {
			t.Fatalf("event=%+v want status change for demo-task-1", evt)
		}
		return
	}
	t.Fatalf("stream ended before an event arrived: %v", scanner.Err())
}

func TestReadEndpointsRejectNonGet(t *testing.T) {
	a := &app{}
	handlers := map[string]http.HandlerFunc{
		"/usage":             a.handleUsage,
		"/usage/history":     a.handleUsageHistory,
		"/queries":           a.handleQueryLog,
		"/simulation/tasks":  a.handleSimulationTasks,
		"/simulation/stats":  a.handleSimulationStats,
		"/simulation/events": a.handleSimulationEvents,
	}
	for path, handler := range handlers {
		rr := httptest.NewRecorder()
		handler(rr, httptest.NewRequest(http.MethodPost, path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s POST status=%d want=%d", path, rr.Code, http.StatusMethodNotAllowed)
		}
	}
}
