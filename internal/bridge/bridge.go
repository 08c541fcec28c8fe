// Package bridge forwards adjustment runs to a browser host over a
// WebSocket connection, for an in-browser deployment where the adjustment
// engine runs close to the model but progress and results are rendered by a
// remote UI. Each run gets exactly one connection, tracked in a concurrent
// map keyed by run id.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/fcmstudio/adjustment/internal/adjustment"
)

// Frame is the JSON envelope sent to the host for every SaveGeneration or
// SaveResult call.
type Frame struct {
	Type       string                 `json:"type"` // "generation" | "result" | "error"
	RunID      string                 `json:"runId"`
	Number     int                    `json:"number,omitempty"`
	Generation *adjustment.Generation `json:"generation,omitempty"`
	Individual *adjustment.Individual `json:"individual,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// Notifier is called when a run is accepted or fails, independent of the
// per-generation Frame traffic.
type Notifier interface {
	NotifyAccepted(runID string)
	NotifyFailed(runID string, err error)
}

// Registry holds the set of live host-bridge connections, keyed by run id,
// so an HTTP handler accepting a new run can look up the connection a
// concurrently-running goroutine should forward frames to.
type Registry struct {
	conns *xsync.MapOf[string, *websocket.Conn]
	log   zerolog.Logger
}

// NewRegistry returns an empty Registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		conns: xsync.NewMapOf[string, *websocket.Conn](),
		log:   log,
	}
}

// Register associates a run id with its websocket connection. Call once
// per run, before handing the run's Engine a HostBridge built with
// runID.
func (r *Registry) Register(runID string, conn *websocket.Conn) {
	r.conns.Store(runID, conn)
}

// Unregister removes a run id's connection, closing it. Callers should
// call this once the run's Engine has finished, whether it succeeded or
// failed.
func (r *Registry) Unregister(runID string) {
	if conn, ok := r.conns.LoadAndDelete(runID); ok {
		_ = conn.Close()
	}
}

// HostBridge implements adjustment.SaveResult by writing a Frame to the
// registry's connection for runID on every call. It also notifies an
// optional Notifier on failure.
type HostBridge struct {
	registry *Registry
	runID    string
	notifier Notifier
}

// NewHostBridge builds a HostBridge forwarding frames for runID through
// registry's connection. notifier may be nil.
func NewHostBridge(registry *Registry, runID string, notifier Notifier) *HostBridge {
	return &HostBridge{registry: registry, runID: runID, notifier: notifier}
}

func (b *HostBridge) conn() (*websocket.Conn, error) {
	conn, ok := b.registry.conns.Load(b.runID)
	if !ok {
		return nil, fmt.Errorf("bridge: no host connection registered for run %s", b.runID)
	}
	return conn, nil
}

// SaveGeneration forwards the generation as a JSON frame.
func (b *HostBridge) SaveGeneration(_ context.Context, generation *adjustment.Generation, number int) error {
	conn, err := b.conn()
	if err != nil {
		b.fail(err)
		return err
	}
	frame := Frame{Type: "generation", RunID: b.runID, Number: number, Generation: generation}
	if err := writeJSON(conn, frame); err != nil {
		b.fail(err)
		return err
	}
	return nil
}

// SaveResult forwards the best individual as a JSON frame.
func (b *HostBridge) SaveResult(_ context.Context, best *adjustment.Individual) error {
	conn, err := b.conn()
	if err != nil {
		b.fail(err)
		return err
	}
	frame := Frame{Type: "result", RunID: b.runID, Individual: best}
	if err := writeJSON(conn, frame); err != nil {
		b.fail(err)
		return err
	}
	if b.notifier != nil {
		b.notifier.NotifyAccepted(b.runID)
	}
	return nil
}

func (b *HostBridge) fail(err error) {
	if b.notifier != nil {
		b.notifier.NotifyFailed(b.runID, err)
	}
}

func writeJSON(conn *websocket.Conn, frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
