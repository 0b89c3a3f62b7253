package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AndreGCGuerra/dune/entity"
	"github.com/AndreGCGuerra/dune/errors"
	"github.com/AndreGCGuerra/dune/health"
	"github.com/AndreGCGuerra/dune/message"
	"github.com/AndreGCGuerra/dune/task"
)

// TaskName is the section name the service reads its profile from.
const TaskName = "monitor"

// StateEvent is one entity state change pushed to websocket clients.
type StateEvent struct {
	Entity      string    `json:"entity"`
	State       string    `json:"state"`
	Code        string    `json:"code,omitempty"`
	Description string    `json:"description,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Service is the observability task.
type Service struct {
	*task.BaseTask

	db      *entity.Database
	monitor *health.Monitor

	addr     string
	listener net.Listener
	server   *http.Server

	upgrader  websocket.Upgrader
	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}
}

// New constructs the service.
func New(ctx task.Context) *Service {
	s := &Service{
		BaseTask: task.NewBaseTask(TaskName, ctx),
		db:       ctx.DB,
		monitor:  health.NewMonitor(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]struct{}),
	}

	s.Params().Define("HTTP - Address").
		DefaultValue(":8080").
		SetDescription("Listen address of the observability endpoint")

	task.MustBind(s.BaseTask, &message.EntityState{}, s.consumeEntityState)

	return s
}

// OnUpdateParameters caches validated parameter values.
func (s *Service) OnUpdateParameters() error {
	addr, err := s.Params().String("HTTP - Address")
	if err != nil {
		return err
	}
	s.addr = addr
	return nil
}

// OnResourceAcquisition binds the listen address and starts serving.
func (s *Service) OnResourceAcquisition() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.WrapFatal(
			fmt.Errorf("%w: %s: %v", errors.ErrResourceExhausted, s.addr, err),
			TaskName, "OnResourceAcquisition", "bind listen address")
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/entities", s.handleEntities)
	mux.HandleFunc("/ws", s.handleWebsocket)
	if reg := s.Metrics(); reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(
			reg.PrometheusRegistry(), promhttp.HandlerOpts{}))
	}

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.Logger().Error("http server failed", "error", err)
		}
	}()

	s.Logger().Info("observability endpoint up", "addr", ln.Addr().String())
	return nil
}

// OnResourceInitialization primes the health view by asking every entity
// to report.
func (s *Service) OnResourceInitialization() error {
	s.Dispatch(message.NewQueryEntityState())
	return nil
}

// OnResourceRelease shuts the server down and drops websocket clients.
func (s *Service) OnResourceRelease() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.Logger().Warn("http shutdown incomplete", "error", err)
		}
		s.server = nil
		s.listener = nil
	}

	s.clientsMu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]struct{})
	s.clientsMu.Unlock()
}

// Addr returns the bound listen address, empty before acquisition.
func (s *Service) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// consumeEntityState feeds the health view and the websocket stream.
func (s *Service) consumeEntityState(m *message.EntityState) {
	label := s.entityLabel(m)
	s.monitor.UpdateFromEntityState(label, m)

	s.broadcast(StateEvent{
		Entity:      label,
		State:       m.State.String(),
		Code:        m.Code.Description(),
		Description: m.Description,
		Timestamp:   m.Envelope().Timestamp,
	})
}

// entityLabel resolves a report's source entity to its reserved label,
// falling back to the publishing task name.
func (s *Service) entityLabel(m *message.EntityState) string {
	id := m.Envelope().SrcEnt
	if id != message.UnknownEntity {
		if info, err := s.db.Lookup(id); err == nil {
			return info.Label
		}
	}
	if src := m.Envelope().Src; src != "" {
		return src
	}
	return fmt.Sprintf("entity-%d", id)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	agg := s.monitor.AggregateHealth("vehicle")

	w.Header().Set("Content-Type", "application/json")
	if agg.IsUnhealthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(agg); err != nil {
		s.Logger().Warn("health encode failed", "error", err)
	}
}

func (s *Service) handleEntities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.monitor.GetAll()); err != nil {
		s.Logger().Warn("entities encode failed", "error", err)
	}
}

func (s *Service) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger().Warn("websocket upgrade failed", "error", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	s.clientsMu.Unlock()

	// Reader goroutine to detect client close; inbound payloads are ignored.
	go func() {
		defer s.dropClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Service) dropClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		conn.Close()
	}
}

// broadcast pushes one event to every connected client. A client that
// cannot be written to is dropped.
func (s *Service) broadcast(ev StateEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	s.clientsMu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.clientsMu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.dropClient(conn)
		}
	}
}
