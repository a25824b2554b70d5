// Package cfgserver implements spec.md §4.14's CFG visualization server:
// an HTTP server exposing a compiled program's control-flow graph as JSON
// or Graphviz, plus a WebSocket endpoint streaming live vm.Machine.Step
// events. It is grounded on the teacher's internal/network/websocket.go
// (its Upgrader/http.Server wiring, one goroutine per connection reading
// until the socket closes), wiring the same github.com/gorilla/websocket
// dependency for a genuinely different purpose: pushing step-by-step
// execution traces to a connected client instead of ferrying raw
// application messages.
package cfgserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mepa/internal/cfg"
	"mepa/internal/mepa"
	"mepa/internal/vm"
)

// Server serves one compiled program's CFG and live execution trace.
type Server struct {
	code     *mepa.Code
	graph    *cfg.Graph
	upgrader websocket.Upgrader
	input    []int32
}

// New builds a Server for code, normalizing its labels and pre-computing
// its CFG once (Build does not mutate code, so the same normalized
// *mepa.Code backs both the CFG views and every /ws session's own
// Machine, and /ws addresses match the graph's).
func New(code *mepa.Code, input []int32) (*Server, error) {
	norm, err := code.NormalizeLabels()
	if err != nil {
		return nil, fmt.Errorf("cfgserver: normalizing labels: %w", err)
	}
	g, err := cfg.Build(norm)
	if err != nil {
		return nil, fmt.Errorf("cfgserver: building graph: %w", err)
	}
	return &Server{
		code:  norm,
		graph: g,
		input: input,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

// Handler returns the server's routes, ready to pass to http.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/graph", s.handleGraphJSON)
	mux.HandleFunc("/graph.dot", s.handleGraphDOT)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// ListenAndServe starts an HTTP server on addr, blocking until it exits.
func (s *Server) ListenAndServe(addr string) error {
	server := &http.Server{Addr: addr, Handler: s.Handler()}
	return server.ListenAndServe()
}

type blockView struct {
	Index      int   `json:"index"`
	Start      int   `json:"start"`
	End        int   `json:"end"`
	Successors []int `json:"successors"`
}

func (s *Server) handleGraphJSON(w http.ResponseWriter, r *http.Request) {
	blocks := make([]blockView, len(s.graph.Blocks))
	for i, b := range s.graph.Blocks {
		blocks[i] = blockView{Index: i, Start: b.Start, End: b.End, Successors: s.graph.Succ[i]}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(blocks)
}

func (s *Server) handleGraphDOT(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	fmt.Fprint(w, s.graph.DOT())
}

// stepEvent is one message pushed to a connected /ws client per Step call.
type stepEvent struct {
	Addr   int    `json:"addr"`
	Status string `json:"status"`
	Output *int32 `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func statusName(st vm.StepStatus) string {
	switch st {
	case vm.NeedsInput:
		return "needs_input"
	case vm.Produced:
		return "produced"
	case vm.Halted:
		return "halted"
	case vm.Continuing:
		return "continuing"
	case vm.Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// handleWebSocket drives a fresh Machine for this connection, pushing one
// stepEvent per Step call until Halted, Failed, or the socket closes.
// Pre-supplied input (s.input) feeds every NeedsInput automatically so a
// session streams end to end without round-tripping read prompts over the
// socket; a future revision could instead forward NeedsInput to the
// client and resume on an inbound message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	m := vm.NewWithInput(s.code, s.input)
	for {
		addr := m.IP()
		result := m.Step()

		evt := stepEvent{Addr: addr, Status: statusName(result.Status)}
		if result.Status == vm.Produced {
			v := result.Output
			evt.Output = &v
		}
		if result.Status == vm.Failed {
			evt.Error = result.Err.Error()
		}

		if err := conn.WriteJSON(evt); err != nil {
			return
		}
		if result.Status == vm.Halted || result.Status == vm.Failed {
			return
		}
		if result.Status == vm.NeedsInput {
			// No more pre-supplied input: nothing further this session can
			// do but report it and stop, matching a Machine with an
			// exhausted pendingInput queue.
			return
		}
		time.Sleep(5 * time.Millisecond) // pace the stream for a human-watchable trace
	}
}
