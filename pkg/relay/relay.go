// Package relay is the thin glue path: a WebSocket server that accepts
// {"text": "..."} messages from a remote front-end and routes them straight
// into the intent dispatch table, bypassing the audio pipeline and state
// machine entirely. Grounded on the teacher's pkg/providers/tts/lokutor.go,
// the only place in the pack that talks github.com/coder/websocket — that
// file is a client; this is the server side of the same dependency.
package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/hashing-labs/voxd/pkg/intent"
	"github.com/hashing-labs/voxd/pkg/logging"
)

// Router is the capability a relayed command needs: the same IntentRouter
// the orchestrator's Listening state calls on a finished transcript.
type Router interface {
	Route(text string) intent.Intent
}

// Dispatcher executes a routed intent. The orchestrator's own execute
// method satisfies a different, richer contract (it also needs the
// session), so a relayed command gets its own minimal one: most of the
// dispatch table's actions don't depend on session state at all.
type Dispatcher func(ctx context.Context, in intent.Intent)

type inbound struct {
	Text string `json:"text"`
}

type outbound struct {
	Status string `json:"status"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Relay accepts WebSocket connections and routes each {"text"} message to
// Router, optionally forwarding the result to Dispatch.
type Relay struct {
	router   Router
	dispatch Dispatcher
	log      logging.Logger
}

// New builds a Relay. dispatch may be nil, in which case a relayed command
// is routed and acknowledged but never executed — useful for a dry-run
// front-end that only wants to see what would happen.
func New(router Router, log logging.Logger) *Relay {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Relay{router: router, log: log}
}

// WithDispatcher attaches the function that actually carries out a routed
// intent.
func (r *Relay) WithDispatcher(d Dispatcher) *Relay {
	r.dispatch = d
	return r
}

// ListenAndServe runs the relay's HTTP+WebSocket server on addr and returns
// only when http.ListenAndServe does; it takes no context and has no
// shutdown path of its own.
func (r *Relay) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", r.handle)
	return http.ListenAndServe(addr, mux)
}

func (r *Relay) handle(w http.ResponseWriter, req *http.Request) {
	conn, err := websocket.Accept(w, req, nil)
	if err != nil {
		r.log.Warn("relay accept failed", "err", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := req.Context()
	for {
		var msg inbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if ctx.Err() == nil {
				r.log.Warn("relay read failed", "err", err)
			}
			return
		}

		routed := r.router.Route(msg.Text)
		if r.dispatch != nil {
			dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			r.dispatch(dctx, routed)
			cancel()
		}

		resp := outbound{Status: "routed", Kind: string(routed.Kind)}
		if err := wsjson.Write(ctx, conn, resp); err != nil {
			r.log.Warn("relay write failed", "err", err)
			return
		}
	}
}
