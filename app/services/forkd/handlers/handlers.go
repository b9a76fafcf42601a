// Package handlers manages the different endpoints for the forkd service.
package handlers

import (
	"encoding/json"
	"expvar"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/ardanlabs/forkchain/foundation/chain/fork"
	"github.com/ardanlabs/forkchain/foundation/chain/header"
	"github.com/ardanlabs/forkchain/foundation/chain/state"
	"github.com/ardanlabs/forkchain/foundation/chain/verifier"
	"github.com/ardanlabs/forkchain/foundation/events"
	"github.com/dimfeld/httptreemux/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MuxConfig contains all the mandatory systems required by handlers.
type MuxConfig struct {
	Log   *zap.SugaredLogger
	State *state.State
	Forks fork.Forks
	Evts  *events.Events
}

// PublicMux constructs a http.Handler with all application routes defined.
func PublicMux(cfg MuxConfig) http.Handler {
	mux := httptreemux.NewContextMux()

	hdl := handlerGroup{
		log:   cfg.Log,
		state: cfg.State,
		forks: cfg.Forks,
		evts:  cfg.Evts,
	}

	mux.Handle(http.MethodGet, "/v1/settings", hdl.settings)
	mux.Handle(http.MethodGet, "/v1/chain", hdl.chain)
	mux.Handle(http.MethodGet, "/v1/forks", hdl.contentiousForks)
	mux.Handle(http.MethodGet, "/v1/verify/:rule", hdl.verify)
	mux.Handle(http.MethodGet, "/v1/events", hdl.headerEvents)

	return mux
}

// DebugMux registers all the debug routes from the standard library into
// a new mux bypassing the use of the DefaultServerMux. Using the
// DefaultServerMux would be a security risk since a dependency could
// inject a handler into our service without us knowing it.
func DebugMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/debug/vars", expvar.Handler())

	return mux
}

// =============================================================================

type handlerGroup struct {
	log   *zap.SugaredLogger
	state *state.State
	forks fork.Forks
	evts  *events.Events
	ws    websocket.Upgrader
}

// settings returns the chain settings the service was started with.
func (h handlerGroup) settings(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.state.RetrieveSettings())
}

// chain returns the canonical in-memory chain including genesis.
func (h handlerGroup) chain(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Genesis header.Header   `json:"genesis"`
		Headers []header.Header `json:"headers"`
	}{
		Genesis: h.state.RetrieveGenesis(),
		Headers: h.state.RetrieveChain(),
	}

	respond(w, http.StatusOK, resp)
}

// contentiousForks returns the forked chains mined at startup.
func (h handlerGroup) contentiousForks(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.forks)
}

// verify checks both branches of the contentious fork under the rule
// named in the route and reports which branch the rule accepts.
func (h handlerGroup) verify(w http.ResponseWriter, r *http.Request) {
	params := httptreemux.ContextParams(r.Context())

	rule, err := verifier.ParseRule(params["rule"])
	if err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	evenChain := append(append([]header.Header{}, h.forks.Prefix...), h.forks.Even...)
	oddChain := append(append([]header.Header{}, h.forks.Prefix...), h.forks.Odd...)

	vrf := h.state.Verifier()

	resp := struct {
		Rule string       `json:"rule"`
		Even branchResult `json:"even_branch"`
		Odd  branchResult `json:"odd_branch"`
	}{
		Rule: rule.String(),
		Even: newBranchResult(vrf.Validate(h.forks.Genesis, evenChain, rule)),
		Odd:  newBranchResult(vrf.Validate(h.forks.Genesis, oddChain, rule)),
	}

	respond(w, http.StatusOK, resp)
}

// headerEvents handles a web socket to provide mining and verification
// events to a client.
func (h handlerGroup) headerEvents(w http.ResponseWriter, r *http.Request) {
	h.ws.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.ws.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorw("events", "ERROR", err)
		return
	}
	defer c.Close()

	traceID := uuid.NewString()

	ch := h.evts.Acquire(traceID)
	defer h.evts.Release(traceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return
			}
		}
	}
}

// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
}

type branchResult struct {
	Valid     bool   `json:"valid"`
	Violation string `json:"violation,omitempty"`
}

func newBranchResult(err error) branchResult {
	if err != nil {
		return branchResult{Valid: false, Violation: err.Error()}
	}
	return branchResult{Valid: true}
}

func respond(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
