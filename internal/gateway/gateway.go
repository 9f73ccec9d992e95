// Package gateway exposes the dispatcher over WebSocket so a remote
// microphone frontend (or curl during debugging) can drive a conversation
// without local audio.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/murmurhq/murmur/internal/dispatch"
	"github.com/murmurhq/murmur/internal/skill"
)

// TurnRequest is one inbound utterance.
type TurnRequest struct {
	Utterance string `json:"utterance"`
}

// TurnResult is one skill result rendered for the wire.
type TurnResult struct {
	UID        string `json:"uid"`
	Kind       string `json:"kind"`
	Category   string `json:"category"`
	Payload    string `json:"payload,omitempty"`
	Err        string `json:"error,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Winner     bool   `json:"winner"`
}

// TurnResponse carries everything the turn produced.
type TurnResponse struct {
	Results []TurnResult `json:"results"`
	Err     string       `json:"error,omitempty"`
}

// Gateway serializes turns from all connections through one dispatcher.
// The flow record is shared mutable state, so turns never interleave.
type Gateway struct {
	mu         sync.Mutex
	dispatcher *dispatch.Dispatcher
	log        *zap.Logger
	metrics    http.Handler
}

func New(d *dispatch.Dispatcher, log *zap.Logger, metrics http.Handler) *Gateway {
	return &Gateway{dispatcher: d, log: log, metrics: metrics}
}

// Routes mounts the gateway endpoints on mux.
func (g *Gateway) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", g.handleHealth)
	mux.HandleFunc("/ws", g.handleWS)
	if g.metrics != nil {
		mux.Handle("/metrics", g.metrics)
	}
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.log.Warn("gateway: accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ctx := r.Context()
	for {
		var req TurnRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				_ = conn.Close(websocket.StatusNormalClosure, "bye")
				return
			}
			g.log.Warn("gateway: read failed", zap.Error(err))
			return
		}

		resp := g.turn(ctx, req.Utterance)
		writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = wsjson.Write(writeCtx, conn, resp)
		cancel()
		if err != nil {
			g.log.Warn("gateway: write failed", zap.Error(err))
			return
		}
	}
}

// Turn runs one dispatcher turn and records the winner. Exposed for the
// local voice loop as well as the WebSocket handler.
func (g *Gateway) Turn(ctx context.Context, utterance string) TurnResponse {
	return g.turn(ctx, utterance)
}

func (g *Gateway) turn(ctx context.Context, utterance string) TurnResponse {
	g.mu.Lock()
	defer g.mu.Unlock()

	results, err := g.dispatcher.Run(ctx, utterance)
	if err != nil {
		g.log.Error("gateway: turn failed", zap.String("utterance", utterance), zap.Error(err))
		return TurnResponse{Err: err.Error()}
	}

	winner, ok := dispatch.Winner(results)
	if ok {
		g.dispatcher.Record(winner)
		if winner.Speak != nil {
			if err := winner.Speak(); err != nil {
				g.log.Warn("gateway: speak failed", zap.Error(err))
			}
		}
	}

	resp := TurnResponse{Results: make([]TurnResult, 0, len(results))}
	marked := false
	for _, r := range results {
		isWinner := ok && !marked && sameResult(winner, r)
		marked = marked || isWinner
		resp.Results = append(resp.Results, renderResult(r, isWinner))
	}
	return resp
}

func sameResult(a, b skill.Result) bool {
	return a.UID == b.UID && a.Kind == b.Kind && a.Payload == b.Payload && a.Err == b.Err
}

func renderResult(r skill.Result, winner bool) TurnResult {
	return TurnResult{
		UID:        r.UID,
		Kind:       r.Kind.String(),
		Category:   r.Category.String(),
		Payload:    r.Payload,
		Err:        r.Err,
		Suggestion: r.Suggestion,
		Winner:     winner,
	}
}
