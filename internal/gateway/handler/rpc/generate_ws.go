package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pagecopy/internal/batch"
	"pagecopy/internal/logger"
	"pagecopy/internal/orchestrator"
	"pagecopy/internal/types"
)

// Generator runs one full generation while reporting batch progress.
type Generator interface {
	Generate(ctx context.Context, req orchestrator.GenerateRequest, observe batch.Observer) (*types.Result, error)
}

// GenerateStreamHandler serves /ws/generate: the client sends one generate
// message, the server streams batch events and closes after the result.
type GenerateStreamHandler struct {
	svc Generator
	log *logger.Logger
}

func NewGenerateStreamHandler(svc Generator, log *logger.Logger) *GenerateStreamHandler {
	return &GenerateStreamHandler{svc: svc, log: logger.OrNop(log)}
}

const (
	generateWSWriteWait = 10 * time.Second
	generateWSPongWait  = 60 * time.Second
	generateWSPingEvery = (generateWSPongWait * 9) / 10
)

var generateWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// Outbound message types.
const (
	WSAccepted = "accepted"
	WSBatch    = "batch"
	WSResult   = "result"
	WSError    = "error"
	WSPong     = "pong"
)

type generateWSInbound struct {
	Type    string                       `json:"type"`
	Request orchestrator.GenerateRequest `json:"request"`
}

type generateWSOutbound struct {
	Type    string        `json:"type"`
	Event   *batch.Event  `json:"event,omitempty"`
	Result  *types.Result `json:"result,omitempty"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`

	final bool
}

func (h *GenerateStreamHandler) HandleGenerateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := generateWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(generateWSPongWait)); err != nil {
		h.log.Warn("generate ws set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(generateWSPongWait))
	})

	writeCh := make(chan generateWSOutbound, 32)
	writerDone := make(chan struct{})
	go h.writeLoop(ctx, conn, writeCh, writerDone)

	var in generateWSInbound
	if err := conn.ReadJSON(&in); err != nil {
		finish(ctx, writeCh, writerDone, generateWSOutbound{Type: WSError, Code: "invalid_argument", Message: "invalid json message"})
		return
	}
	if in.Type != "generate" {
		finish(ctx, writeCh, writerDone, generateWSOutbound{Type: WSError, Code: "invalid_argument", Message: "unsupported type: " + in.Type})
		return
	}

	// A dropped connection cancels the generation.
	go func() {
		defer cancel()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg generateWSInbound
			if json.Unmarshal(raw, &msg) == nil && msg.Type == "ping" {
				pushGenerateWS(writeCh, generateWSOutbound{Type: WSPong})
			}
		}
	}()

	pushGenerateWS(writeCh, generateWSOutbound{Type: WSAccepted})
	res, err := h.svc.Generate(ctx, in.Request, func(ev batch.Event) {
		pushGenerateWS(writeCh, generateWSOutbound{Type: WSBatch, Event: &ev})
	})
	if err != nil {
		h.log.Warn("generate ws failed", "error", err)
		finish(ctx, writeCh, writerDone, generateWSOutbound{Type: WSError, Code: errorCode(err), Message: err.Error()})
		return
	}
	finish(ctx, writeCh, writerDone, generateWSOutbound{Type: WSResult, Result: res})
}

func (h *GenerateStreamHandler) writeLoop(ctx context.Context, conn *websocket.Conn, writeCh <-chan generateWSOutbound, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(generateWSPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case out := <-writeCh:
			if err := conn.SetWriteDeadline(time.Now().Add(generateWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(out); err != nil {
				return
			}
			if out.final {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(generateWSWriteWait))
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(generateWSWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// finish queues the last message behind any pending events and waits for
// the writer to flush it.
func finish(ctx context.Context, writeCh chan generateWSOutbound, writerDone <-chan struct{}, out generateWSOutbound) {
	out.final = true
	select {
	case writeCh <- out:
	case <-writerDone:
		return
	case <-ctx.Done():
		return
	}
	<-writerDone
}

// pushGenerateWS never blocks: when the buffer is full the oldest queued
// message is dropped, unless it is the final one.
func pushGenerateWS(writeCh chan generateWSOutbound, out generateWSOutbound) {
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case old := <-writeCh:
		if old.final {
			out = old
		}
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
