package rpc

import (
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"pagecopy/internal/batch"
	"pagecopy/internal/orchestrator"
	"pagecopy/internal/tester"
)

type wsMessage struct {
	Type    string       `json:"type"`
	Event   *batch.Event `json:"event"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Result  *struct {
		Success bool              `json:"success"`
		Slots   map[string]string `json:"slots"`
		RunID   string            `json:"runId"`
	} `json:"result"`
}

func dialGenerate(t *testing.T, f *fixture) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/generate"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readUntilClosed(t *testing.T, conn *websocket.Conn) []wsMessage {
	t.Helper()
	var out []wsMessage
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			require.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected read error: %v", err)
			return out
		}
		out = append(out, msg)
	}
}

func TestGenerateWSStreamsBatchesThenResult(t *testing.T) {
	f := newFixture(t)
	conn := dialGenerate(t, f)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "generate",
		"request": orchestrator.GenerateRequest{
			Brief:  sampleBrief(),
			Fields: sampleFields(),
		},
	}))
	msgs := readUntilClosed(t, conn)

	var kinds []string
	for _, m := range msgs {
		if m.Type == WSBatch {
			kinds = append(kinds, string(m.Event.Kind))
		}
	}
	tester.Eq(t, msgs[0].Type, WSAccepted)
	// Three fields with batch size 2 run as two batches.
	tester.Eq(t, kinds, []string{"batch_started", "batch_completed", "batch_started", "batch_completed"})

	last := msgs[len(msgs)-1]
	tester.Eq(t, last.Type, WSResult)
	require.NotNil(t, last.Result)
	tester.True(t, last.Result.Success)
	tester.Eq(t, len(last.Result.Slots), 3)
	tester.True(t, last.Result.RunID != "")
}

func TestGenerateWSRejectsInvalidRequest(t *testing.T) {
	f := newFixture(t)
	conn := dialGenerate(t, f)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "generate",
		"request": orchestrator.GenerateRequest{Brief: sampleBrief()},
	}))
	msgs := readUntilClosed(t, conn)
	last := msgs[len(msgs)-1]
	tester.Eq(t, last.Type, WSError)
	tester.Eq(t, last.Code, "invalid_argument")
}

func TestGenerateWSUnsupportedType(t *testing.T) {
	f := newFixture(t)
	conn := dialGenerate(t, f)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe"}))
	msgs := readUntilClosed(t, conn)
	require.Len(t, msgs, 1)
	tester.Eq(t, msgs[0].Type, WSError)
	tester.Eq(t, msgs[0].Message, "unsupported type: subscribe")
}

func TestPushGenerateWSKeepsFinal(t *testing.T) {
	ch := make(chan generateWSOutbound, 1)
	ch <- generateWSOutbound{Type: WSResult, final: true}
	pushGenerateWS(ch, generateWSOutbound{Type: WSPong})
	tester.True(t, (<-ch).final)

	ch <- generateWSOutbound{Type: WSBatch}
	pushGenerateWS(ch, generateWSOutbound{Type: WSPong})
	tester.Eq(t, (<-ch).Type, WSPong)
}
