package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/hashing-labs/voxd/pkg/intent"
	"github.com/hashing-labs/voxd/pkg/logging"
)

type fakeRouter struct{}

func (fakeRouter) Route(text string) intent.Intent {
	if strings.Contains(text, "пауза") {
		return intent.Intent{Kind: intent.Pause}
	}
	return intent.Intent{Kind: intent.Unknown, Query: text}
}

func TestRelay_RoutesTextMessageAndReplies(t *testing.T) {
	var dispatched []intent.Intent
	r := New(fakeRouter{}, logging.NoOpLogger{}).WithDispatcher(func(ctx context.Context, in intent.Intent) {
		dispatched = append(dispatched, in)
	})

	server := httptest.NewServer(httpHandler(r))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, conn, map[string]string{"text": "пауза"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp outbound
	if err := wsjson.Read(ctx, conn, &resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Kind != string(intent.Pause) {
		t.Fatalf("resp.Kind = %q, want %q", resp.Kind, intent.Pause)
	}
	if len(dispatched) != 1 || dispatched[0].Kind != intent.Pause {
		t.Fatalf("dispatched = %+v, want one Pause intent", dispatched)
	}
}

// A relayed Shutdown/Reboot still reaches Dispatcher here: Relay has no
// notion of confirmation, it just forwards whatever Router returns. The
// drop happens one layer up, inside Orchestrator.ExecuteRelayed, which is
// what a real caller wires as Dispatcher — see
// TestOrchestrator_ExecuteRelayed_DropsShutdown in pkg/orchestrator.
func TestRelay_ForwardsRoutedIntentRegardlessOfKind(t *testing.T) {
	router := routerFunc(func(text string) intent.Intent {
		return intent.Intent{Kind: intent.Shutdown}
	})
	var dispatched []intent.Intent
	r := New(router, logging.NoOpLogger{}).WithDispatcher(func(ctx context.Context, in intent.Intent) {
		dispatched = append(dispatched, in)
	})

	server := httptest.NewServer(httpHandler(r))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, conn, map[string]string{"text": "выключи компьютер"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp outbound
	if err := wsjson.Read(ctx, conn, &resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Kind != string(intent.Shutdown) {
		t.Fatalf("resp.Kind = %q, want %q", resp.Kind, intent.Shutdown)
	}
	if len(dispatched) != 1 || dispatched[0].Kind != intent.Shutdown {
		t.Fatalf("dispatched = %+v, want one Shutdown intent", dispatched)
	}
}

type routerFunc func(text string) intent.Intent

func (f routerFunc) Route(text string) intent.Intent { return f(text) }

func httpHandler(r *Relay) http.Handler {
	return http.HandlerFunc(r.handle)
}
