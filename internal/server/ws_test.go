package server_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func TestChatWS_GreetsAndReplies(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubDiagnoser{}, &stubAssistant{reply: "Remove infected leaves."})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/chat/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.CloseNow()

	var frame struct {
		Message string `json:"message"`
	}

	// The greeting arrives first, unprompted.
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if !strings.Contains(frame.Message, "assistant") {
		t.Errorf("greeting = %q, want the assistant's greeting", frame.Message)
	}

	if err := wsjson.Write(ctx, conn, map[string]string{"message": "what about late blight?"}); err != nil {
		t.Fatalf("write message: %v", err)
	}
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if frame.Message != "Remove infected leaves." {
		t.Errorf("reply = %q, want the assistant's answer", frame.Message)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

func TestChatWS_MultipleExchanges(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubDiagnoser{}, &stubAssistant{reply: "ok"})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/chat/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.CloseNow()

	var frame struct {
		Message string `json:"message"`
	}
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read greeting: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := wsjson.Write(ctx, conn, map[string]string{"message": "hello"}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if frame.Message != "ok" {
			t.Fatalf("reply %d = %q, want ok", i, frame.Message)
		}
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}
