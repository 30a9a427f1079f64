package chat_test

import (
	"context"
	"testing"
	"time"

	modelchat "github.com/openorder-ai/erp-chatbot/internal/model/chat"
	chat "github.com/openorder-ai/erp-chatbot/internal/service/chat"
)

func TestServiceStartAndGetSession(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := chat.NewService()

	if _, err := svc.GetSession(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing session")
	}
}

func TestServiceTouchCreatesUnknownSession(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session := svc.Touch(ctx, "client-supplied-id")
	if session.ID != "client-supplied-id" {
		t.Fatalf("unexpected session ID: %s", session.ID)
	}

	if _, err := svc.GetSession(ctx, "client-supplied-id"); err != nil {
		t.Fatalf("touched session should exist: %v", err)
	}
}

func TestServiceTranscriptOrder(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, _ := svc.StartSession(ctx)
	for _, content := range []string{"q1", "a1", "q2"} {
		msg := modelchat.Message{SessionID: session.ID, Sender: modelchat.SenderUser, Content: content}
		if err := svc.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("SaveMessage err: %v", err)
		}
	}

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	if len(transcript) != 3 || transcript[0].Content != "q1" || transcript[2].Content != "q2" {
		t.Fatalf("unexpected transcript: %+v", transcript)
	}
}

func TestServiceLastItem(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, _ := svc.StartSession(ctx)
	svc.SetLastItem(ctx, session.ID, "AB-1020")

	if got := svc.LastItem(ctx, session.ID); got != "AB-1020" {
		t.Fatalf("unexpected last item: %q", got)
	}
	if got := svc.LastItem(ctx, "missing"); got != "" {
		t.Fatalf("expected empty last item for missing session, got %q", got)
	}
}

func TestServiceCleanup(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, _ := svc.StartSession(ctx)
	time.Sleep(10 * time.Millisecond)

	if removed := svc.Cleanup(time.Millisecond); removed != 1 {
		t.Fatalf("expected 1 removed session, got %d", removed)
	}
	if _, err := svc.GetSession(ctx, session.ID); err == nil {
		t.Fatal("expired session should be gone")
	}
}
