package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPublishReport(t *testing.T) {
	t.Parallel()

	type received struct{ path, chat, text string }
	got := make(chan received, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got <- received{path: r.URL.Path, chat: r.PostForm.Get("chat_id"), text: r.PostForm.Get("text")}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewNotifier("token", "chat-1")
	n.apiBase = server.URL

	if err := n.PublishReport(context.Background(), "2 articles unresolved"); err != nil {
		t.Fatalf("PublishReport returned error: %v", err)
	}
	r := <-got
	if r.path != "/bottoken/sendMessage" {
		t.Fatalf("unexpected path %s", r.path)
	}
	if r.chat != "chat-1" || r.text != "2 articles unresolved" {
		t.Fatalf("unexpected form chat=%q text=%q", r.chat, r.text)
	}
}

func TestPublishReport_Errors(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "chat").PublishReport(context.Background(), "x"); err == nil {
		t.Fatal("expected misconfiguration error")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	n := NewNotifier("token", "chat")
	n.apiBase = server.URL
	if err := n.PublishReport(context.Background(), "x"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
