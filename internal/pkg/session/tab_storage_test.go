package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"academy-service/internal/domain/auth"
)

// jsonCodec is an unsigned codec: "<tabID>|<json user>".
type jsonCodec struct{}

func (jsonCodec) Encode(tabID string, user *auth.AuthUser) (string, error) {
	b, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	return tabID + "|" + string(b), nil
}

func (jsonCodec) Decode(token string) (string, *auth.AuthUser, error) {
	tabID, raw, ok := strings.Cut(token, "|")
	if !ok {
		return "", nil, errors.New("malformed token")
	}
	var u auth.AuthUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return "", nil, err
	}
	return tabID, &u, nil
}

func TestTabStorageSeedsFromRequest(t *testing.T) {
	ctx := context.Background()
	token, _ := jsonCodec{}.Encode("tab-1", student())

	s := NewTabStorage("tab-1", token, jsonCodec{})
	m := NewManager(s, nil, Options{})

	u, err := m.GetUser(ctx)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if u == nil || *u != *student() {
		t.Fatalf("GetUser = %+v", u)
	}
	if s.Dirty() {
		t.Fatal("reading should not dirty the storage")
	}
}

func TestTabStorageRejectsTokenFromOtherTab(t *testing.T) {
	token, _ := jsonCodec{}.Encode("tab-A", admin())

	s := NewTabStorage("tab-B", token, jsonCodec{})
	if _, ok, _ := s.Get(context.Background(), UserKey); ok {
		t.Fatal("token issued to another tab was accepted")
	}
	if id, _, _ := s.Get(context.Background(), TabIDKey); id != "tab-B" {
		t.Fatalf("tab id = %q", id)
	}
}

func TestTabStorageIgnoresBadToken(t *testing.T) {
	s := NewTabStorage("tab-1", "garbage", jsonCodec{})
	if _, ok, _ := s.Get(context.Background(), UserKey); ok {
		t.Fatal("bad token was accepted")
	}
}

func TestTabStorageWriteHeadersAfterLogin(t *testing.T) {
	ctx := context.Background()
	s := NewTabStorage("", "", jsonCodec{})
	m := NewManager(s, nil, Options{NewID: func() string { return "tab-new" }})

	if err := m.SetUser(ctx, student()); err != nil {
		t.Fatalf("SetUser: %v", err)
	}

	h := http.Header{}
	if err := s.WriteHeaders(h); err != nil {
		t.Fatalf("WriteHeaders: %v", err)
	}
	if got := h.Get(HeaderTabID); got != "tab-new" {
		t.Fatalf("%s = %q", HeaderTabID, got)
	}
	tabID, u, err := jsonCodec{}.Decode(h.Get(HeaderTabSession))
	if err != nil {
		t.Fatalf("decode session header: %v", err)
	}
	if tabID != "tab-new" || *u != *student() {
		t.Fatalf("session header = %q %+v", tabID, u)
	}
	if h.Get(HeaderTabClear) != "" {
		t.Fatalf("unexpected clear header %q", h.Get(HeaderTabClear))
	}
	if s.Dirty() {
		t.Fatal("storage still dirty after WriteHeaders")
	}
}

func TestTabStorageWriteHeadersAfterClear(t *testing.T) {
	ctx := context.Background()
	token, _ := jsonCodec{}.Encode("tab-1", student())
	s := NewTabStorage("tab-1", token, jsonCodec{})
	m := NewManager(s, nil, Options{})

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	h := http.Header{}
	if err := s.WriteHeaders(h); err != nil {
		t.Fatalf("WriteHeaders: %v", err)
	}
	if got := h.Get(HeaderTabClear); got != "id,session" {
		t.Fatalf("%s = %q, want id,session", HeaderTabClear, got)
	}
	if h.Get(HeaderTabID) != "" || h.Get(HeaderTabSession) != "" {
		t.Fatal("cleared values were written back")
	}
}

func TestTabStorageNothingToWrite(t *testing.T) {
	s := NewTabStorage("tab-1", "", jsonCodec{})
	h := http.Header{}
	if err := s.WriteHeaders(h); err != nil {
		t.Fatalf("WriteHeaders: %v", err)
	}
	if len(h) != 0 {
		t.Fatalf("headers = %v, want none", h)
	}
}
