// internal/server/handler_test.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/signalnine/vintel/internal/config"
	"github.com/signalnine/vintel/internal/protocol"
)

type fakeState struct {
	msgs    []*protocol.Message
	lastAll bool
}

func (f *fakeState) Snapshot(all bool) protocol.Snapshot {
	f.lastAll = all
	return protocol.Snapshot{
		DowntimeIn: "01:00:00",
		Systems:    []protocol.SystemState{{Name: "JITA", Status: protocol.StatusAlarm}},
	}
}

func (f *fakeState) Messages(limit int) []*protocol.Message {
	if limit < len(f.msgs) {
		return f.msgs[len(f.msgs)-limit:]
	}
	return f.msgs
}

type fakeAvatars map[string][]byte

func (f fakeAvatars) GetAvatar(name string) ([]byte, bool, error) {
	data, ok := f[name]
	return data, ok, nil
}

type fakeKOS struct {
	names   []string
	reqType string
	onlyKOS bool
}

func (f *fakeKOS) Submit(names []string, requestType string, onlyKOS bool) string {
	f.names, f.reqType, f.onlyKOS = names, requestType, onlyKOS
	return "req-1"
}

func serve(h http.Handler, method, target, key, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerAuth(t *testing.T) {
	h := NewHandler(&fakeState{}, nil, nil, "secret-key")

	if rec := serve(h, "GET", "/systems", "", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no auth: Status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if rec := serve(h, "GET", "/systems", "wrong-key", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong auth: Status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if rec := serve(h, "GET", "/systems", "secret-key", ""); rec.Code != http.StatusOK {
		t.Errorf("good auth: Status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := serve(h, "GET", "/health", "", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("health: Status = %d body %q, want 200 ok", rec.Code, rec.Body.String())
	}
}

func TestHandlerSystems(t *testing.T) {
	state := &fakeState{}
	h := NewHandler(state, nil, nil, "")

	rec := serve(h, "GET", "/systems?all=1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if !state.lastAll {
		t.Error("all=1 should request every system")
	}
	var snap protocol.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(snap.Systems) != 1 || snap.Systems[0].Name != "JITA" || snap.Systems[0].Status != protocol.StatusAlarm {
		t.Errorf("Systems = %+v, want JITA alarm", snap.Systems)
	}
	if snap.DowntimeIn != "01:00:00" {
		t.Errorf("DowntimeIn = %q, want %q", snap.DowntimeIn, "01:00:00")
	}
}

func TestHandlerMessages(t *testing.T) {
	state := &fakeState{}
	for i := 0; i < 5; i++ {
		state.msgs = append(state.msgs, &protocol.Message{User: fmt.Sprintf("u%d", i), Status: protocol.StatusAlarm})
	}
	h := NewHandler(state, nil, nil, "")

	rec := serve(h, "GET", "/messages?limit=2", "", "")
	var msgs []protocol.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(msgs) != 2 || msgs[1].User != "u4" {
		t.Errorf("messages = %+v, want last 2", msgs)
	}

	if rec := serve(h, "GET", "/messages?limit=abc", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: Status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandlerAvatar(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F'}
	h := NewHandler(&fakeState{}, fakeAvatars{"Foo Bar": jpeg}, nil, "")

	rec := serve(h, "GET", "/avatars/Foo%20Bar", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}

	if rec := serve(h, "GET", "/avatars/Nobody", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing avatar: Status = %d, want 404", rec.Code)
	}
}

func TestHandlerKOS(t *testing.T) {
	kos := &fakeKOS{}
	h := NewHandler(&fakeState{}, nil, kos, "")

	rec := serve(h, "POST", "/kos", "", `{"names": ["Foo Bar", " ", "Baz"], "only_kos": true}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if len(kos.names) != 2 || kos.names[1] != "Baz" {
		t.Errorf("names = %v, want [Foo Bar Baz]", kos.names)
	}
	if kos.reqType != "clipboard" || !kos.onlyKOS {
		t.Errorf("request type %q only %v, want clipboard true", kos.reqType, kos.onlyKOS)
	}

	if rec := serve(h, "POST", "/kos", "", `{"names": []}`); rec.Code != http.StatusBadRequest {
		t.Errorf("empty names: Status = %d, want 400", rec.Code)
	}
	if rec := serve(h, "POST", "/kos", "", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: Status = %d, want 400", rec.Code)
	}

	disabled := NewHandler(&fakeState{}, nil, nil, "")
	if rec := serve(disabled, "POST", "/kos", "", `{"names": ["a"]}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled: Status = %d, want 503", rec.Code)
	}
}

func TestServerServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{ListenAddr: ln.Addr().String()}
	s := NewServer(cfg, NewHandler(&fakeState{}, nil, nil, ""))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v, want nil", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
