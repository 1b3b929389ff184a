package devtools

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/reactor/pkg/reactive"
)

func newUniverse(opts ...reactive.UniverseOption) *reactive.Universe {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return reactive.New(append([]reactive.UniverseOption{reactive.WithLogger(logger)}, opts...)...)
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func TestListOnlyDevtoolsAtoms(t *testing.T) {
	u := newUniverse()
	seen := u.CreateAtom(1, reactive.Name("before"), reactive.Devtools())
	_ = u.CreateAtom(2, reactive.Name("hidden"))

	s := NewServer(u)
	defer s.Close()
	later := u.CreateAtom(map[string]any{"x": 1}, reactive.Name("after"), reactive.Devtools())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	var atoms []AtomInfo
	if code := getJSON(t, srv.URL+"/atoms", &atoms); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(atoms) != 2 || atoms[0].ID != seen.ID() || atoms[1].ID != later.ID() {
		t.Fatalf("atoms = %+v", atoms)
	}

	_ = later.At("x").Set(5)
	var info struct {
		Name  string         `json:"name"`
		Hash  string         `json:"hash"`
		Value map[string]any `json:"value"`
	}
	if code := getJSON(t, srv.URL+"/atoms/"+strconv.FormatUint(later.ID(), 10), &info); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if info.Name != "after" || info.Value["x"] != float64(5) || info.Hash != later.Hash() {
		t.Errorf("atom = %+v", info)
	}

	later.Dispose()
	if code := getJSON(t, srv.URL+"/atoms/"+strconv.FormatUint(later.ID(), 10), nil); code != http.StatusNotFound {
		t.Errorf("disposed atom status = %d, want 404", code)
	}
	if code := getJSON(t, srv.URL+"/atoms/abc", nil); code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", code)
	}
}

func TestAllAtoms(t *testing.T) {
	u := newUniverse()
	_ = u.CreateAtom(1)
	s := NewServer(u, WithAllAtoms())
	defer s.Close()
	_ = u.CreateAtom(2)
	if got := len(s.Atoms()); got != 2 {
		t.Errorf("Atoms() = %d, want 2", got)
	}
}

func TestWebSocketStream(t *testing.T) {
	u := newUniverse()
	a := u.CreateAtom(map[string]any{"n": 0}, reactive.Name("counter"), reactive.Devtools())
	s := NewServer(u)
	defer s.Close()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var greeting Message
	if err := conn.ReadJSON(&greeting); err != nil {
		t.Fatal(err)
	}
	if greeting.Type != reactive.EventCreated || greeting.Name != "counter" {
		t.Errorf("greeting = %+v", greeting)
	}

	// registered before the greeting is written, so nothing falls in between
	if got := s.Clients(); got != 1 {
		t.Fatalf("Clients() = %d after greeting, want 1", got)
	}

	_ = a.At("n").Set(1)
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != reactive.EventChanged || msg.ID != a.ID() {
		t.Errorf("message = %+v", msg)
	}
	if len(msg.Paths) != 1 || msg.Paths[0] != "n" {
		t.Errorf("paths = %v, want [n]", msg.Paths)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func waitClients(t *testing.T, s *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", s.Clients(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStalledClientDoesNotBlockWrites(t *testing.T) {
	u := newUniverse()
	a := u.CreateAtom("", reactive.Name("blob"), reactive.Devtools())
	s := NewServer(u, WithSendBuffer(4), WithWriteTimeout(200*time.Millisecond))
	defer s.Close()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	waitClients(t, s, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		blob := strings.Repeat("x", 1<<20)
		for i := 0; i < 64; i++ {
			_ = a.Set(strconv.Itoa(i) + blob)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Set blocked on a client that stopped reading")
	}
	waitClients(t, s, 0)
}

func TestCloseDisconnectsClients(t *testing.T) {
	u := newUniverse()
	s := NewServer(u)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	waitClients(t, s, 1)

	s.Close()
	if got := s.Clients(); got != 0 {
		t.Errorf("Clients() = %d after Close", got)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("connection should be closed")
	}
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	u := newUniverse(reactive.WithPrometheus(reg))
	a := u.CreateAtom(0)
	_ = a.Set(1)

	s := NewServer(u, WithGatherer(reg))
	defer s.Close()
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "reactor_writes_total") {
		t.Error("metrics output should include reactor_writes_total")
	}
}
