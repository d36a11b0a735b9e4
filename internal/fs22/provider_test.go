package fs22

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	logx "fs22bot/pkg/logx"
)

func serverConfigFor(t *testing.T, srv *httptest.Server, id int) ServerConfig {
	t.Helper()
	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	p, _ := strconv.Atoi(port)
	return ServerConfig{ID: id, Host: host, Port: p, APICode: "secret"}
}

func TestHTTPProviderPoll(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed/dedicated-server-stats.xml" || r.URL.Query().Get("code") != "secret" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(onlineFeed))
	}))
	defer srv.Close()

	p := NewHTTPProvider(time.Second, logx.Nop())
	snap := p.Poll(context.Background(), serverConfigFor(t, srv, 1))
	if snap.Status != Online || len(snap.Players) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestHTTPProviderFailuresDegradeToUnknown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTPProvider(time.Second, logx.Nop())
	cfg := serverConfigFor(t, srv, 2)
	for i := 0; i < breakerTrips+2; i++ {
		snap := p.Poll(context.Background(), cfg)
		if snap.Status != Unknown {
			t.Fatalf("poll %d: status=%v", i, snap.Status)
		}
		if snap.Players == nil || len(snap.Players) != 0 {
			t.Fatalf("poll %d: players=%v", i, snap.Players)
		}
	}
}

func TestServerConfigURLs(t *testing.T) {
	t.Parallel()

	cfg := ServerConfig{Host: "10.0.0.5", Port: 8080, APICode: "a b"}
	if got, want := cfg.StatusURL(), "http://10.0.0.5:8080/feed/dedicated-server-stats.xml?code=a+b"; got != want {
		t.Fatalf("StatusURL=%q want %q", got, want)
	}
	if got, want := cfg.ModsURL(), "http://10.0.0.5:8080/mods.html"; got != want {
		t.Fatalf("ModsURL=%q want %q", got, want)
	}
}
