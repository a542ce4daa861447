package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestProbeCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/mobile/catalog":
			w.Write([]byte("<html>ok</html>"))
		case "/catalog":
			http.Redirect(w, r, "/desktop", http.StatusFound)
		case "/desktop":
			w.Write([]byte("<html>desktop</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	rule := RedirectRule{Host: "127.0.0.1", MobileMarker: "mobile"}
	candidates := []string{
		srv.URL + "/mobile/catalog",
		srv.URL + "/catalog",
		"http://127.0.0.1:1/mobile/unreachable",
	}

	flagged := ProbeCandidates(context.Background(), candidates, rule, "test-agent", 2*time.Second)

	if flagged[candidates[0]] {
		t.Error("mobile candidate should not be flagged")
	}
	if !flagged[candidates[1]] {
		t.Error("candidate redirecting to desktop should be flagged")
	}
	if flagged[candidates[2]] {
		t.Error("probe errors must not flag a candidate")
	}
}

func TestProbeCandidatesHonorsDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	rule := RedirectRule{Host: "127.0.0.1", MobileMarker: "mobile"}
	candidates := []string{srv.URL + "/mobile/a", srv.URL + "/mobile/b"}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	flagged := ProbeCandidates(ctx, candidates, rule, "test-agent", 5*time.Second)

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("probe outlived its deadline: took %v", elapsed)
	}
	if len(flagged) != 0 {
		t.Errorf("timed-out probes must not flag candidates, got %v", flagged)
	}
}

func TestProbeCandidatesSkipsWhenCancelled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	rule := RedirectRule{Host: "127.0.0.1", MobileMarker: "mobile"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	flagged := ProbeCandidates(ctx, []string{srv.URL + "/mobile/catalog"}, rule, "test-agent", time.Second)

	if got := hits.Load(); got != 0 {
		t.Errorf("cancelled probe must not visit candidates, got %d requests", got)
	}
	if len(flagged) != 0 {
		t.Errorf("cancelled probe must not flag candidates, got %v", flagged)
	}
}
