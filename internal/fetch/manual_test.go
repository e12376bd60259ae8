package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/testsupport"
)

func TestManualFetcherSubmit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/psg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Hakimi prolonge</title><meta name="description" content="Jusqu'en 2029"></head></html>`))
	})
	mux.HandleFunc("/untitled", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>rien</body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := testsupport.OpenStore(t)
	m := NewManualFetcher(store, NewPageFetcher(Options{}))

	outcomes, err := m.Submit(context.Background(), []string{
		server.URL + "/psg",
		server.URL + "/psg#comments",
		server.URL + "/untitled",
		server.URL + "/missing",
		"ftp://example.com/file",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	want := []string{OutcomeCreated, OutcomeAlreadyPresent, OutcomeError, OutcomeError, OutcomeError}
	if len(outcomes) != len(want) {
		t.Fatalf("expected %d outcomes, got %+v", len(want), outcomes)
	}
	for i, status := range want {
		if outcomes[i].Status != status {
			t.Fatalf("outcome %d = %+v, want status %s", i, outcomes[i], status)
		}
	}
	if outcomes[0].ItemID == 0 {
		t.Fatalf("expected created item id")
	}
	if outcomes[2].Reason != "no title found" || outcomes[3].Reason == "" {
		t.Fatalf("expected reasons, got %+v", outcomes)
	}

	// Manual items bypass the topic filter: "Hakimi prolonge" has no keyword.
	count, _ := store.CountItems(context.Background())
	if count != 1 {
		t.Fatalf("expected 1 stored item, got %d", count)
	}
}

func TestManualFetcherRejectsEmptyBatch(t *testing.T) {
	store := testsupport.OpenStore(t)
	m := NewManualFetcher(store, NewPageFetcher(Options{}))
	if _, err := m.Submit(context.Background(), nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
