package process

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/fetch"
	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/registry"
	"reddot-watch/newsdesk/internal/testsupport"
)

type stubFetcher struct {
	entries map[string][]fetch.Entry
	failing map[string]error
	calls   atomic.Int32
}

func (s *stubFetcher) Fetch(_ context.Context, src models.Source) ([]fetch.Entry, error) {
	s.calls.Add(1)
	if err := s.failing[src.URL]; err != nil {
		return nil, err
	}
	return s.entries[src.URL], nil
}

func TestIngesterRun(t *testing.T) {
	store := testsupport.OpenStore(t)
	ctx := context.Background()

	stub := &stubFetcher{
		entries: map[string][]fetch.Entry{
			"https://a.example/rss": {
				{URL: "https://a.example/psg-lille", Title: "PSG bat Lille 3-0", Excerpt: "Large victoire"},
				{URL: "https://a.example/om", Title: "L'OM s'incline à Lens"},
				{URL: "https://a.example/mercato", Title: "Mercato : le Paris Saint-Germain vise un latéral"},
			},
		},
		failing: map[string]error{
			"https://b.example/rss": errs.Wrap(errs.ErrFetch, "fetch", "status 503", nil),
		},
	}
	in, err := NewIngester(store, Options{
		Workers:  2,
		Fetchers: map[models.SourceType]fetch.SourceFetcher{models.SourceFeed: stub},
	})
	if err != nil {
		t.Fatalf("NewIngester: %v", err)
	}

	declared := []registry.Declared{
		{Name: "A", Type: models.SourceFeed, URL: "https://a.example/rss"},
		{Name: "B", Type: models.SourceFeed, URL: "https://b.example/rss"},
	}
	report, err := in.Run(ctx, declared)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.SourcesCreated) != 2 || len(report.Sources) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Created != 2 || report.Filtered != 1 || report.Failed != 1 {
		t.Fatalf("unexpected totals: %+v", report)
	}

	var failed SourceOutcome
	for _, o := range report.Sources {
		if o.URL == "https://b.example/rss" {
			failed = o
		}
	}
	if failed.ErrorClass != "fetch" || failed.Created != 0 {
		t.Fatalf("unexpected failed outcome: %+v", failed)
	}
	src, _ := store.FindSourceByURL(ctx, "https://b.example/rss")
	if src.FailuresCount != 1 || !src.LastError.Valid {
		t.Fatalf("fetch failure not recorded: %+v", src)
	}

	// A second run inserts nothing new.
	again, err := in.Run(ctx, nil)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if again.Created != 0 || again.Duplicates != 2 || len(again.SourcesCreated) != 0 {
		t.Fatalf("unexpected second report: %+v", again)
	}
	if n, _ := store.CountItems(ctx); n != 2 {
		t.Fatalf("expected 2 items, got %d", n)
	}
	perSource := 0
	for _, o := range again.Sources {
		perSource += o.Duplicates
	}
	if perSource != again.Duplicates {
		t.Fatalf("report total %d does not match per-source duplicates %d", again.Duplicates, perSource)
	}
}

func TestIngesterSkipsInactiveAndManualSources(t *testing.T) {
	store := testsupport.OpenStore(t)
	ctx := context.Background()
	if _, err := store.EnsureManualSource(ctx); err != nil {
		t.Fatalf("EnsureManualSource: %v", err)
	}

	inactive := false
	stub := &stubFetcher{}
	in, _ := NewIngester(store, Options{
		Fetchers: map[models.SourceType]fetch.SourceFetcher{models.SourceFeed: stub},
	})
	report, err := in.Run(ctx, []registry.Declared{
		{Name: "Off", Type: models.SourceFeed, URL: "https://off.example/rss", IsActive: &inactive},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Sources) != 0 || stub.calls.Load() != 0 {
		t.Fatalf("no source should be fetched: %+v", report)
	}
}

func TestIngesterWithPageFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Le PSG officialise sa tournée"></head></html>`)
	}))
	defer server.Close()

	store := testsupport.OpenStore(t)
	fixed := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	in, _ := NewIngester(store, Options{Now: func() time.Time { return fixed }})

	report, err := in.Run(context.Background(), []registry.Declared{
		{Name: "Club", Type: models.SourceSinglePage, URL: server.URL + "/news"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Created != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	items, _ := store.UnclusteredItemsSince(context.Background(), fixed.Add(-time.Hour))
	if len(items) != 1 || items[0].Title != "Le PSG officialise sa tournée" || items[0].URL != server.URL+"/news" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestIngesterCancelled(t *testing.T) {
	store := testsupport.OpenStore(t)
	testsupport.AddSource(t, store, "A", "https://a.example/rss")
	in, _ := NewIngester(store, Options{
		Fetchers: map[models.SourceType]fetch.SourceFetcher{models.SourceFeed: &stubFetcher{}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := in.Run(ctx, nil); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
