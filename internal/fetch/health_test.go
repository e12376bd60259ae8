package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"reddot-watch/newsdesk/internal/models"
)

func TestFeedCheckerCountsRecentEntries(t *testing.T) {
	recent := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)
	body := fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Flux</title>
<item><title>PSG bat Lille</title><link>https://example.com/a</link><pubDate>%s</pubDate></item>
<item><title>Sans date</title><link>https://example.com/b</link></item>
<item><title>Archive</title><link>https://example.com/c</link><pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate></item>
</channel></rss>`, recent.Format(time.RFC1123Z))
	server := serve(t, body, http.StatusOK)

	checker := NewFeedChecker(Options{})
	health := checker.CheckAll(context.Background(), []models.Source{
		{ID: 1, Name: "Flux", Type: models.SourceFeed, URL: server.URL},
		{ID: 2, Name: "Page", Type: models.SourceSinglePage, URL: server.URL + "/page"},
	})
	if len(health) != 1 {
		t.Fatalf("only feed sources should be checked, got %+v", health)
	}
	h := health[0]
	if h.Error != "" || h.Recent != 1 || h.Stale() {
		t.Fatalf("unexpected health: %+v", h)
	}
	if h.Newest == nil || !h.Newest.Equal(recent) {
		t.Fatalf("Newest = %v, want %v", h.Newest, recent)
	}
}

func TestFeedCheckerReportsFailures(t *testing.T) {
	down := serve(t, "oops", http.StatusInternalServerError)
	h := NewFeedChecker(Options{}).Check(context.Background(), models.Source{ID: 3, Type: models.SourceFeed, URL: down.URL})
	if h.Error == "" || h.ErrorClass != "fetch" || h.Stale() {
		t.Fatalf("expected a fetch failure, got %+v", h)
	}

	stale := serve(t, `<rss version="2.0"><channel><title>Vieux</title>
<item><title>Archive</title><link>https://example.com/c</link><pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate></item>
</channel></rss>`, http.StatusOK)
	h = NewFeedChecker(Options{}).Check(context.Background(), models.Source{ID: 4, Type: models.SourceFeed, URL: stale.URL})
	if !h.Stale() || h.Newest != nil {
		t.Fatalf("expected a stale feed, got %+v", h)
	}
	if !strings.HasPrefix(h.URL, "http://") {
		t.Fatalf("unexpected URL %q", h.URL)
	}
}
