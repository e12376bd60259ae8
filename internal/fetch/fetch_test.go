package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reddot-watch/newsdesk/internal/errs"
	"reddot-watch/newsdesk/internal/models"
)

func serve(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "newsdesk/") {
			t.Errorf("unexpected User-Agent %q", ua)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		raw, base, want string
		wantErr         bool
	}{
		{raw: "HTTPS://Example.COM/Path?b=2&utm_source=rss&a=1#top", want: "https://example.com/Path?a=1&b=2"},
		{raw: "/article/42?fbclid=abc", base: "https://www.lequipe.fr/rss.xml", want: "https://www.lequipe.fr/article/42"},
		{raw: "https://example.com", want: "https://example.com/"},
		{raw: "", wantErr: true},
		{raw: "ftp://example.com/file", wantErr: true},
		{raw: "relative/only", wantErr: true},
	}
	for _, tt := range tests {
		got, err := CanonicalURL(tt.raw, tt.base)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("CanonicalURL(%q) expected error, got %q", tt.raw, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("CanonicalURL(%q, %q) = %q, %v; want %q", tt.raw, tt.base, got, err, tt.want)
		}
	}
}

func TestEscapeStrayMarkup(t *testing.T) {
	in := `<title>PSG & Lille <3 &amp; &#233; &eacute;</title><![CDATA[a & b < c]]>`
	want := `<title>PSG &amp; Lille &lt;3 &amp; &#233; &eacute;</title><![CDATA[a & b < c]]>`
	if got := escapeStrayMarkup(in); got != want {
		t.Fatalf("escapeStrayMarkup =\n%s\nwant\n%s", got, want)
	}
}

func TestExtractEntries(t *testing.T) {
	raw := `garbage <entry><title type="html"><![CDATA[PSG &amp; Lille]]></title>
		<link rel="alternate" href="https://example.com/a"/>
		<updated>2024-05-01T10:00:00Z</updated>
		<summary>Un <b>résumé</b></summary></entry>
		<item><title>Sans lien</title></item>
		<ITEM><title>Mbappé buteur</title><link>https://example.com/b</link><pubDate>Wed, 01 May 2024 10:00:00 +0200</pubDate></ITEM>`

	entries := extractEntries(raw)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Title != "PSG & Lille" || entries[0].URL != "https://example.com/a" {
		t.Fatalf("unexpected atom entry: %+v", entries[0])
	}
	if entries[0].PublishedAt == nil || !entries[0].PublishedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published date: %v", entries[0].PublishedAt)
	}
	if entries[1].PublishedAt == nil || entries[1].PublishedAt.Hour() != 8 {
		t.Fatalf("expected UTC conversion, got %v", entries[1].PublishedAt)
	}
}

func TestFeedFetcherStrictStage(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Flux PSG</title>
<item><title><![CDATA[PSG bat <b>Lille</b>]]></title><link>/psg-lille?utm_campaign=x</link>
<description><![CDATA[<p>Corps</p>]]></description></item>
<item><title>PSG : le mercato</title><link>https://example.com/mercato</link>
<pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate></item>
<item><title>PSG : la conf de presse</title><link>https://example.com/conf</link>
<pubDate>la semaine dernière</pubDate></item>
<item><title>   </title><link>https://example.com/no-title</link></item>
<item><title>Bad link</title><link>mailto:someone</link></item>
</channel></rss>`
	server := serve(t, body, http.StatusOK)

	f := NewFeedFetcher(Options{})
	entries, err := f.Fetch(context.Background(), models.Source{ID: 1, URL: server.URL + "/rss"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %+v", entries)
	}

	undated := entries[0]
	if undated.URL != server.URL+"/psg-lille" || undated.Title != "PSG bat Lille" || undated.Excerpt != "Corps" {
		t.Fatalf("unexpected entry: %+v", undated)
	}
	if undated.PublishedAt != nil {
		t.Fatalf("undated entry should keep a nil date, got %v", undated.PublishedAt)
	}

	old := entries[1]
	if old.URL != "https://example.com/mercato" || old.PublishedAt == nil {
		t.Fatalf("old entry should be kept with its date: %+v", old)
	}
	if want := time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC); !old.PublishedAt.Equal(want) {
		t.Fatalf("old entry date = %v, want %v", old.PublishedAt, want)
	}

	garbled := entries[2]
	if garbled.URL != "https://example.com/conf" || garbled.PublishedAt != nil {
		t.Fatalf("entry with an unreadable date should be kept undated: %+v", garbled)
	}
}

func TestFeedFetcherAtom(t *testing.T) {
	body := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>Flux</title>
<entry><title>Luis Enrique prolonge</title><link rel="alternate" href="https://example.com/le"/>
<updated>2024-05-01T10:00:00Z</updated><summary>Jusqu'en 2027</summary></entry>
<entry><title>Marquinhos blessé</title><link href="https://example.com/marqui"/>
<content type="html">&lt;p&gt;Forfait&lt;/p&gt;</content></entry>
</feed>`
	server := serve(t, body, http.StatusOK)

	entries, err := NewFeedFetcher(Options{}).Fetch(context.Background(), models.Source{ID: 2, URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].PublishedAt == nil || !entries[0].PublishedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("updated date should be used when published is absent, got %v", entries[0].PublishedAt)
	}
	if entries[0].Excerpt != "Jusqu'en 2027" {
		t.Fatalf("unexpected excerpt %q", entries[0].Excerpt)
	}
	if entries[1].PublishedAt != nil || entries[1].Excerpt != "Forfait" {
		t.Fatalf("unexpected undated entry: %+v", entries[1])
	}
}

func TestFeedFetcherLenientStage(t *testing.T) {
	body := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Flux</title>
<item><title>PSG & Lille</title><link>https://example.com/a?utm_source=x&id=1</link>
<pubDate>Mon, 02 Jan 2006 15:04:05 -0700</pubDate><description>Score 3 < 4</description></item>
</channel></rss>`
	server := serve(t, body, http.StatusOK)

	f := NewFeedFetcher(Options{})
	entries, err := f.Fetch(context.Background(), models.Source{ID: 1, URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %+v", entries)
	}
	if entries[0].Title != "PSG & Lille" || entries[0].URL != "https://example.com/a?id=1" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	if entries[0].PublishedAt == nil {
		t.Fatalf("expected publish date")
	}
}

func TestFeedFetcherRegexStage(t *testing.T) {
	body := `<html><body>broken
<item><title>PSG gagne</title><link>https://example.com/r1</link></item>
<item><title>PSG recrute</title><link>https://example.com/r2</link>`
	server := serve(t, body+`</item>`, http.StatusOK)

	f := NewFeedFetcher(Options{})
	entries, err := f.Fetch(context.Background(), models.Source{ID: 1, URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 2 || entries[1].Title != "PSG recrute" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestFeedFetcherFailures(t *testing.T) {
	f := NewFeedFetcher(Options{})

	down := serve(t, "oops", http.StatusInternalServerError)
	if _, err := f.Fetch(context.Background(), models.Source{URL: down.URL}); !errors.Is(err, errs.ErrFetch) {
		t.Fatalf("expected fetch failure, got %v", err)
	}

	junk := serve(t, "<html><body>nothing here</body></html>", http.StatusOK)
	if _, err := f.Fetch(context.Background(), models.Source{URL: junk.URL}); !errors.Is(err, errs.ErrParse) {
		t.Fatalf("expected parse failure, got %v", err)
	}
}

func TestFeedFetcherTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	f := NewFeedFetcher(Options{Timeout: 50 * time.Millisecond})
	if _, err := f.Fetch(context.Background(), models.Source{URL: server.URL}); !errors.Is(err, errs.ErrFetch) {
		t.Fatalf("expected fetch failure on timeout, got %v", err)
	}
}

func TestPageFetcherMetadata(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		title     string
		desc      string
		canonical string
	}{
		{
			name: "open graph and canonical",
			html: `<html><head><title>Site | PSG</title>
				<meta property="og:title" content="PSG : le onze probable">
				<meta property="og:description" content="Luis Enrique aligne">
				<meta name="description" content="generic">
				<link rel="canonical" href="/articles/1?utm_medium=social"></head></html>`,
			title: "PSG : le onze probable", desc: "Luis Enrique aligne", canonical: "/articles/1",
		},
		{
			name:  "fallback tags",
			html:  `<html><head><title> PSG   en finale </title><meta name="description" content="Résumé"></head></html>`,
			title: "PSG en finale", desc: "Résumé", canonical: "/page",
		},
		{
			name: "no title",
			html: `<html><body><p>texte</p></body></html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serve(t, tt.html, http.StatusOK)
			p := NewPageFetcher(Options{})
			meta, err := p.Extract(context.Background(), server.URL+"/page")
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if meta.Title != tt.title || meta.Description != tt.desc {
				t.Fatalf("unexpected metadata: %+v", meta)
			}
			if tt.canonical != "" && meta.Canonical != server.URL+tt.canonical {
				t.Fatalf("canonical = %q", meta.Canonical)
			}

			entries, err := p.Fetch(context.Background(), models.Source{URL: server.URL + "/page"})
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if (tt.title == "") != (len(entries) == 0) {
				t.Fatalf("unexpected entries: %+v", entries)
			}
		})
	}
}

func TestExcerptTruncates(t *testing.T) {
	long := strings.Repeat("mot ", 200)
	got := excerpt("<p>" + long + "</p>")
	if !strings.HasSuffix(got, "…") || len([]rune(got)) > maxExcerptLength+1 {
		t.Fatalf("unexpected excerpt length %d", len([]rune(got)))
	}
	if excerpt("<b>court</b>") != "court" {
		t.Fatalf("short text should be returned stripped")
	}
}
