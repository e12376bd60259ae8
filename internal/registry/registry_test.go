package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reddot-watch/newsdesk/internal/models"
	"reddot-watch/newsdesk/internal/testsupport"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestReconcileCreatesAndUpdates(t *testing.T) {
	ctx := context.Background()
	store := testsupport.OpenStore(t)
	reg := New(store)

	created, err := reg.Reconcile(ctx, []Declared{
		{Name: "Le Parisien", Type: models.SourceFeed, URL: "https://www.leparisien.fr/sports/football/psg/rss.xml", Language: "fr"},
		{Name: "Club site", Type: models.SourceSinglePage, URL: "https://www.psg.fr/actualites", ReliabilityWeight: floatPtr(0.9)},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created = %v", created)
	}

	sources, err := store.ListSources(ctx, false)
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if sources[0].TrustWeight != models.DefaultTrustWeight || !sources[0].Active {
		t.Fatalf("defaults not applied: %+v", sources[0])
	}
	if sources[1].TrustWeight != 0.9 {
		t.Fatalf("trust weight = %v", sources[1].TrustWeight)
	}
	originalID := sources[0].ID

	created, err = reg.Reconcile(ctx, []Declared{
		{Name: "Le Parisien PSG", Type: models.SourceFeed, URL: "https://www.leparisien.fr/sports/football/psg/rss.xml", IsActive: boolPtr(false)},
	})
	if err != nil {
		t.Fatalf("Reconcile again: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("expected no new sources, got %v", created)
	}

	sources, _ = store.ListSources(ctx, false)
	if len(sources) != 2 {
		t.Fatalf("absent source must be kept, got %d sources", len(sources))
	}
	if sources[0].ID != originalID || sources[0].Name != "Le Parisien PSG" || sources[0].Active {
		t.Fatalf("unexpected updated source: %+v", sources[0])
	}
	if !sources[1].Active {
		t.Fatalf("absent source must not be deactivated")
	}
}

func TestReconcileSkipsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	store := testsupport.OpenStore(t)

	created, err := New(store).Reconcile(ctx, []Declared{
		{Name: "no url"},
		{Name: "bad type", Type: "podcast", URL: "https://example.com/podcast"},
		{Name: "bad weight", URL: "https://example.com/w", ReliabilityWeight: floatPtr(1.5)},
		{Name: "ok", URL: "https://example.com/rss"},
		{Name: "dup", URL: "https://example.com/rss"},
	})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(created) != 1 || created[0] != "https://example.com/rss" {
		t.Fatalf("created = %v", created)
	}
}

func TestParseYAMLForms(t *testing.T) {
	list := []byte(`
- name: RMC Sport
  type: feed
  url: https://rmcsport.bfmtv.com/rss/football/
  language: fr
  reliabilityWeight: 0.8
  isActive: true
`)
	doc := []byte(`
sources:
  - name: Club site
    type: single_page
    url: https://www.psg.fr/actualites
`)

	got, err := ParseYAML(list)
	if err != nil {
		t.Fatalf("ParseYAML list: %v", err)
	}
	if len(got) != 1 || got[0].ReliabilityWeight == nil || *got[0].ReliabilityWeight != 0.8 || got[0].IsActive == nil {
		t.Fatalf("unexpected list entries: %+v", got)
	}

	got, err = ParseYAML(doc)
	if err != nil {
		t.Fatalf("ParseYAML doc: %v", err)
	}
	if len(got) != 1 || got[0].Type != models.SourceSinglePage {
		t.Fatalf("unexpected doc entries: %+v", got)
	}

	if _, err := ParseYAML([]byte("sources: [")); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}

func TestParseCSV(t *testing.T) {
	raw := "name,type,url,language,reliability_weight,is_active\n" +
		"RMC Sport,feed,https://rmcsport.bfmtv.com/rss/football/,fr,0.8,true\n" +
		"\n" +
		"Club site,single_page,https://www.psg.fr/actualites,fr,,false\n"

	got, err := ParseCSV(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].ReliabilityWeight == nil || *got[0].ReliabilityWeight != 0.8 {
		t.Fatalf("weight not parsed: %+v", got[0])
	}
	if got[1].ReliabilityWeight != nil || got[1].IsActive == nil || *got[1].IsActive {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}

	if _, err := ParseCSV(strings.NewReader("name,language\nx,fr\n")); err == nil {
		t.Fatalf("expected error when url column is missing")
	}
}

func TestLoadFromFileAndURL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "sources.csv")
	if err := os.WriteFile(csvPath, []byte("url,name\nhttps://example.com/rss,Example\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	got, err := Load(ctx, csvPath)
	if err != nil || len(got) != 1 || got[0].Name != "Example" {
		t.Fatalf("Load csv = %+v, %v", got, err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("- name: Remote\n  url: https://example.com/remote\n"))
	}))
	defer server.Close()

	got, err = Load(ctx, server.URL+"/sources.yaml")
	if err != nil || len(got) != 1 || got[0].Name != "Remote" {
		t.Fatalf("Load url = %+v, %v", got, err)
	}

	if _, err := Load(ctx, filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
