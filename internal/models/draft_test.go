package models

import "testing"

func TestSourceRefsValueAndScan(t *testing.T) {
	refs := SourceRefs{{Name: "L'Équipe", URL: "https://www.lequipe.fr/a", Date: "2024-05-01"}}
	value, err := refs.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var scanned SourceRefs
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(scanned) != 1 || scanned[0] != refs[0] {
		t.Fatalf("unexpected scanned refs: %+v", scanned)
	}
}

func TestSourceRefsNilAndEmpty(t *testing.T) {
	var nilRefs SourceRefs
	value, err := nilRefs.Value()
	if err != nil || value != "[]" {
		t.Fatalf("nil Value() = %v, %v", value, err)
	}

	var scanned SourceRefs
	for _, src := range []any{nil, "", []byte("[]")} {
		if err := scanned.Scan(src); err != nil {
			t.Fatalf("Scan(%v): %v", src, err)
		}
		if len(scanned) != 0 {
			t.Fatalf("expected empty refs for %v", src)
		}
	}
	if err := scanned.Scan(42); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if err := scanned.Scan("{not json"); err == nil {
		t.Fatalf("expected error for malformed json")
	}
}

func TestStatusValidity(t *testing.T) {
	if !ClusterDraft.Valid() || ClusterStatus("archived").Valid() {
		t.Fatalf("unexpected cluster status validity")
	}
	if !SourceSinglePage.Valid() || SourceType("podcast").Valid() {
		t.Fatalf("unexpected source type validity")
	}
	if !(DraftPatch{}).Empty() {
		t.Fatalf("expected empty patch")
	}
}
