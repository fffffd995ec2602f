package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func sampleRegion() Region {
	return Region{Region: "IL", Sites: []Site{
		{Number: 3, Websites: []string{"a"}},
		{Number: 7},
		{Number: 2},
	}}
}

func TestRegionNumbers(t *testing.T) {
	r := sampleRegion()
	if got := r.NextNumber(); got != 8 {
		t.Fatalf("expected next number 8, got %d", got)
	}
	if got := (Region{}).NextNumber(); got != 1 {
		t.Fatalf("expected 1 for empty region, got %d", got)
	}
	if got := (Region{Sites: []Site{{Number: -4}}}).NextNumber(); got != 1 {
		t.Fatalf("negative numbers must not lower the floor, got %d", got)
	}
	if idx := r.FindSite(7); idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	if idx := r.FindSite(99); idx != -1 {
		t.Fatalf("expected -1, got %d", idx)
	}
}

func TestCloneIsDeep(t *testing.T) {
	d := Dataset{Regions: []Region{sampleRegion()}}
	cp := d.Clone()
	cp.Regions[0].Sites[0].Websites[0] = "changed"
	cp.Regions[0].Sites[1].Name = "changed"
	if d.Regions[0].Sites[0].Websites[0] != "a" || d.Regions[0].Sites[1].Name != "" {
		t.Fatalf("clone shares memory with original")
	}
}

func TestFindRegionFirstMatchWins(t *testing.T) {
	d := Dataset{Regions: []Region{{Region: "IL"}, {Region: "WI"}, {Region: "IL", Sites: []Site{{Number: 1}}}}}
	if idx := d.FindRegion("IL"); idx != 0 {
		t.Fatalf("expected first IL, got %d", idx)
	}
	if idx := d.FindRegion("il"); idx != -1 {
		t.Fatalf("lookup must be exact, got %d", idx)
	}
	names := d.RegionNames()
	if strings.Join(names, ",") != "IL,WI,IL" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestErrorMessages(t *testing.T) {
	inner := errors.New("boom")
	load := &LoadError{Source: "embedded:", Err: inner}
	if !errors.Is(load, inner) || !strings.Contains(load.Error(), "embedded:") {
		t.Fatalf("load error: %v", load)
	}
	parse := &ParseError{Err: inner}
	if !errors.Is(parse, inner) {
		t.Fatalf("parse error should unwrap")
	}
	if msg := (&DuplicateNumberError{Region: "IL", Number: 4}).Error(); !strings.Contains(msg, "4") {
		t.Fatalf("duplicate message %q", msg)
	}
	if msg := (&SiteNotFoundError{Region: "IL", Number: 9}).Error(); !strings.Contains(msg, "number=9") {
		t.Fatalf("site message %q", msg)
	}
	if msg := (&RegionNotFoundError{Region: "Nowhere"}).Error(); !strings.Contains(msg, "Nowhere") {
		t.Fatalf("region message %q", msg)
	}
	if msg := (&ValidationError{Field: "number", Reason: "must be a non-zero integer"}).Error(); msg != "number must be a non-zero integer" {
		t.Fatalf("validation message %q", msg)
	}
}

func TestDatasetSchema(t *testing.T) {
	out, err := DatasetSchemaJSON()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if doc["$id"] != SchemaID {
		t.Fatalf("unexpected $id %v", doc["$id"])
	}
	for _, field := range []string{`"regions"`, `"websites"`, `"number"`} {
		if !strings.Contains(string(out), field) {
			t.Fatalf("schema missing %s", field)
		}
	}
}
