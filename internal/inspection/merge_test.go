package inspection

import (
	"testing"

	"github.com/FleetLink/FleetLink/internal/template"
)

func workingSections() []template.WorkingSection {
	return []template.WorkingSection{
		{
			CategoryID: "c1",
			Items: []template.WorkingItem{
				{TemplateID: "t1", Photos: []string{}},
				{TemplateID: "t2", Photos: []string{}},
			},
		},
		{
			CategoryID: "c2",
			Items: []template.WorkingItem{
				{TemplateID: "t3", Photos: []string{}},
			},
		},
	}
}

func TestMergeExistingOverwritesMatched(t *testing.T) {
	sections := workingSections()
	items := []ItemRecord{
		{ID: "r1", TemplateID: "t1", Status: ItemPass, Notes: "ok"},
		{ID: "r3", TemplateID: "t3", Status: ItemFail, Notes: "worn"},
	}
	photos := []PhotoRecord{
		{InspectionItemID: "r3", PhotoURL: "https://cdn.example.com/a.jpg"},
		{InspectionItemID: "r3", PhotoURL: "https://cdn.example.com/b.jpg"},
	}

	MergeExisting(sections, items, photos)

	first := sections[0].Items[0]
	if first.Status == nil || *first.Status != ItemPass || first.Notes != "ok" {
		t.Fatalf("t1 not merged: %+v", first)
	}

	unmatched := sections[0].Items[1]
	if unmatched.Status != nil || unmatched.Notes != "" || len(unmatched.Photos) != 0 {
		t.Fatalf("t2 must keep defaults: %+v", unmatched)
	}

	third := sections[1].Items[0]
	if third.Status == nil || *third.Status != ItemFail {
		t.Fatalf("t3 not merged: %+v", third)
	}
	if len(third.Photos) != 2 || third.Photos[0] != "https://cdn.example.com/a.jpg" {
		t.Fatalf("photos must be verbatim in stored order: %v", third.Photos)
	}
}

func TestMergeExistingEmptyStatusStaysNil(t *testing.T) {
	sections := workingSections()
	MergeExisting(sections, []ItemRecord{{ID: "r1", TemplateID: "t1", Status: "", Notes: "note only"}}, nil)

	item := sections[0].Items[0]
	if item.Status != nil {
		t.Fatalf("empty stored status must merge as undetermined, got %v", *item.Status)
	}
	if item.Notes != "note only" {
		t.Fatalf("notes not merged: %q", item.Notes)
	}
}

func TestMergeExistingNoRecords(t *testing.T) {
	sections := workingSections()
	MergeExisting(sections, nil, nil)
	if sections[0].Items[0].Status != nil {
		t.Fatalf("no-op merge must not touch sections")
	}
}

func TestMergeExistingPreservesTemplateOrder(t *testing.T) {
	sections := workingSections()
	MergeExisting(sections, []ItemRecord{{ID: "r3", TemplateID: "t3", Status: ItemPass}}, nil)
	if sections[0].CategoryID != "c1" || sections[1].CategoryID != "c2" {
		t.Fatalf("section order changed")
	}
	if sections[0].Items[0].TemplateID != "t1" || sections[0].Items[1].TemplateID != "t2" {
		t.Fatalf("item order changed")
	}
}
