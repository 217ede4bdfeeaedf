package csvexport

import (
	"strings"
	"testing"

	"github.com/erazemk/trailpack/internal/model"
)

func TestFormatEscaping(t *testing.T) {
	got, err := Format([][]string{
		{"plain", "with,comma", `with "quote"`, "multi\nline"},
		{},
		{"a", "b"},
	})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	want := "plain,\"with,comma\",\"with \"\"quote\"\"\",\"multi\nline\"\n\na,b\n"
	if got != want {
		t.Errorf("unexpected csv\n got: %q\nwant: %q", got, want)
	}
}

func testWalk() (model.Document, model.Walk) {
	doc := model.DefaultDocument()
	w := model.Walk{
		ID:   "w1",
		Name: "Trip",
		Items: []model.WalkLine{
			{ID: "a", Name: "Stove", Weight: 100, Qty: 1, CategoryID: "cat4", IsConsumable: false},
			{ID: "b", Name: "Tent", Weight: 1200, Qty: 1, CategoryID: "cat2"},
			{ID: "c", Name: "Jacket", Weight: 300, Qty: 1, CategoryID: "gone", IsWorn: true},
			{ID: "d", Name: "Snacks", Weight: 250, Qty: 2, CategoryID: "cat4", IsConsumable: true},
			{ID: "e", Name: "Dropped", Weight: 999, Qty: 1, CategoryID: "cat2", IsRemoved: true},
		},
	}
	return doc, w
}

func TestWalkRows(t *testing.T) {
	doc, w := testWalk()
	rows := WalkRows(doc, w, model.UnitGram)

	if got := strings.Join(rows[0], "|"); got != "Category|Item Name|Qty|Weight (g)|Worn|Consumable" {
		t.Errorf("unexpected header %q", got)
	}
	var names []string
	for _, r := range rows[1 : len(rows)-3] {
		names = append(names, r[0]+":"+r[1])
	}
	want := "Shelter:Tent,Cooking:Stove,Cooking:Snacks,Uncategorized:Jacket"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("unexpected grouping %q", got)
	}

	n := len(rows)
	if len(rows[n-3]) != 0 {
		t.Error("expected blank separator row")
	}
	if rows[n-2][1] != "2100 g" {
		t.Errorf("unexpected total %q", rows[n-2][1])
	}
	if rows[n-1][1] != "1300 g" {
		t.Errorf("unexpected base %q", rows[n-1][1])
	}
}

func TestWalkRowsConvertsUnit(t *testing.T) {
	doc, w := testWalk()
	rows := WalkRows(doc, w, model.UnitKilogram)
	if rows[0][3] != "Weight (kg)" || rows[1][3] != "1.2" {
		t.Errorf("unexpected kg row %v / %v", rows[0], rows[1])
	}
	if rows[len(rows)-2][1] != "2.10 kg" {
		t.Errorf("unexpected total %q", rows[len(rows)-2][1])
	}
}

func TestInventoryRows(t *testing.T) {
	doc := model.DefaultDocument()
	rows := InventoryRows(doc, model.UnitGram)
	if len(rows) != 1+len(doc.Inventory)+2 {
		t.Fatalf("unexpected row count %d", len(rows))
	}
	if rows[1][0] != "Packs" || rows[1][1] != "Backpack" {
		t.Errorf("unexpected first row %v", rows[1])
	}
	if got := rows[len(rows)-1][1]; got != "3070 g" {
		t.Errorf("unexpected total %q", got)
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(`Big/Trip: "2024"`); got != "Big_Trip_ _2024_.csv" {
		t.Errorf("unexpected filename %q", got)
	}
	if got := Filename("  "); got != "walk.csv" {
		t.Errorf("unexpected filename %q", got)
	}
}
