package share

import (
	"encoding/base64"
	"errors"
	"math"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/trailpack/internal/model"
)

func sampleWalk() *model.Walk {
	return &model.Walk{
		ID:          "w1",
		Name:        "Cairngorms, 3 days",
		Description: "Loop via Ben Macdui ✓",
		Date:        "2024-05-01T00:00:00.000Z",
		PhotoRef:    "photo:abc",
		Items: []model.WalkLine{
			{ID: "l1", OriginalID: "2", Name: "Tent", Weight: 1200, Qty: 1, CategoryID: "cat2"},
			{ID: "l2", OriginalID: "5", Name: "Tortillas", Weight: 40.5, Qty: 3, CategoryID: "cat4", IsConsumable: true, Comment: "eat first"},
			{ID: "l3", Name: "Rain jacket", Weight: 310, Qty: 1, CategoryID: "cat3", IsWorn: true, Flag: true, IsAdded: true},
			{ID: "l4", Name: "Mug", Weight: 80, Qty: 2, CategoryID: "cat4", IsRemoved: true},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	w := sampleWalk()
	token, err := Encode(w)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if strings.ContainsAny(token, "+/= ") {
		t.Errorf("token is not URL-safe: %q", token)
	}

	got, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Name != w.Name || got.Description != w.Description {
		t.Errorf("header mismatch: %q/%q", got.Name, got.Description)
	}
	if got.ID == w.ID || got.ID == "" {
		t.Errorf("expected a fresh walk id, got %q", got.ID)
	}
	if got.PhotoRef != "" {
		t.Error("photo reference should not travel")
	}
	if len(got.Items) != len(w.Items) {
		t.Fatalf("expected %d lines, got %d", len(w.Items), len(got.Items))
	}
	for i, want := range w.Items {
		l := got.Items[i]
		if l.ID == want.ID || l.ID == "" {
			t.Errorf("line %d: expected fresh id, got %q", i, l.ID)
		}
		if l.OriginalID != "" {
			t.Errorf("line %d: originalId should be dropped", i)
		}
		l.ID, want.ID, want.OriginalID = "", "", ""
		if l != want {
			t.Errorf("line %d mismatch\n got: %+v\nwant: %+v", i, l, want)
		}
	}
}

func TestDecodeTwiceDiffersOnlyInIDs(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	token, err := Encode(sampleWalk())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	a, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if a.ID == b.ID {
		t.Error("expected distinct walk ids")
	}
	if a.Date != "2024-06-01T12:00:00.000Z" {
		t.Errorf("unexpected date %q", a.Date)
	}
	a.ID, b.ID = "", ""
	for i := range a.Items {
		if a.Items[i].ID == b.Items[i].ID {
			t.Errorf("line %d: expected distinct ids", i)
		}
		a.Items[i].ID, b.Items[i].ID = "", ""
	}
	if a.Name != b.Name || a.Date != b.Date || len(a.Items) != len(b.Items) {
		t.Fatal("decoded walks differ")
	}
	for i := range a.Items {
		if a.Items[i] != b.Items[i] {
			t.Errorf("line %d differs: %+v vs %+v", i, a.Items[i], b.Items[i])
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	tokens := []string{
		"not-a-valid-token",
		"",
		"!!!",
		base64.RawURLEncoding.EncodeToString([]byte("null")),
		base64.RawURLEncoding.EncodeToString([]byte(`["n"]`)),
		base64.RawURLEncoding.EncodeToString([]byte(`{"n":`)),
		base64.RawURLEncoding.EncodeToString([]byte(`{"i":[{"w":"heavy"}]}`)),
		strings.Repeat("A", MaxTokenLength+1),
	}
	for _, tok := range tokens {
		w, err := Decode(tok)
		if !errors.Is(err, ErrMalformedToken) {
			t.Errorf("Decode(%.20q) error = %v, want ErrMalformedToken", tok, err)
		}
		if w != nil {
			t.Errorf("Decode(%.20q) returned a walk", tok)
		}
	}
}

func TestDecodeDefaultsAbsentFields(t *testing.T) {
	token := base64.RawURLEncoding.EncodeToString([]byte(`{"n":"Bare","i":[{"n":"Thing"},{}]}`))
	w, err := Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if w.Description != "" {
		t.Errorf("expected empty description, got %q", w.Description)
	}
	for i, l := range w.Items {
		if l.CategoryID != model.UncategorizedID {
			t.Errorf("line %d: expected uncategorized, got %q", i, l.CategoryID)
		}
		if l.Weight != 0 || l.Qty != 1 {
			t.Errorf("line %d: expected weight 0 qty 1, got %v %d", i, l.Weight, l.Qty)
		}
		if l.IsWorn || l.IsConsumable || l.Flag || l.IsAdded || l.IsRemoved || l.Comment != "" {
			t.Errorf("line %d: expected zero flags, got %+v", i, l)
		}
	}
}

func TestDecodeLegacyToken(t *testing.T) {
	payload := `{"n":"Old trip","d":"a+b","i":[{"n":"Stove","w":"100","q":2,"c":"cat4","o":0,"x":true,"f":1,"m":"","a":0,"r":0}]}`
	legacy := base64.StdEncoding.EncodeToString([]byte(url.PathEscape(payload)))

	for _, tok := range []string{legacy, strings.ReplaceAll(legacy, "+", " ")} {
		w, err := Decode(tok)
		if err != nil {
			t.Fatalf("Decode legacy: %v", err)
		}
		if w.Name != "Old trip" || w.Description != "a+b" {
			t.Errorf("unexpected header %q/%q", w.Name, w.Description)
		}
		l := w.Items[0]
		if l.Weight != 100 || l.Qty != 2 || !l.IsConsumable || !l.Flag {
			t.Errorf("unexpected line %+v", l)
		}
	}
}

func TestEncodeFailure(t *testing.T) {
	if _, err := Encode(nil); !errors.Is(err, ErrEncode) {
		t.Errorf("expected ErrEncode for nil walk, got %v", err)
	}
	w := sampleWalk()
	w.Items[0].Weight = model.Grams(math.NaN())
	tok, err := Encode(w)
	if !errors.Is(err, ErrEncode) || tok != "" {
		t.Errorf("expected ErrEncode for NaN weight, got %q %v", tok, err)
	}
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	tests := []struct {
		name string
		edit func(w *model.Walk)
	}{
		{"walk name", func(w *model.Walk) { w.Name = "Trip\xff" }},
		{"description", func(w *model.Walk) { w.Description = "\xc3(" }},
		{"line name", func(w *model.Walk) { w.Items[0].Name = "Tent\xfe" }},
		{"line comment", func(w *model.Walk) { w.Items[0].Comment = "\xff" }},
		{"line category", func(w *model.Walk) { w.Items[0].CategoryID = "cat\x80" }},
	}
	for _, tt := range tests {
		w := sampleWalk()
		tt.edit(w)
		tok, err := Encode(w)
		if !errors.Is(err, ErrEncode) || tok != "" {
			t.Errorf("%s: expected ErrEncode, got %q %v", tt.name, tok, err)
		}
	}

	w := sampleWalk()
	w.Name = "Triglav čez Kredarico"
	if _, err := Encode(w); err != nil {
		t.Errorf("valid UTF-8 rejected: %v", err)
	}
}

func TestLink(t *testing.T) {
	link, err := Link("https://example.com/app?x=1#top", "abc-_")
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Query().Get(QueryParam) != "abc-_" || u.Query().Get("x") != "1" || u.Fragment != "" {
		t.Errorf("unexpected link %q", link)
	}
}
