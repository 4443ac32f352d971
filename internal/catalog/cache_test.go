package catalog_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwidera/plenum/internal/catalog"
)

func testItems() []catalog.Item {
	return []catalog.Item{
		{
			Identifier:  "67352",
			Title:       "LXVIII Sesja Rady Miasta",
			Publisher:   "Rada Miasta",
			PublishedAt: time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC),
			Views:       152,
			SourceURL:   "https://esesja.tv/transmisja/67352/lxviii-sesja.htm",
		},
		{
			Identifier: "67100",
			Title:      "Komisja Budżetu",
			SourceURL:  "https://esesja.tv/transmisja/67100/komisja-budzetu.htm",
		},
	}
}

func TestCacheReplaceAndAll(t *testing.T) {
	cache, err := catalog.OpenCache(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	ctx := context.Background()
	items := testItems()
	if err := cache.Replace(ctx, items); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, err := cache.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != len(items) {
		t.Fatalf("expected %d items, got %d", len(items), len(got))
	}
	for i := range items {
		if got[i].Identifier != items[i].Identifier {
			t.Fatalf("position %d: expected %q, got %q", i, items[i].Identifier, got[i].Identifier)
		}
	}
	if !got[0].PublishedAt.Equal(items[0].PublishedAt) {
		t.Fatalf("publish date did not round-trip: %v", got[0].PublishedAt)
	}
	if !got[1].PublishedAt.IsZero() {
		t.Fatalf("expected zero publish date, got %v", got[1].PublishedAt)
	}
	if got[0].Views != 152 {
		t.Fatalf("unexpected views: %d", got[0].Views)
	}

	count, err := cache.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count 2, got %d", count)
	}
}

func TestCacheReplaceIsFullRefresh(t *testing.T) {
	cache, err := catalog.OpenCache(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenCache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	ctx := context.Background()
	if err := cache.Replace(ctx, testItems()); err != nil {
		t.Fatalf("first Replace: %v", err)
	}
	replacement := []catalog.Item{{
		Identifier: "99999",
		Title:      "Nowa sesja",
		SourceURL:  "https://esesja.tv/transmisja/99999/nowa.htm",
	}}
	if err := cache.Replace(ctx, replacement); err != nil {
		t.Fatalf("second Replace: %v", err)
	}

	got, err := cache.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 1 || got[0].Identifier != "99999" {
		t.Fatalf("expected snapshot to hold only the replacement, got %+v", got)
	}
}

func TestItemDisplayHelpers(t *testing.T) {
	item := catalog.Item{Title: "Bardzo długi tytuł sesji rady"}
	if got := item.TitleDisplay(10); len([]rune(got)) != 10 {
		t.Fatalf("expected 10 runes, got %q", got)
	}
	if got := item.TitleDisplay(0); got != "Bardzo długi tytuł sesji rady" {
		t.Fatalf("expected untruncated title, got %q", got)
	}
	if got := (catalog.Item{}).PublishedDisplay(); got != "-" {
		t.Fatalf("expected dash for zero date, got %q", got)
	}
}
