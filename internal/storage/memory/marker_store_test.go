package memory

import (
	"context"
	"testing"

	"github.com/JakeFAU/scrapper/internal/crawler"
)

func TestMarkerStoreUpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewMarkerStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := store.Upsert(ctx, crawler.PageMarker{URI: "http://example.com/"}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one marker, got %d", len(all))
	}
	ok, _ := store.Exists(ctx, "http://example.com/")
	if !ok {
		t.Fatal("expected marker to exist")
	}
}

func TestMarkerStoreSearchAndDelete(t *testing.T) {
	t.Parallel()

	store := NewMarkerStore()
	ctx := context.Background()
	for _, uri := range []string{
		"http://example.com/a",
		"http://example.com/b",
		"http://other.org/a",
	} {
		if err := store.Upsert(ctx, crawler.PageMarker{URI: uri}); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	found, err := store.Search(ctx, "http://example.com/*")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(found) != 2 || found[0].URI != "http://example.com/a" || found[1].URI != "http://example.com/b" {
		t.Fatalf("unexpected search result %v", found)
	}

	removed, err := store.Delete(ctx, "*/a")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	rest, _ := store.List(ctx)
	if len(rest) != 1 || rest[0].URI != "http://example.com/b" {
		t.Fatalf("unexpected remaining markers %v", rest)
	}
}
