package shoppinglist

import (
	"context"
	"errors"
	"testing"
)

var _ Store = (*MemoryStore)(nil)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a, _ := store.Create(ctx, CreateShoppingList{Name: "a"})
	b, _ := store.Create(ctx, CreateShoppingList{Name: "b"})

	all, err := store.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll error: %v", err)
	}
	if len(all) != 2 || all[0].ListID != a.ListID || all[1].ListID != b.ListID {
		t.Fatalf("FindAll order = %v", all)
	}

	if n, _ := store.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	if err := store.DeleteByID(ctx, a.GetID()); err != nil {
		t.Fatalf("DeleteByID error: %v", err)
	}
	if _, err := store.FindByID(ctx, a.GetID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByID after delete = %v, want ErrNotFound", err)
	}
	if err := store.DeleteByID(ctx, a.GetID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestMemoryStoreMalformedID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, id := range []string{"", "nope", "123", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		if _, err := store.FindByID(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByID(%q) = %v, want ErrNotFound", id, err)
		}
		if err := store.DeleteByID(ctx, id); !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteByID(%q) = %v, want ErrNotFound", id, err)
		}
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	one := 1
	created, _ := store.Create(ctx, CreateShoppingList{Name: "a", Tasks: []NewTask{{ID: &one, Title: "x"}}})

	created.Name = "mutated"
	created.Tasks[0].Title = "mutated"

	got, _ := store.FindByID(ctx, created.GetID())
	if got.Name != "a" || got.Tasks[0].Title != "x" {
		t.Fatalf("stored list changed without Save: %+v", got)
	}

	got.Name = "saved"
	if err := store.Save(ctx, got); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	again, _ := store.FindByID(ctx, created.GetID())
	if again.Name != "saved" {
		t.Errorf("Name = %q, want saved", again.Name)
	}
}

func TestMemoryStoreSaveDeleted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	list, _ := store.Create(ctx, CreateShoppingList{Name: "a"})
	_ = store.DeleteByID(ctx, list.GetID())

	if err := store.Save(ctx, list); !errors.Is(err, ErrNotFound) {
		t.Errorf("Save after delete = %v, want ErrNotFound", err)
	}
	if n, _ := store.Count(ctx); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}
