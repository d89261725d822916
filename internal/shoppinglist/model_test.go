package shoppinglist

import (
	"testing"
	"time"
)

func TestNewShoppingListDefaults(t *testing.T) {
	before := time.Now().Add(-time.Second)
	list := NewShoppingList(CreateShoppingList{Name: "  Groceries "})
	after := time.Now().Add(time.Second)

	if list.Name != "  Groceries " {
		t.Errorf("Name = %q, want it stored as given", list.Name)
	}
	if list.Completed {
		t.Error("Completed should default to false")
	}
	if list.Tasks == nil || len(list.Tasks) != 0 {
		t.Errorf("Tasks = %v, want empty non-nil slice", list.Tasks)
	}
	if list.Date.Before(before) || list.Date.After(after) {
		t.Errorf("Date %v outside [%v, %v]", list.Date, before, after)
	}
	if list.ListID.IsZero() {
		t.Error("expected an assigned id")
	}
	if !list.CreatedAt.Equal(list.UpdatedAt) {
		t.Errorf("CreatedAt %v != UpdatedAt %v", list.CreatedAt, list.UpdatedAt)
	}
}

func TestNewShoppingListExplicitFields(t *testing.T) {
	date := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.FixedZone("X", 3600))
	done := true
	one := 1
	list := NewShoppingList(CreateShoppingList{
		Name:      "Party",
		Date:      &date,
		Completed: &done,
		Tasks:     []NewTask{{ID: &one, Title: " Chips "}},
	})

	if !list.Completed {
		t.Error("Completed should be true")
	}
	if want := date.UTC().Truncate(time.Millisecond); !list.Date.Equal(want) || list.Date.Location() != time.UTC {
		t.Errorf("Date = %v, want %v", list.Date, want)
	}
	if len(list.Tasks) != 1 || list.Tasks[0] != (Task{ID: 1, Title: "Chips"}) {
		t.Errorf("Tasks = %+v", list.Tasks)
	}
}

func TestTaskIndexFirstMatch(t *testing.T) {
	list := &ShoppingList{Tasks: []Task{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}, {ID: 1, Title: "c"}}}

	tests := []struct {
		id   int
		want int
	}{
		{1, 0},
		{2, 1},
		{3, -1},
	}
	for _, tt := range tests {
		if got := list.taskIndex(tt.id); got != tt.want {
			t.Errorf("taskIndex(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	list := &ShoppingList{Name: "a", Tasks: []Task{{ID: 1, Title: "x"}}}
	c := list.clone()
	c.Tasks[0].Title = "changed"
	c.Name = "b"

	if list.Tasks[0].Title != "x" || list.Name != "a" {
		t.Errorf("clone shares state with original: %+v", list)
	}
}

func TestLinkIdentity(t *testing.T) {
	list := NewShoppingList(CreateShoppingList{Name: "a"})
	if list.GetID() != list.ListID.Hex() || list.ResourceType() != "shopping-list" {
		t.Errorf("unexpected identity %q %q", list.GetID(), list.ResourceType())
	}
	task := Task{ID: 42}
	if task.GetID() != "42" || task.ResourceType() != "task" {
		t.Errorf("unexpected task identity %q %q", task.GetID(), task.ResourceType())
	}
}
