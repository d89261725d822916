package shoppinglist

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("shoppinglist: not found")
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)
	ErrValidation   = errors.New("shoppinglist: validation failed")
)

// Store persists ShoppingList aggregates. Ids are the hex form of the list's
// ObjectID; malformed ids behave as absent ones.
type Store interface {
	FindAll(ctx context.Context) ([]*ShoppingList, error)
	FindByID(ctx context.Context, id string) (*ShoppingList, error)
	Create(ctx context.Context, in CreateShoppingList) (*ShoppingList, error)
	// Save overwrites the stored aggregate with no version check.
	Save(ctx context.Context, list *ShoppingList) error
	DeleteByID(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
