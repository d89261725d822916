package shoppinglist

import (
	"context"
	"errors"

	"github.com/danielnirn/shopping-api/internal/micro"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStore keeps one document per list.
type MongoStore struct {
	repo *micro.MongoRepo[*ShoppingList]
}

func NewMongoStore(collection *mongo.Collection) (*MongoStore, error) {
	base, err := micro.NewMongoRepo(collection, func() *ShoppingList { return &ShoppingList{} })
	if err != nil {
		return nil, err
	}
	return &MongoStore{repo: base}, nil
}

func (s *MongoStore) FindAll(ctx context.Context) ([]*ShoppingList, error) {
	lists, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		l.normalize()
	}
	return lists, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*ShoppingList, error) {
	oid, ok := micro.ParseID(id)
	if !ok {
		return nil, ErrNotFound
	}
	list, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, translate(err)
	}
	return list.normalize(), nil
}

func (s *MongoStore) Create(ctx context.Context, in CreateShoppingList) (*ShoppingList, error) {
	list := NewShoppingList(in)
	if err := s.repo.Insert(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *MongoStore) Save(ctx context.Context, list *ShoppingList) error {
	return translate(s.repo.Save(ctx, list))
}

func (s *MongoStore) DeleteByID(ctx context.Context, id string) error {
	oid, ok := micro.ParseID(id)
	if !ok {
		return ErrNotFound
	}
	return translate(s.repo.Delete(ctx, oid))
}

func (s *MongoStore) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func translate(err error) error {
	if errors.Is(err, micro.ErrRepoNotFound) {
		return ErrNotFound
	}
	return err
}
