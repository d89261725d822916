package micro

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

type testDoc struct {
	DocID primitive.ObjectID `bson:"_id"`
	Name  string             `bson:"name"`
}

func (d *testDoc) ID() primitive.ObjectID { return d.DocID }

func newTestDoc() *testDoc { return &testDoc{} }

func TestNewMongoRepoRequiresArguments(t *testing.T) {
	if _, err := NewMongoRepo[*testDoc](nil, newTestDoc); err == nil {
		t.Error("expected error for nil collection")
	}

	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	mt.Run("nil constructor", func(mt *mtest.T) {
		if _, err := NewMongoRepo[*testDoc](mt.Coll, nil); err == nil {
			mt.Error("expected error for nil constructor")
		}
	})
}

func TestMongoRepoFindByID(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("found", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: id}, {Key: "name", Value: "Groceries"}}))

		doc, err := repo.FindByID(context.Background(), id)
		if err != nil {
			mt.Fatalf("FindByID error: %v", err)
		}
		if doc.DocID != id || doc.Name != "Groceries" {
			mt.Errorf("unexpected doc %+v", doc)
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID())
		if !errors.Is(err, ErrRepoNotFound) {
			mt.Errorf("expected ErrRepoNotFound, got %v", err)
		}
	})

	mt.Run("server error", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 1, Message: "boom"}))

		_, err := repo.FindByID(context.Background(), primitive.NewObjectID())
		if err == nil || errors.Is(err, ErrRepoNotFound) {
			mt.Errorf("expected wrapped server error, got %v", err)
		}
	})
}

func TestMongoRepoInsertAndSave(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		if err := repo.Insert(context.Background(), &testDoc{DocID: primitive.NewObjectID(), Name: "a"}); err != nil {
			mt.Errorf("Insert error: %v", err)
		}
	})

	mt.Run("insert duplicate", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		if err := repo.Insert(context.Background(), &testDoc{DocID: primitive.NewObjectID()}); err == nil {
			mt.Error("expected duplicate key error")
		}
	})

	mt.Run("save matched", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		if err := repo.Save(context.Background(), &testDoc{DocID: primitive.NewObjectID(), Name: "b"}); err != nil {
			mt.Errorf("Save error: %v", err)
		}
	})

	mt.Run("save unmatched", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))

		err := repo.Save(context.Background(), &testDoc{DocID: primitive.NewObjectID()})
		if !errors.Is(err, ErrRepoNotFound) {
			mt.Errorf("expected ErrRepoNotFound, got %v", err)
		}
	})
}

func TestMongoRepoDelete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("deleted", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		if err := repo.Delete(context.Background(), primitive.NewObjectID()); err != nil {
			mt.Errorf("Delete error: %v", err)
		}
	})

	mt.Run("nothing deleted", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		if err := repo.Delete(context.Background(), primitive.NewObjectID()); !errors.Is(err, ErrRepoNotFound) {
			mt.Errorf("expected ErrRepoNotFound, got %v", err)
		}
	})
}

func TestMongoRepoAllAndCount(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("in order", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "one"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "name", Value: "two"}},
		))

		docs, err := repo.All(context.Background())
		if err != nil {
			mt.Fatalf("All error: %v", err)
		}
		if len(docs) != 2 || docs[0].Name != "one" || docs[1].Name != "two" {
			mt.Errorf("unexpected docs %+v", docs)
		}
	})

	mt.Run("empty collection", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		docs, err := repo.All(context.Background())
		if err != nil {
			mt.Fatalf("All error: %v", err)
		}
		if docs == nil || len(docs) != 0 {
			mt.Errorf("expected empty slice, got %#v", docs)
		}
	})

	mt.Run("count error", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad"}))

		if _, err := repo.Count(context.Background()); err == nil {
			mt.Error("expected error")
		}
	})

	mt.Run("count", func(mt *mtest.T) {
		repo, _ := NewMongoRepo(mt.Coll, newTestDoc)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			bson.D{{Key: "n", Value: int32(3)}}))

		n, err := repo.Count(context.Background())
		if err != nil {
			mt.Fatalf("Count error: %v", err)
		}
		if n != 3 {
			mt.Errorf("Count = %d, want 3", n)
		}
	})
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}
