// Command checkconn verifies that the configured MongoDB deployment is
// reachable and exits non-zero when it is not.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/danielnirn/shopping-api/internal/app"
	"github.com/danielnirn/shopping-api/internal/micro"
	"go.mongodb.org/mongo-driver/mongo"
)

const timeout = 30 * time.Second

var errMissingURI = errors.New("mongo.uri (or MONGODB_URI) is not set")

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "connection check failed: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	s, err := loadSettings(args)
	if err != nil {
		return err
	}
	log, err := app.NewLogger(s.Log)
	if err != nil {
		return err
	}
	log.Info("checking mongo connection", "uri", app.MaskURI(s.Mongo.URI), "database", s.Mongo.Database)

	start := time.Now()
	client, err := micro.NewMongoClient(ctx, micro.MongoConfig{
		URI:            s.Mongo.URI,
		Database:       s.Mongo.Database,
		ConnectTimeout: timeout,
		AppName:        app.Name + "-checkconn",
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	n, err := countDocuments(ctx, client.Collection(s.Mongo.Collection))
	if err != nil {
		return err
	}
	log.Info("mongo connection ok", "elapsed_ms", time.Since(start).Milliseconds(), "collection", s.Mongo.Collection, "documents", n)
	return nil
}

// loadSettings reads the service configuration and fails fast without a URI.
func loadSettings(args []string) (app.Settings, error) {
	cfg, err := app.LoadConfig(args)
	if err != nil {
		return app.Settings{}, err
	}
	var s app.Settings
	if err := cfg.Unmarshal("", &s); err != nil {
		return app.Settings{}, err
	}
	if s.Mongo.URI == "" {
		return app.Settings{}, errMissingURI
	}
	return s, nil
}

func countDocuments(ctx context.Context, coll *mongo.Collection) (int64, error) {
	n, err := coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", coll.Name(), err)
	}
	return n, nil
}
