package micro

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultMongoTimeout = 10 * time.Second

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	AppName        string
}

// MongoClient owns one driver connection bound to a database. It is
// registered with Micro so the connection is closed on shutdown and its
// ping backs the readiness check.
type MongoClient struct {
	client   *mongo.Client
	database string
	timeout  time.Duration
}

// NewMongoClient connects and pings the primary before returning.
func NewMongoClient(ctx context.Context, cfg MongoConfig) (*MongoClient, error) {
	switch {
	case cfg.URI == "":
		return nil, errors.New("mongo: uri is required")
	case cfg.Database == "":
		return nil, errors.New("mongo: database is required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultMongoTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().ApplyURI(cfg.URI).SetServerSelectionTimeout(timeout)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	return &MongoClient{client: client, database: cfg.Database, timeout: timeout}, nil
}

func (m *MongoClient) Collection(name string) *mongo.Collection {
	return m.client.Database(m.database).Collection(name)
}

func (m *MongoClient) Database() string {
	if m == nil {
		return ""
	}
	return m.database
}

func (m *MongoClient) Ping(ctx context.Context) error {
	if m == nil || m.client == nil {
		return errors.New("mongo: not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.client.Ping(ctx, readpref.Primary())
}

// Readiness reports the connection under the "mongo" check.
func (m *MongoClient) Readiness() (string, HealthCheck) {
	return "mongo", m.Ping
}

func (m *MongoClient) Disconnect(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

func (m *MongoClient) Stop(ctx context.Context) error {
	return m.Disconnect(ctx)
}

// NewID returns a fresh ObjectID.
func NewID() primitive.ObjectID {
	return primitive.NewObjectID()
}

// ParseID accepts only 24 character hex strings.
func ParseID(raw string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(raw)
	return id, err == nil
}
