package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/danielnirn/shopping-api/internal/micro"
	"github.com/danielnirn/shopping-api/internal/shoppinglist"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://schemas.shopping-api.local/seed.json"

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// File is the seed document: one list name and its tasks.
type File struct {
	Name  string                 `json:"name"`
	Tasks []shoppinglist.NewTask `json:"tasks"`
}

// Target is the part of a shopping list store the seeder writes to.
type Target interface {
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, in shoppinglist.CreateShoppingList) (*shoppinglist.ShoppingList, error)
}

// Run creates one list from the seed file at path when the store is empty.
// The list must pass the same checks as an API create. Problems with the
// file itself, or with writing the seed list, are logged
// and swallowed so startup continues with an empty store. Only a failing
// Count is returned.
func Run(ctx context.Context, store Target, path string, logger micro.Logger) (bool, error) {
	if store == nil {
		return false, errors.New("seed target is required")
	}
	if logger == nil {
		logger = micro.NewNoopLogger()
	}

	n, err := store.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count shopping lists: %w", err)
	}
	if n > 0 {
		logger.Debug("store not empty, skipping seed", "lists", n)
		return false, nil
	}

	file, err := LoadFile(path)
	if err != nil {
		logger.Error("error seeding database", "path", path, "error", err)
		return false, nil
	}

	in := shoppinglist.CreateShoppingList{Name: file.Name, Tasks: file.Tasks}
	if err := shoppinglist.ValidateCreate(in); err != nil {
		logger.Error("error seeding database", "path", path, "error", err)
		return false, nil
	}

	list, err := store.Create(ctx, in)
	if err != nil {
		logger.Error("error seeding database", "path", path, "error", err)
		return false, nil
	}

	logger.Info("database seeded with initial data", "id", list.GetID(), "tasks", len(list.Tasks))
	return true, nil
}

// Hooks runs the seed as a lifecycle start hook.
func Hooks(store Target, path string, logger micro.Logger) micro.LifecycleHooks {
	return micro.LifecycleHooks{
		OnStart: func(ctx context.Context) error {
			_, err := Run(ctx, store, path, logger)
			return err
		},
	}
}

// LoadFile reads and validates a seed document.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse validates data against the seed schema and decodes it.
func Parse(data []byte) (*File, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid seed file: %s", describe(err))
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	return &file, nil
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("load seed schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// describe flattens a schema validation error into its leaf causes.
func describe(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var parts []string
	collect(ve, &parts)
	return strings.Join(parts, "; ")
}

func collect(ve *jsonschema.ValidationError, parts *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*parts = append(*parts, loc+": "+ve.Message)
		return
	}
	for _, cause := range ve.Causes {
		collect(cause, parts)
	}
}
