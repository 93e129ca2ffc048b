// Package config selects and opens the backing store an export reads from.
package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/Benny93/reactome-sbml/internal/storage"
)

// Source kinds.
const (
	SourceNeo4j    = "neo4j"
	SourceMySQL    = "mysql"
	SourceSnapshot = "snapshot"
	SourceJSON     = "json"
)

// Connection defaults for a local Reactome installation.
const (
	DefaultHost          = "localhost"
	DefaultNeo4jPort     = 7687
	DefaultNeo4jUser     = "neo4j"
	DefaultNeo4jPassword = "reactome"
	DefaultMySQLPort     = 3306
	DefaultMySQLUser     = "reactome"
	DefaultMySQLDatabase = "gk_central"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Database holds the connection settings for a database server.
type Database struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database,omitempty"`
}

// Config selects a source and carries the settings for each kind.
type Config struct {
	Source   string   `json:"source"`
	Neo4j    Database `json:"neo4j"`
	MySQL    Database `json:"mysql"`
	Snapshot string   `json:"snapshot,omitempty"`
	JSON     string   `json:"json,omitempty"`
}

// Default returns a configuration for a local graph database.
func Default() Config {
	return Config{
		Source: SourceNeo4j,
		Neo4j: Database{
			Host:     DefaultHost,
			Port:     DefaultNeo4jPort,
			User:     DefaultNeo4jUser,
			Password: DefaultNeo4jPassword,
		},
		MySQL: Database{
			Host:     DefaultHost,
			Port:     DefaultMySQLPort,
			User:     DefaultMySQLUser,
			Database: DefaultMySQLDatabase,
		},
	}
}

// Validate checks that the selected source has what it needs to open.
func (c Config) Validate() error {
	switch c.Source {
	case SourceNeo4j:
		return c.Neo4j.validate(SourceNeo4j)
	case SourceMySQL:
		if err := c.MySQL.validate(SourceMySQL); err != nil {
			return err
		}
		if c.MySQL.Database == "" {
			return fmt.Errorf("%w: mysql needs a database name", ErrInvalid)
		}
		return nil
	case SourceSnapshot:
		if c.Snapshot == "" {
			return fmt.Errorf("%w: no snapshot directory given", ErrInvalid)
		}
		return nil
	case SourceJSON:
		if c.JSON == "" {
			return fmt.Errorf("%w: no JSON dump given", ErrInvalid)
		}
		return nil
	case "":
		return fmt.Errorf("%w: no source selected", ErrInvalid)
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalid, c.Source)
	}
}

func (d Database) validate(kind string) error {
	if d.Host == "" {
		return fmt.Errorf("%w: %s needs a host", ErrInvalid, kind)
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("%w: %s port %d out of range", ErrInvalid, kind, d.Port)
	}
	return nil
}

// Neo4jURI is the bolt address of the graph database.
func (c Config) Neo4jURI() string {
	return fmt.Sprintf("bolt://%s:%d", c.Neo4j.Host, c.Neo4j.Port)
}

// Opener opens one kind of source.
type Opener func(ctx context.Context, cfg Config) (storage.Source, error)

// openers is swapped by tests.
var openers = map[string]Opener{
	SourceNeo4j: func(ctx context.Context, cfg Config) (storage.Source, error) {
		return storage.NewNeo4jBackend(ctx, storage.Neo4jOptions{
			URI:      cfg.Neo4jURI(),
			User:     cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		})
	},
	SourceMySQL: func(ctx context.Context, cfg Config) (storage.Source, error) {
		return storage.NewMySQLBackend(ctx, storage.MySQLOptions{
			Host:     cfg.MySQL.Host,
			Port:     cfg.MySQL.Port,
			User:     cfg.MySQL.User,
			Password: cfg.MySQL.Password,
			Database: cfg.MySQL.Database,
		})
	},
	SourceSnapshot: func(_ context.Context, cfg Config) (storage.Source, error) {
		store := storage.NewBadgerBackend()
		if err := store.Initialize(cfg.Snapshot, true); err != nil {
			return nil, err
		}
		return store, nil
	},
	SourceJSON: func(_ context.Context, cfg Config) (storage.Source, error) {
		return storage.LoadJSON(cfg.JSON)
	},
}

// Open validates cfg and opens the selected source.
func Open(ctx context.Context, cfg Config) (storage.Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src, err := openers[cfg.Source](ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s source: %w", cfg.Source, err)
	}
	return src, nil
}
