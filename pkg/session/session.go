// Package session manages the single MongoDB connection of a mongokit run.
//
// The connection is established on first use and kept for the rest of the run;
// Disconnect is meant to be deferred around the whole command execution.
// The Session also implements the store used by the operation handlers, so
// every handler goes through the same client.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandrolain/mongokit/pkg/toolutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	// DefaultConnectTimeout is the default timeout for the initial connect.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultPingTimeout is the default timeout for the ping made after connecting.
	DefaultPingTimeout = 5 * time.Second

	// DefaultOperationTimeout is the default timeout for each database operation.
	DefaultOperationTimeout = time.Minute

	// DefaultDisconnectTimeout is the default timeout for the disconnect.
	DefaultDisconnectTimeout = 10 * time.Second
)

// ConfigError reports a configuration problem found before any network activity.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// ErrMissingURI is returned by Connect when no connection string is configured.
var ErrMissingURI = &ConfigError{Msg: "Mongo URI must be set using --uri argument or via the MONGO_URI environment variable"}

// Config items for the MongoDB connection.
type Config struct {
	URI string

	// Logger defaults to toolutil.Logger().
	Logger *slog.Logger

	Timeout
}

// Timeout settings for MongoDB access.
type Timeout struct {
	Connect    time.Duration
	Ping       time.Duration
	Operation  time.Duration
	Disconnect time.Duration
}

type (
	dialFunc func(ctx context.Context, opts ...*options.ClientOptions) (*mongo.Client, error)
	pingFunc func(ctx context.Context, client *mongo.Client) error
)

// Session holds the memoized client.
type Session struct {
	config Config
	client *mongo.Client

	dial dialFunc
	ping pingFunc
}

// New returns a session that has not connected yet.
func New(config Config) *Session {
	return &Session{
		config: fixConfig(config),
		dial:   mongo.Connect,
		ping: func(ctx context.Context, client *mongo.Client) error {
			return client.Ping(ctx, readpref.Primary())
		},
	}
}

func fixConfig(config Config) Config {
	if config.Logger == nil {
		config.Logger = toolutil.Logger()
	}
	if config.Timeout.Connect == 0 {
		config.Timeout.Connect = DefaultConnectTimeout
	}
	if config.Timeout.Ping == 0 {
		config.Timeout.Ping = DefaultPingTimeout
	}
	if config.Timeout.Operation == 0 {
		config.Timeout.Operation = DefaultOperationTimeout
	}
	if config.Timeout.Disconnect == 0 {
		config.Timeout.Disconnect = DefaultDisconnectTimeout
	}
	return config
}

// Connect returns the client of the session, connecting on the first call.
func (s *Session) Connect(ctx context.Context) (*mongo.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	if s.config.URI == "" {
		return nil, ErrMissingURI
	}

	connectCtx, cancel := context.WithTimeout(ctx, s.config.Timeout.Connect)
	defer cancel()
	client, err := s.dial(connectCtx, options.Client().ApplyURI(s.config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	pingCtx, cancelPing := context.WithTimeout(ctx, s.config.Timeout.Ping)
	defer cancelPing()
	if err := s.ping(pingCtx, client); err != nil {
		s.closeClient(client)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s.client = client
	s.config.Logger.Debug("Connected to MongoDB")
	return client, nil
}

// Connected reports whether the session holds a live client.
func (s *Session) Connected() bool {
	return s.client != nil
}

// Disconnect closes the client if there is one. Calling it again, or on a
// session that never connected, does nothing.
func (s *Session) Disconnect(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	client := s.client
	s.client = nil

	disconnectCtx, cancel := context.WithTimeout(ctx, s.config.Timeout.Disconnect)
	defer cancel()
	if err := client.Disconnect(disconnectCtx); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	s.config.Logger.Debug("Disconnected from MongoDB")
	return nil
}

func (s *Session) closeClient(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout.Disconnect)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		s.config.Logger.Warn("Failed to disconnect", "error", err)
	}
}

func (s *Session) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.Timeout.Operation)
}

// IsNotFound checks an error condition to see if it matches the driver "not found" error.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, mongo.ErrNoDocuments)
}
