// Package persistence owns the per-database connection pools and the query
// executor used against both the central directory database and the
// per-Mandant legacy databases.
package persistence

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"
)

const (
	driverName = "sqlserver"

	// Legacy databases tolerate few concurrent sessions.
	maxSessionsPerDB = 10

	minTimeout = 5 * time.Second
)

var dbNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ServerConfig captures the shared SQL Server connection settings.
// Host supports three forms: plain host, host plus Port, or the legacy
// "host\instance" combined string kept for backward compatibility.
type ServerConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Encrypt        bool
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	MaxIdleTime    time.Duration
}

func (c ServerConfig) connectTimeout() time.Duration {
	if c.ConnectTimeout < minTimeout {
		return minTimeout
	}
	return c.ConnectTimeout
}

// Manager lazily creates and caches one long-lived pool per physical
// database name. Concurrent first requests for the same database share a
// single connect attempt; a failed attempt is evicted so the next request
// retries fresh.
type Manager struct {
	cfg    ServerConfig
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]*poolEntry
}

type poolEntry struct {
	ready chan struct{}
	db    *sqlx.DB
	err   error
}

// NewManager builds a pool manager. Connection parameters are resolved once.
func NewManager(cfg ServerConfig, logger *zap.Logger) *Manager {
	if logger == nil {
		panic("persistence: logger is required")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		panic("persistence: server host is required")
	}
	return &Manager{
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]*poolEntry),
	}
}

// Acquire returns the live pool for the given physical database, connecting
// on first use. The database name is validated against a strict allow-list
// pattern before any connection string is built.
func (m *Manager) Acquire(ctx context.Context, dbName string) (*sqlx.DB, error) {
	if !dbNamePattern.MatchString(dbName) {
		return nil, fmt.Errorf("invalid database name %q", dbName)
	}

	m.mu.Lock()
	entry, ok := m.entries[dbName]
	if !ok {
		entry = &poolEntry{ready: make(chan struct{})}
		m.entries[dbName] = entry
		go m.connect(dbName, entry)
	}
	m.mu.Unlock()

	select {
	case <-entry.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if entry.err != nil {
		return nil, entry.err
	}
	return entry.db, nil
}

// Close tears down every live pool. Called once on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, entry := range m.entries {
		select {
		case <-entry.ready:
			if entry.db != nil {
				_ = entry.db.Close()
			}
		default:
			// Connect still in flight; publish notices the eviction and
			// closes the late handle itself.
		}
		delete(m.entries, name)
	}
}

func (m *Manager) connect(dbName string, entry *poolEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.connectTimeout())
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, driverName, m.dsn(dbName))
	if err != nil {
		entry.err = fmt.Errorf("connect %s: %w", dbName, err)
		m.logger.Error("database connect failed",
			zap.String("database", dbName),
			zap.Error(err),
		)

		// Evict before waking waiters so the next Acquire retries cleanly.
		m.mu.Lock()
		delete(m.entries, dbName)
		m.mu.Unlock()
		close(entry.ready)
		return
	}

	db.SetMaxOpenConns(maxSessionsPerDB)
	db.SetMaxIdleConns(maxSessionsPerDB)
	if m.cfg.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(m.cfg.MaxIdleTime)
	}

	m.publish(dbName, entry, db)
}

// publish hands the connected pool to the waiters, unless Close evicted the
// entry while the dial was in flight; then nobody will ever use the handle
// and it is closed here instead of leaking.
func (m *Manager) publish(dbName string, entry *poolEntry, db *sqlx.DB) {
	m.mu.Lock()
	if m.entries[dbName] != entry {
		m.mu.Unlock()
		_ = db.Close()
		entry.err = fmt.Errorf("pool %s closed during connect", dbName)
		close(entry.ready)
		return
	}
	entry.db = db
	close(entry.ready)
	m.mu.Unlock()

	m.logger.Info("database pool ready", zap.String("database", dbName))
}

// dsn builds the sqlserver connection URL for one physical database.
func (m *Manager) dsn(dbName string) string {
	host, port, instance := resolveServer(m.cfg.Host, m.cfg.Port)

	u := url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(m.cfg.User, m.cfg.Password),
		Host:   host,
	}
	if port > 0 {
		u.Host = host + ":" + strconv.Itoa(port)
	}
	if instance != "" {
		u.Path = instance
	}

	q := url.Values{}
	q.Set("database", dbName)
	q.Set("dial timeout", strconv.Itoa(int(m.cfg.connectTimeout().Seconds())))
	if m.cfg.Encrypt {
		q.Set("encrypt", "true")
	} else {
		q.Set("encrypt", "disable")
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// resolveServer splits the configured host into host, port and named
// instance. A "host\instance" value wins over an explicit port because the
// SQL Browser negotiates the port for named instances.
func resolveServer(host string, port int) (string, int, string) {
	if idx := strings.IndexByte(host, '\\'); idx >= 0 {
		return host[:idx], 0, host[idx+1:]
	}
	return host, port, ""
}
