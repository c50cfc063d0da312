// Package clients resolves and caches GraphQL clients for sibling services.
package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/example/shipmesh/pkg/discovery"
	"github.com/example/shipmesh/pkg/graphql"
	"go.uber.org/zap"
)

// Discoverer is the lookup half of discovery.ServiceDiscovery.
type Discoverer interface {
	Discover(ctx context.Context, serviceName string) ([]*discovery.ServiceInstance, error)
}

const discoverTimeout = 2 * time.Second

// Manager hands out one graphql.Client per sibling. The configured URL is the
// fallback; a registered instance in etcd overrides its host and port.
type Manager struct {
	discovery Discoverer
	logger    *zap.Logger
	http      *http.Client

	mu      sync.Mutex
	clients map[string]*graphql.Client
}

// NewManager accepts a nil discoverer, in which case static URLs are used.
func NewManager(disc Discoverer, timeout time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		discovery: disc,
		logger:    logger.Named("clients"),
		http:      &http.Client{Timeout: timeout},
		clients:   make(map[string]*graphql.Client),
	}
}

// Client returns the client for serviceName, resolving it on first use.
func (m *Manager) Client(serviceName, fallbackURL string) *graphql.Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.clients[serviceName]; ok {
		return c
	}
	c := graphql.NewClient(m.resolve(serviceName, fallbackURL), m.http)
	m.clients[serviceName] = c
	return c
}

func (m *Manager) resolve(serviceName, fallbackURL string) string {
	if m.discovery == nil {
		return fallbackURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), discoverTimeout)
	defer cancel()

	instances, err := m.discovery.Discover(ctx, serviceName)
	if err != nil || len(instances) == 0 {
		m.logger.Info("Using configured address", zap.String("service", serviceName), zap.String("url", fallbackURL))
		return fallbackURL
	}

	target, err := withHost(fallbackURL, instances[0].Addr())
	if err != nil {
		m.logger.Warn("Ignoring discovered address", zap.String("service", serviceName), zap.Error(err))
		return fallbackURL
	}
	m.logger.Info("Discovered service", zap.String("service", serviceName), zap.String("url", target))
	return target
}

// withHost keeps the scheme and path of base and swaps in addr.
func withHost(base, addr string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse %q: %w", base, err)
	}
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	u.Host = addr
	return u.String(), nil
}

// Forget drops a cached client so the next call re-resolves it.
func (m *Manager) Forget(serviceName string) {
	m.mu.Lock()
	delete(m.clients, serviceName)
	m.mu.Unlock()
}

func (m *Manager) Close() {
	m.http.CloseIdleConnections()
}
