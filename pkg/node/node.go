package node

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Layr-Labs/verified-messages-go/pkg/logger"
	"github.com/Layr-Labs/verified-messages-go/pkg/metrics"
	"github.com/Layr-Labs/verified-messages-go/pkg/registry"
)

const (
	// DefaultEventsLimit is the page size of GET /messages/events when no limit is given
	DefaultEventsLimit = 100
	// MaxEventsLimit caps the page size of GET /messages/events
	MaxEventsLimit = 1000
	// MaxRequestBodyBytes caps the size of a JSON request body
	MaxRequestBodyBytes = 4 << 20
)

// Node serves the verified-messages registry over HTTP
type Node struct {
	Port int

	// Dependencies
	registry *registry.Registry
	server   *Server
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *zap.Logger

	// postLimiter is nil when post rate limiting is disabled
	postLimiter *rate.Limiter
}

// Config holds node configuration
type Config struct {
	Port int

	// PostRateLimit is the sustained post rate per second; 0 disables limiting
	PostRateLimit float64
	PostBurst     int

	Metrics  *metrics.Metrics    // Optional
	Gatherer prometheus.Gatherer // Optional, defaults to prometheus.DefaultGatherer
	Logger   *zap.Logger         // Optional logger, will create default if nil
}

// NewNode creates a new node serving reg
func NewNode(cfg Config, reg *registry.Registry) (*Node, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}

	nodeLogger := cfg.Logger
	if nodeLogger == nil {
		var err error
		nodeLogger, err = logger.NewLogger(&logger.LoggerConfig{Debug: false})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	n := &Node{
		Port:     cfg.Port,
		registry: reg,
		metrics:  cfg.Metrics,
		gatherer: gatherer,
		logger:   nodeLogger,
	}

	if cfg.PostRateLimit > 0 {
		burst := cfg.PostBurst
		if burst < 1 {
			burst = 1
		}
		n.postLimiter = rate.NewLimiter(rate.Limit(cfg.PostRateLimit), burst)
	}

	n.server = NewServer(n, cfg.Port)
	return n, nil
}

// Start starts the node's HTTP server
func (n *Node) Start() error {
	return n.server.Start()
}

// Stop stops the node's HTTP server
func (n *Node) Stop() error {
	return n.server.Stop()
}

// Handler returns the node's HTTP handler
func (n *Node) Handler() http.Handler {
	return n.server.GetHandler()
}
