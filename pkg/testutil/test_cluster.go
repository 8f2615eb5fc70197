package testutil

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Layr-Labs/verified-messages-go/pkg/client"
	"github.com/Layr-Labs/verified-messages-go/pkg/config"
	"github.com/Layr-Labs/verified-messages-go/pkg/metrics"
	"github.com/Layr-Labs/verified-messages-go/pkg/node"
	"github.com/Layr-Labs/verified-messages-go/pkg/persistence"
	"github.com/Layr-Labs/verified-messages-go/pkg/registry"
)

// TestCluster is a set of registry servers sharing one store, the way
// replicas behind a shared redis or sql backend run in production
type TestCluster struct {
	Nodes      []*node.Node
	Servers    []*httptest.Server
	Clients    []*client.Client
	ServerURLs []string
	Network    config.Network
	Store      persistence.IRegistryPersistence
}

// NewTestCluster starts numNodes servers over store. Servers are closed by t.Cleanup;
// the store is left to the caller.
func NewTestCluster(t *testing.T, numNodes int, store persistence.IRegistryPersistence, network config.Network) *TestCluster {
	t.Helper()

	clusterLogger := zap.NewNop()
	tc := &TestCluster{
		Network: network,
		Store:   store,
	}

	for i := 0; i < numNodes; i++ {
		promRegistry := prometheus.NewRegistry()
		m := metrics.NewMetricsWithRegistry(promRegistry)

		reg, err := registry.NewRegistry(store, network, clusterLogger, m)
		if err != nil {
			t.Fatalf("Failed to create registry %d: %v", i+1, err)
		}
		n, err := node.NewNode(node.Config{Metrics: m, Gatherer: promRegistry, Logger: clusterLogger}, reg)
		if err != nil {
			t.Fatalf("Failed to create node %d: %v", i+1, err)
		}

		srv := httptest.NewServer(n.Handler())
		c, err := client.NewClient(&client.ClientConfig{BaseURL: srv.URL, Logger: clusterLogger})
		if err != nil {
			srv.Close()
			t.Fatalf("Failed to create client %d: %v", i+1, err)
		}

		tc.Nodes = append(tc.Nodes, n)
		tc.Servers = append(tc.Servers, srv)
		tc.Clients = append(tc.Clients, c)
		tc.ServerURLs = append(tc.ServerURLs, srv.URL)
	}

	t.Cleanup(tc.Close)
	return tc
}

// Close shuts down every server in the cluster
func (tc *TestCluster) Close() {
	for _, srv := range tc.Servers {
		srv.Close()
	}
	tc.Servers = nil
}
