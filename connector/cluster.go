package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/NetRube/NetRube.Data/dialect"
)

// Cluster is a primary connection with read replicas. Writes always go to
// the primary; reads follow the configured strategy.
type Cluster struct {
	strategy string
	primary  Connection
	replicas []Connection
	readIdx  atomic.Uint64
}

// NewCluster connects the primary and every replica. A failure closes
// whatever was already opened.
func NewCluster(ctx context.Context, cc ClusterConfig, opts ...Option) (*Cluster, error) {
	if err := cc.ValidateCluster(); err != nil {
		return nil, err
	}
	primary, err := Connect(ctx, cc.Primary, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to primary: %w", err)
	}

	c := &Cluster{strategy: cc.ReadStrategy, primary: primary}
	for i, rc := range cc.Replicas {
		replica, err := Connect(ctx, rc, opts...)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to connect to replica %d: %w", i, err)
		}
		c.replicas = append(c.replicas, replica)
	}
	return c, nil
}

// Primary returns the primary connection.
func (c *Cluster) Primary() Connection { return c.primary }

// Replicas returns all replica connections.
func (c *Cluster) Replicas() []Connection { return c.replicas }

// Read picks a connection for read operations.
func (c *Cluster) Read() Connection {
	if len(c.replicas) == 0 {
		return c.primary
	}
	switch c.strategy {
	case "random":
		return c.replicas[rand.IntN(len(c.replicas))]
	case "round_robin":
		idx := c.readIdx.Add(1) - 1
		return c.replicas[idx%uint64(len(c.replicas))]
	}
	return c.primary
}

// Write returns the primary.
func (c *Cluster) Write() Connection { return c.primary }

func (c *Cluster) DB() *sql.DB            { return c.primary.DB() }
func (c *Cluster) Driver() string         { return c.primary.Driver() }
func (c *Cluster) Family() dialect.Family { return c.primary.Family() }

// Health checks every connection in the cluster.
func (c *Cluster) Health(ctx context.Context) error {
	if err := c.primary.Health(ctx); err != nil {
		return fmt.Errorf("primary health check failed: %w", err)
	}
	for i, replica := range c.replicas {
		if err := replica.Health(ctx); err != nil {
			return fmt.Errorf("replica %d health check failed: %w", i, err)
		}
	}
	return nil
}

// Stats sums the statistics of every connection.
func (c *Cluster) Stats() ConnectionStats {
	s := c.primary.Stats()
	for _, replica := range c.replicas {
		s = s.add(replica.Stats())
	}
	return s
}

// Close closes every connection in the cluster.
func (c *Cluster) Close() error {
	errs := []error{c.primary.Close()}
	for _, replica := range c.replicas {
		errs = append(errs, replica.Close())
	}
	return errors.Join(errs...)
}
