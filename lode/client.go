package lode

import (
	"context"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "k2-creek"

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"source", "day", "run_id", "event_type"}

// Config holds the partition values of one run.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Source identifies the workstation or installation.
	Source string
	// Day is derived from the run start time (YYYY-MM-DD UTC).
	Day string
	// RunID is the run identifier.
	RunID string
}

// DeriveDay returns the day partition of a run that started at startTime.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// LodeClient is a Lode-backed implementation of Client.
// Run records go through a Dataset with a Hive layout; artifact copies are
// written directly to the Store under the run's files/ prefix.
type LodeClient struct {
	dataset      lode.Dataset
	config       Config
	storeFactory lode.StoreFactory

	storeOnce sync.Once
	store     lode.Store
	storeErr  error
}

// NewLodeClient creates a Lode client with filesystem storage rooted at root.
func NewLodeClient(cfg Config, root string) (*LodeClient, error) {
	return NewLodeClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeClientWithFactory creates a Lode client with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeClientWithFactory(cfg Config, factory lode.StoreFactory) (*LodeClient, error) {
	ds, err := newDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return newClient(ds, cfg, factory), nil
}

func newClient(ds lode.Dataset, cfg Config, factory lode.StoreFactory) *LodeClient {
	return &LodeClient{
		dataset:      ds,
		config:       cfg,
		storeFactory: factory,
	}
}

func newDataset(id string, factory lode.StoreFactory) (lode.Dataset, error) {
	if id == "" {
		id = DefaultDataset
	}
	return lode.NewDataset(
		lode.DatasetID(id),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// Config returns the partition values of the client.
func (c *LodeClient) Config() Config {
	return c.config
}

// WriteRun stores the summary record of a run.
func (c *LodeClient) WriteRun(ctx context.Context, record *RunRecord) error {
	if record == nil {
		return nil
	}
	_, err := c.dataset.Write(ctx, []any{toRunRecordMap(record, c.config)}, lode.Metadata{})
	return WrapWriteError(err, c.config.Dataset+"/run_id="+c.config.RunID)
}

// Close releases client resources.
func (c *LodeClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// Verify LodeClient implements Client.
var _ Client = (*LodeClient)(nil)
