package lode

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/justapithecus/lode/lode"
)

// FileWriter writes artifact copies to a Lode Store.
// Files land at Hive-partitioned paths under files/, bypassing Dataset
// segment/manifest machinery entirely.
type FileWriter interface {
	// PutFile writes a file to the Hive-partitioned files/ prefix.
	// The filename must not contain path separators or "..".
	PutFile(ctx context.Context, filename, contentType string, data []byte) error
}

// Verify LodeClient implements FileWriter.
var _ FileWriter = (*LodeClient)(nil)

// PutFile writes a file to Lode Store at the computed Hive path.
// Uses lazy store initialization via storeFactory.
func (c *LodeClient) PutFile(ctx context.Context, filename, _ string, data []byte) error {
	if err := validateFilename(filename); err != nil {
		return err
	}

	store, err := c.getOrCreateStore()
	if err != nil {
		return WrapInitError(err, c.config.Dataset)
	}

	path := c.FilePath(filename)
	return WrapWriteError(store.Put(ctx, path, bytes.NewReader(data)), path)
}

// getOrCreateStore lazily initializes the Store from the factory.
func (c *LodeClient) getOrCreateStore() (lode.Store, error) {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	return c.store, c.storeErr
}

// FilePath computes the Hive-partitioned path for an artifact copy.
// Format: datasets/<dataset>/partitions/source=<s>/day=<d>/run_id=<r>/files/<filename>
func (c *LodeClient) FilePath(filename string) string {
	dataset := c.config.Dataset
	if dataset == "" {
		dataset = DefaultDataset
	}
	return fmt.Sprintf("datasets/%s/partitions/source=%s/day=%s/run_id=%s/files/%s",
		dataset,
		c.config.Source,
		c.config.Day,
		c.config.RunID,
		filename,
	)
}

func validateFilename(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid mirror filename %q", name)
	}
	return nil
}

// StubClient records calls for testing.
type StubClient struct {
	mu     sync.Mutex
	Files  []StubFileRecord
	Runs   []*RunRecord
	Closed bool

	// PutErr, when set, is returned by every PutFile call.
	PutErr error
	// RunErr, when set, is returned by every WriteRun call.
	RunErr error
}

// StubFileRecord is a recorded file write for testing.
type StubFileRecord struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// PutFile implements FileWriter by recording the call.
func (s *StubClient) PutFile(_ context.Context, filename, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	s.Files = append(s.Files, StubFileRecord{
		Filename:    filename,
		ContentType: contentType,
		Data:        append([]byte(nil), data...),
	})
	return nil
}

// WriteRun implements Client by recording the record.
func (s *StubClient) WriteRun(_ context.Context, record *RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RunErr != nil {
		return s.RunErr
	}
	s.Runs = append(s.Runs, record)
	return nil
}

// Close implements Client.
func (s *StubClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Filenames returns the names of the recorded files in write order.
func (s *StubClient) Filenames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		names = append(names, f.Filename)
	}
	return names
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)
