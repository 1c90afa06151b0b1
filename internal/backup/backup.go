// Package backup takes encrypted snapshots of the grocery list and stores
// them in S3-compatible object storage. Snapshots are JSON, so they work the
// same for every datastore driver.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dukerupert/grocerylist/internal/model"
)

var (
	// ErrDisabled is returned when storage is not configured.
	ErrDisabled = errors.New("backup not configured")
	// ErrNotFound is returned when no snapshot exists under a key.
	ErrNotFound = errors.New("backup not found")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Source supplies the items to snapshot.
type Source interface {
	List(ctx context.Context) ([]model.GroceryItem, error)
}

// Target receives the items of a restored snapshot.
type Target interface {
	Source
	Create(ctx context.Context, f model.ItemFields) (*model.GroceryItem, error)
	Delete(ctx context.Context, id string) error
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration.
type Config struct {
	S3         S3Config
	Prefix     string
	Passphrase string
	// Interval between scheduled snapshots. Zero disables the schedule;
	// RunNow still works.
	Interval  time.Duration
	Retention time.Duration
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	LastKey    string     `json:"last_key,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Snapshot is the decrypted content of one backup object.
type Snapshot struct {
	Version int                 `json:"version"`
	TakenAt time.Time           `json:"taken_at"`
	Items   []model.GroceryItem `json:"items"`
}

const snapshotVersion = 1

// Manager runs snapshots on demand and on a schedule.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	source   Source
	client   s3Client
	logger   *slog.Logger

	// serializes snapshot runs
	runMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a backup manager. It starts disabled unless the S3
// bucket and credentials are all set.
func NewManager(cfg Config, source Source, callback StatusCallback, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		source:   source,
		callback: callback,
		logger:   logger,
		status:   Status{State: StateDisabled},
	}
	if cfg.S3.complete() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether storage is configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start begins the scheduled snapshot loop. It is a no-op when the manager
// is disabled or no interval is set.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil || m.cfg.Interval <= 0 {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.scheduled(ctx)
			}
		}
	}()
}

// Stop gracefully stops the schedule.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	if s.LastBackup == nil {
		s.LastBackup = m.status.LastBackup
	}
	if s.LastKey == "" {
		s.LastKey = m.status.LastKey
	}
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

func (m *Manager) fail(err error) error {
	m.setStatus(Status{State: StateError, Error: err.Error()})
	return err
}

func (m *Manager) scheduled(ctx context.Context) {
	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
		return
	}
	if m.cfg.Retention > 0 {
		if _, err := m.Cleanup(ctx, time.Now().UTC().Add(-m.cfg.Retention)); err != nil {
			m.logger.Error("backup cleanup failed", "error", err)
		}
	}
}

// RunNow snapshots the list, encrypts it and uploads it. It returns the
// object key.
func (m *Manager) RunNow(ctx context.Context) (string, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return "", ErrDisabled
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()

	m.setStatus(Status{State: StateRunning, InProgress: true})

	items, err := m.source.List(ctx)
	if err != nil {
		return "", m.fail(fmt.Errorf("list items: %w", err))
	}
	if items == nil {
		items = []model.GroceryItem{}
	}

	now := time.Now().UTC()
	plaintext, err := json.Marshal(Snapshot{Version: snapshotVersion, TakenAt: now, Items: items})
	if err != nil {
		return "", m.fail(fmt.Errorf("marshal snapshot: %w", err))
	}

	body, err := Encrypt(plaintext, m.cfg.Passphrase)
	if err != nil {
		return "", m.fail(fmt.Errorf("encrypt: %w", err))
	}

	key := m.objectKey(now)
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", m.fail(fmt.Errorf("upload to s3: %w", err))
	}

	m.logger.Info("backup uploaded", "key", key, "items", len(items), "bytes", len(body))
	m.setStatus(Status{State: StateIdle, LastBackup: &now, LastKey: key})
	return key, nil
}

func (m *Manager) objectKey(t time.Time) string {
	name := fmt.Sprintf("grocery-%s.json.enc", t.Format("2006-01-02T150405.000Z"))
	return path.Join(m.cfg.Prefix, name)
}

// Fetch downloads and decrypts the snapshot stored under key.
func (m *Manager) Fetch(ctx context.Context, key string) (*Snapshot, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return nil, ErrDisabled
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	var missing *types.NoSuchKey
	if errors.As(err, &missing) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	plaintext, err := Decrypt(data, m.cfg.Passphrase)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(plaintext, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return &snap, nil
}

// Restore replaces every item in target with the items of the snapshot
// stored under key and returns how many were restored. Restored items get
// new ids. The snapshot is fetched and decrypted before target is touched.
func (m *Manager) Restore(ctx context.Context, key string, target Target) (int, error) {
	snap, err := m.Fetch(ctx, key)
	if err != nil {
		return 0, err
	}

	current, err := target.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list items: %w", err)
	}
	for _, item := range current {
		if err := target.Delete(ctx, item.ID); err != nil {
			return 0, fmt.Errorf("delete item %s: %w", item.ID, err)
		}
	}

	for i, item := range snap.Items {
		if _, err := target.Create(ctx, item.Fields()); err != nil {
			return i, fmt.Errorf("restore item %s: %w", item.ID, err)
		}
	}

	m.logger.Info("backup restored", "key", key, "items", len(snap.Items))
	return len(snap.Items), nil
}

// Cleanup deletes snapshots last modified before the cutoff and returns
// how many were removed. Objects outside the prefix are never touched.
func (m *Manager) Cleanup(ctx context.Context, before time.Time) (int, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()
	if client == nil {
		return 0, nil
	}

	prefix := m.cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var deleted int
	var token *string
	for {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return deleted, fmt.Errorf("list objects: %w", err)
		}

		for _, obj := range out.Contents {
			if obj.LastModified == nil || !obj.LastModified.Before(before) {
				continue
			}
			if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucket),
				Key:    obj.Key,
			}); err != nil {
				m.logger.Warn("failed to delete backup object", "key", aws.ToString(obj.Key), "error", err)
				continue
			}
			deleted++
		}

		if !aws.ToBool(out.IsTruncated) {
			return deleted, nil
		}
		token = out.NextContinuationToken
	}
}
