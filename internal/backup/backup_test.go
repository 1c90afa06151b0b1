package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dukerupert/grocerylist/internal/model"
)

type mockObject struct {
	data     []byte
	modified time.Time
}

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string]mockObject
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string]mockObject)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	data, _ := io.ReadAll(input.Body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[*input.Key] = mockObject{data: data, modified: time.Now().UTC()}
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[*input.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := aws.ToString(input.Prefix)
	var keys []string
	for k := range m.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		mod := m.objects[k].modified
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), LastModified: &mod})
	}
	return out, nil
}

type staticSource struct {
	items []model.GroceryItem
	err   error
}

func (s staticSource) List(context.Context) ([]model.GroceryItem, error) {
	return s.items, s.err
}

var testS3 = S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(src Source, cb StatusCallback) (*Manager, *mockS3Client) {
	m := NewManager(Config{S3: testS3, Prefix: "snapshots", Passphrase: "pass"}, src, cb, quietLogger())
	mock := newMockS3()
	m.client = mock
	return m, mock
}

func TestManagerStateLifecycle(t *testing.T) {
	m := NewManager(Config{}, nil, nil, quietLogger())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}
	if m.Enabled() {
		t.Error("expected disabled manager")
	}

	m2 := NewManager(Config{S3: testS3}, nil, nil, quietLogger())
	if m2.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m2.Status().State, StateIdle)
	}
}

func TestRunNowAndFetch(t *testing.T) {
	items := []model.GroceryItem{
		{ID: "a", Name: model.Ptr("Milk"), Completed: model.Ptr(false)},
		{ID: "b", Name: model.Ptr("Bread")},
	}

	var mu sync.Mutex
	var states []State
	m, mock := newTestManager(staticSource{items: items}, func(s Status) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	})

	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	if _, ok := mock.objects[key]; !ok {
		t.Fatalf("object %q not uploaded", key)
	}
	if bytes.Contains(mock.objects[key].data, []byte("Milk")) {
		t.Error("uploaded object is not encrypted")
	}

	st := m.Status()
	if st.State != StateIdle || st.LastKey != key || st.LastBackup == nil {
		t.Errorf("unexpected status %+v", st)
	}

	mu.Lock()
	if len(states) != 2 || states[0] != StateRunning || states[1] != StateIdle {
		t.Errorf("callback states = %v, want [running idle]", states)
	}
	mu.Unlock()

	snap, err := m.Fetch(context.Background(), key)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(snap.Items) != 2 || snap.Items[0].ID != "a" || model.Str(snap.Items[1].Name) != "Bread" {
		t.Errorf("unexpected snapshot items %+v", snap.Items)
	}
}

func TestRunNowErrors(t *testing.T) {
	m := NewManager(Config{}, staticSource{}, nil, quietLogger())
	if _, err := m.RunNow(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}

	m, _ = newTestManager(staticSource{err: errors.New("db down")}, nil)
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected error from source")
	}
	if st := m.Status(); st.State != StateError || st.Error == "" {
		t.Errorf("unexpected status %+v", st)
	}

	m, mock := newTestManager(staticSource{}, nil)
	mock.putErr = errors.New("access denied")
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestFetchWrongPassphrase(t *testing.T) {
	m, mock := newTestManager(staticSource{}, nil)
	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run now: %v", err)
	}

	other := NewManager(Config{S3: testS3, Passphrase: "other"}, nil, nil, quietLogger())
	other.client = mock
	if _, err := other.Fetch(context.Background(), key); err == nil {
		t.Error("expected decrypt error")
	}
}

func TestCleanup(t *testing.T) {
	m, mock := newTestManager(staticSource{}, nil)
	old := time.Now().UTC().Add(-48 * time.Hour)
	mock.objects["snapshots/old.json.enc"] = mockObject{modified: old}
	mock.objects["snapshots/new.json.enc"] = mockObject{modified: time.Now().UTC()}
	mock.objects["elsewhere/old.json.enc"] = mockObject{modified: old}

	n, err := m.Cleanup(context.Background(), time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d, want 1", n)
	}
	if _, ok := mock.objects["snapshots/old.json.enc"]; ok {
		t.Error("old snapshot should be deleted")
	}
	if _, ok := mock.objects["snapshots/new.json.enc"]; !ok {
		t.Error("new snapshot should be kept")
	}
	if _, ok := mock.objects["elsewhere/old.json.enc"]; !ok {
		t.Error("objects outside the prefix must not be touched")
	}
}

func TestManagerStopSafety(t *testing.T) {
	m := NewManager(Config{S3: testS3, Interval: time.Hour}, staticSource{}, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()
	m.Stop()

	// Double stop should not panic
	m.Stop()
}

func TestManagerScheduleRuns(t *testing.T) {
	m, mock := newTestManager(staticSource{}, nil)
	m.cfg.Interval = 10 * time.Millisecond

	m.Start(context.Background())
	defer m.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mock.mu.Lock()
		n := len(mock.objects)
		mock.mu.Unlock()
		if n > 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("scheduled backup never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManagerDisabledNoStart(t *testing.T) {
	m := NewManager(Config{}, nil, nil, quietLogger())
	m.Start(context.Background())
	m.Stop()
}

// memTarget is an in-memory restore target.
type memTarget struct {
	items  map[string]model.GroceryItem
	nextID int
}

func (m *memTarget) List(context.Context) ([]model.GroceryItem, error) {
	var out []model.GroceryItem
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, nil
}

func (m *memTarget) Create(_ context.Context, f model.ItemFields) (*model.GroceryItem, error) {
	m.nextID++
	item := model.GroceryItem{
		ID:        fmt.Sprintf("new-%d", m.nextID),
		Name:      f.Name,
		Quantity:  f.Quantity,
		Category:  f.Category,
		Priority:  f.Priority,
		Completed: f.Completed,
	}
	m.items[item.ID] = item
	return &item, nil
}

func (m *memTarget) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func TestRestoreReplacesItems(t *testing.T) {
	items := []model.GroceryItem{
		{ID: "a", Name: model.Ptr("Milk"), Completed: model.Ptr(true)},
		{ID: "b", Name: model.Ptr("Bread")},
	}
	m, _ := newTestManager(staticSource{items: items}, nil)
	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run now: %v", err)
	}

	target := &memTarget{items: map[string]model.GroceryItem{
		"x": {ID: "x", Name: model.Ptr("Eggs")},
	}}
	n, err := m.Restore(context.Background(), key, target)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 2 {
		t.Errorf("restored %d, want 2", n)
	}
	if _, ok := target.items["x"]; ok {
		t.Error("existing item should be replaced")
	}

	var names []string
	for _, item := range target.items {
		names = append(names, model.Str(item.Name))
		if model.Str(item.Name) == "Milk" && !item.IsCompleted() {
			t.Error("restored Milk should keep completed")
		}
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "Bread" || names[1] != "Milk" {
		t.Errorf("restored names = %v", names)
	}
}

func TestRestoreMissingKeyLeavesItems(t *testing.T) {
	m, _ := newTestManager(staticSource{}, nil)
	target := &memTarget{items: map[string]model.GroceryItem{
		"x": {ID: "x", Name: model.Ptr("Eggs")},
	}}

	if _, err := m.Restore(context.Background(), "snapshots/missing.json.enc", target); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(target.items) != 1 {
		t.Errorf("items changed on failed restore: %v", target.items)
	}

	disabled := NewManager(Config{}, nil, nil, quietLogger())
	if _, err := disabled.Restore(context.Background(), "k", target); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}
