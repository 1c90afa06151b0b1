package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dukerupert/grocerylist/internal/config"
	"github.com/dukerupert/grocerylist/internal/database"
	"github.com/dukerupert/grocerylist/internal/model"
	"github.com/dukerupert/grocerylist/internal/postgres"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// setupStore starts a shared PostgreSQL container once per test run, applies
// the migrations and returns a store over a fresh pool with an empty table.
func setupStore(t *testing.T) *postgres.ItemStore {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}

	once.Do(func() {
		sharedDSN, initErr = startContainer()
	})
	if initErr != nil {
		t.Fatalf("failed to set up postgres: %v", initErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.OpenPostgres(ctx, config.DatastoreConfig{EndpointURL: sharedDSN})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE grocery_items`)
	require.NoError(t, err)

	return postgres.NewItemStore(pool)
}

func startContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "grocery",
			"POSTGRES_PASSWORD": "grocery",
			"POSTGRES_DB":       "grocery",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("get mapped port: %w", err)
	}

	return fmt.Sprintf("postgres://grocery:grocery@%s:%s/grocery?sslmode=disable", host, port.Port()), nil
}

func milk() model.ItemFields {
	return model.ItemFields{
		Name:      model.Ptr("Milk"),
		Quantity:  model.Ptr("2"),
		Category:  model.Ptr("Dairy"),
		Priority:  model.Ptr(model.PriorityLow),
		Completed: model.Ptr(false),
	}
}

func TestItemStore_CreateAndGet(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, milk())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, milk(), created.Fields())
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Minute)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.Fields(), got.Fields())
}

func TestItemStore_GetMissing(t *testing.T) {
	s := setupStore(t)

	got, err := s.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestItemStore_GetMalformedID(t *testing.T) {
	s := setupStore(t)

	got, err := s.Get(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "22P02")
}

func TestItemStore_UpdateNullsOmittedFields(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, milk())
	require.NoError(t, err)

	updated, err := s.Update(ctx, created.ID, model.ItemFields{Completed: model.Ptr(true)})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.True(t, updated.IsCompleted())
	assert.Nil(t, updated.Name)
	assert.Nil(t, updated.Quantity)
	assert.Nil(t, updated.Category)
	assert.Nil(t, updated.Priority)
}

func TestItemStore_UpdateMissing(t *testing.T) {
	s := setupStore(t)

	got, err := s.Update(context.Background(), "00000000-0000-0000-0000-000000000000", milk())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestItemStore_Patch(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, milk())
	require.NoError(t, err)

	patched, err := s.Patch(ctx, created.ID, model.ItemFields{Completed: model.Ptr(true)})
	require.NoError(t, err)
	require.NotNil(t, patched)
	assert.True(t, patched.IsCompleted())
	assert.Equal(t, "Milk", model.Str(patched.Name))
	assert.Equal(t, "Dairy", model.Str(patched.Category))
}

func TestItemStore_ListAndDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	want := map[string]bool{}
	for _, name := range []string{"Milk", "Bread", "Eggs"} {
		item, err := s.Create(ctx, model.ItemFields{Name: model.Ptr(name)})
		require.NoError(t, err)
		want[item.ID] = true
	}

	items, err := s.List(ctx)
	require.NoError(t, err)
	got := map[string]bool{}
	for _, item := range items {
		got[item.ID] = true
	}
	assert.Equal(t, want, got)

	for id := range want {
		require.NoError(t, s.Delete(ctx, id))
		require.NoError(t, s.Delete(ctx, id), "second delete must also succeed")
	}

	items, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCredentialOverridesPassword(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.Ping(context.Background()))

	cfg, err := pgxpool.ParseConfig(sharedDSN)
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://grocery:wrong@%s:%d/grocery?sslmode=disable", cfg.ConnConfig.Host, cfg.ConnConfig.Port)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.OpenPostgres(ctx, config.DatastoreConfig{EndpointURL: dsn, Credential: "grocery"})
	require.NoError(t, err)
	pool.Close()
}
