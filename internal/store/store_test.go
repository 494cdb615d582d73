package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops-claw-gang/eventcheck-go/internal/compare"
	"github.com/finops-claw-gang/eventcheck-go/internal/config"
	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/eventjson"
)

func examplePair(t *testing.T) (domain.Record, domain.Record) {
	t.Helper()
	a, b, err := eventjson.ParsePair(eventjson.Example())
	require.NoError(t, err)
	return a, b
}

func TestFingerprint_DependsOnFieldOrder(t *testing.T) {
	t.Parallel()
	xy, err := eventjson.ParseRecord([]byte(`{"x": 1, "y": 1}`))
	require.NoError(t, err)
	yx, err := eventjson.ParseRecord([]byte(`{"y": 1, "x": 1}`))
	require.NoError(t, err)
	b := domain.NewRecord()

	fpXY, err := Fingerprint(xy, b, nil)
	require.NoError(t, err)
	fpYX, err := Fingerprint(yx, b, nil)
	require.NoError(t, err)
	assert.NotEqual(t, fpXY, fpYX)
	assert.Len(t, fpXY, 64)

	// The two orders report issues in different orders, so neither may be
	// served the other's stored result.
	ctx := context.Background()
	m := NewMemory(0)
	entry, err := NewEntry(xy, b, nil, compare.Compare(xy, b))
	require.NoError(t, err)
	_, err = m.Save(ctx, entry)
	require.NoError(t, err)
	_, err = m.FindByFingerprint(ctx, fpYX)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFingerprint_NormalizesValues(t *testing.T) {
	t.Parallel()
	a1, err := eventjson.ParseRecord([]byte(`{"x": 1, "y": "two"}`))
	require.NoError(t, err)
	a2, err := eventjson.ParseRecord([]byte(`{"x": 1.0, "y": "two"}`))
	require.NoError(t, err)

	fp1, err := Fingerprint(a1, domain.NewRecord(), nil)
	require.NoError(t, err)
	fp2, err := Fingerprint(a2, domain.NewRecord(), nil)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}

func TestFingerprint_DependsOnSideAndAliases(t *testing.T) {
	t.Parallel()
	a, b := examplePair(t)

	ab, err := Fingerprint(a, b, domain.DefaultAliasRules())
	require.NoError(t, err)
	ba, err := Fingerprint(b, a, domain.DefaultAliasRules())
	require.NoError(t, err)
	noAlias, err := Fingerprint(a, b, nil)
	require.NoError(t, err)

	assert.NotEqual(t, ab, ba)
	assert.NotEqual(t, ab, noAlias)
}

func TestNewEntry_KeepsFieldOrder(t *testing.T) {
	t.Parallel()
	a, err := eventjson.ParseRecord([]byte(`{"b": 2, "a": 1}`))
	require.NoError(t, err)
	b := domain.NewRecord()

	e, err := NewEntry(a, b, nil, compare.Compare(a, b))
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"a":1}`, string(e.A))
	assert.Equal(t, `{}`, string(e.B))
	assert.Empty(t, e.ID)
	assert.Equal(t, domain.GradeMedium, e.Result.Grade)

	// Re-running the stored events reproduces the stored result.
	storedA, storedB, err := eventjson.ParsePair(e.A, e.B)
	require.NoError(t, err)
	assert.Equal(t, e.Result, compare.Compare(storedA, storedB))
}

func TestMemory_SaveGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory(0)
	fixed := time.Date(2025, 11, 22, 15, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	a, b := examplePair(t)
	e, err := NewEntry(a, b, domain.DefaultAliasRules(), compare.Compare(a, b))
	require.NoError(t, err)

	saved, err := m.Save(ctx, e)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, fixed, saved.CreatedAt)

	got, err := m.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	byPrint, err := m.FindByFingerprint(ctx, e.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, byPrint.ID)
	assert.Equal(t, 1, m.Len())
}

func TestMemory_NotFound(t *testing.T) {
	t.Parallel()
	m := NewMemory(0)
	_, err := m.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.FindByFingerprint(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_KeepsGivenID(t *testing.T) {
	t.Parallel()
	m := NewMemory(0)
	saved, err := m.Save(context.Background(), Entry{ID: "fixed-id"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", saved.ID)
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory(time.Hour)
	now := time.Date(2025, 11, 22, 15, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	a, b := examplePair(t)
	e, err := NewEntry(a, b, domain.DefaultAliasRules(), compare.Compare(a, b))
	require.NoError(t, err)
	saved, err := m.Save(ctx, e)
	require.NoError(t, err)

	now = now.Add(59 * time.Minute)
	_, err = m.Get(ctx, saved.ID)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.FindByFingerprint(ctx, saved.Fingerprint)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, m.Len())

	// The next save drops the expired entry and its fingerprint.
	_, err = m.Save(ctx, Entry{ID: "fresh"})
	require.NoError(t, err)
	m.mu.RLock()
	_, kept := m.byID[saved.ID]
	_, indexed := m.byPrint[saved.Fingerprint]
	m.mu.RUnlock()
	assert.False(t, kept)
	assert.False(t, indexed)
}

func TestOpen_MemoryWithoutRedis(t *testing.T) {
	t.Parallel()
	s, closeStore, err := Open(context.Background(), config.Config{ResultTTL: 90 * time.Minute})
	require.NoError(t, err)
	defer closeStore()

	m, ok := s.(*Memory)
	require.True(t, ok)
	assert.Equal(t, 90*time.Minute, m.ttl)
}

func TestOpen_UnreachableRedis(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := Open(ctx, config.Config{RedisAddr: "127.0.0.1:1", RedisPassword: "s3cret", ResultTTL: time.Minute})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

// TestRedis_Integration requires a running Redis.
// We skip if connection fails.
func TestRedis_Integration(t *testing.T) {
	r := NewRedis("localhost:6379", "", 0, time.Minute)
	defer r.Close()
	ctx := context.Background()
	if err := r.Ping(ctx); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}

	a, b := examplePair(t)
	e, err := NewEntry(a, b, domain.DefaultAliasRules(), compare.Compare(a, b))
	require.NoError(t, err)

	saved, err := r.Save(ctx, e)
	require.NoError(t, err)

	got, err := r.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Fingerprint, got.Fingerprint)
	assert.Equal(t, saved.Result.Grade, got.Result.Grade)
	assert.Equal(t, saved.Result.Messages(), got.Result.Messages())
	assert.JSONEq(t, string(saved.A), string(got.A))

	byPrint, err := r.FindByFingerprint(ctx, saved.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, byPrint.ID)

	_, err = r.Get(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}
