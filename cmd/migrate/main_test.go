package main

import (
	"errors"
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmigrations "github.com/wolfman30/aesthetic-leads/migrations"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

type fakeMigrator struct {
	upErr   error
	steps   []int
	forced  int
	version uint
	calls   []string
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Force(v int) error {
	f.forced = v
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, false, nil
}

func TestRun(t *testing.T) {
	logger := logging.Discard()

	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	require.NoError(t, run(m, nil, logger))
	assert.Equal(t, []string{"up"}, m.calls)

	m = &fakeMigrator{upErr: errors.New("syntax error")}
	assert.Error(t, run(m, []string{"up"}, logger))

	m = &fakeMigrator{}
	require.NoError(t, run(m, []string{"down"}, logger))
	require.NoError(t, run(m, []string{"down", "2"}, logger))
	assert.Equal(t, []int{-1, -2}, m.steps)
	assert.Error(t, run(m, []string{"down", "zero"}, logger))

	m = &fakeMigrator{}
	require.NoError(t, run(m, []string{"force", "2"}, logger))
	assert.Equal(t, 2, m.forced)
	assert.Error(t, run(m, []string{"force"}, logger))

	assert.NoError(t, run(&fakeMigrator{version: 2}, []string{"version"}, logger))
	assert.Error(t, run(&fakeMigrator{}, []string{"sideways"}, logger))
}

func TestMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(appmigrations.FS, "*.sql")
	require.NoError(t, err)
	sort.Strings(names)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, name := range names {
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", name)
		}
	}
	assert.Equal(t, ups, downs)

	body, err := fs.ReadFile(appmigrations.FS, "000002_create_rate_limit_counters.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "PRIMARY KEY (identifier, bucket_start)")
}
