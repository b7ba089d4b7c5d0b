package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, modeRange},
		{[]string{"range"}, modeRange},
		{[]string{"single"}, modeSingle},
		{[]string{"serve"}, modeServe},
	}
	for _, tt := range tests {
		got, err := parseMode(tt.args)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := parseMode([]string{"multiple"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("COLLATZ_STORE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("COLLATZ_LOG_LEVEL", "error")
	return dir
}

func TestRun_Range(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("COLLATZ_RANGE_FROM", "2")
	t.Setenv("COLLATZ_RANGE_TO", "30")

	require.NoError(t, run([]string{"range"}))

	data, err := os.ReadFile(filepath.Join(dir, "cache", "collatz_conjecture_6.txt"))
	require.NoError(t, err)
	assert.Equal(t, "3\n10\n5\n16\n8\n4\n2\n1", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "cache"))
	require.NoError(t, err)
	assert.Len(t, entries, 29)
}

func TestRun_Single(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("COLLATZ_SINGLE_START", "27")

	require.NoError(t, run([]string{"single"}))

	data, err := os.ReadFile(filepath.Join(dir, "cache", "collatz_conjecture_27.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "9232")
}

func TestRun_Errors(t *testing.T) {
	t.Run("serve without address", func(t *testing.T) {
		setupEnv(t)
		err := run([]string{"serve"})
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
	})

	t.Run("invalid range", func(t *testing.T) {
		setupEnv(t)
		t.Setenv("COLLATZ_RANGE_FROM", "9")
		t.Setenv("COLLATZ_RANGE_TO", "3")
		err := run(nil)
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
	})

	t.Run("unknown backend", func(t *testing.T) {
		setupEnv(t)
		t.Setenv("COLLATZ_STORE_BACKEND", "tape")
		err := run(nil)
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
	})
}
