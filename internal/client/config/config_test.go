package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	os.Args = append([]string{"opsboard"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestNew_Defaults(t *testing.T) {
	withArgs(t)

	c := New()
	assert.Equal(t, defaultServerBaseURL, c.ServerBaseURL)
	assert.Equal(t, defaultRequestTimeout, c.RequestTimeout)
	assert.NotEmpty(t, c.CredentialsFile)
}

func TestNew_JsonFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"server_base_url":"http://ops.internal:9000","request_timeout":"3s"}`), 0o600))
	withArgs(t, "-c", path)

	c := New()
	assert.Equal(t, "http://ops.internal:9000", c.ServerBaseURL)
	assert.Equal(t, 3*time.Second, c.RequestTimeout)
}

func TestNew_FlagsOverrideJson(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(
		`{"server_base_url":"http://from-json:9000"}`), 0o600))
	withArgs(t, "-c", path, "-a", "http://from-flag:9001", "-t", "5s")

	c := New()
	assert.Equal(t, "http://from-flag:9001", c.ServerBaseURL)
	assert.Equal(t, 5*time.Second, c.RequestTimeout)
}

func TestNew_UnreadableJsonKeepsDefaults(t *testing.T) {
	withArgs(t, "-c", filepath.Join(t.TempDir(), "missing.json"))

	c := New()
	assert.Equal(t, defaultServerBaseURL, c.ServerBaseURL)
}
