package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectsMode(t *testing.T) {
	col, err := New(Config{Mode: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, col)

	col, err = New(Config{Mode: "public", UserAgent: "reddit-topics-test/1.0"})
	require.NoError(t, err)
	assert.IsType(t, &PublicClient{}, col)
}

func TestNewPublicModeRequiresUserAgent(t *testing.T) {
	_, err := New(Config{Mode: "public"})
	assert.Error(t, err)
}

func TestNewUnknownMode(t *testing.T) {
	_, err := New(Config{Mode: "carrier-pigeon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown collector mode")
}
