package prices

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_GetFetchesAndCaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("ticker,price\nAAA,10\n"), 0o644))

	svc := NewService(path, time.Hour, zerolog.Nop())

	sheet, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAA": 10}, sheet)

	// A source change on disk is not visible until the TTL expires.
	require.NoError(t, os.WriteFile(path, []byte("ticker,price\nAAA,99\n"), 0o644))
	sheet, err = svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 10.0, sheet["AAA"])

	// An explicit refresh picks it up.
	require.NoError(t, svc.Refresh())
	sheet, err = svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 99.0, sheet["AAA"])
}

func TestService_GetReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte("ticker,price\nAAA,10\n"), 0o644))

	svc := NewService(path, time.Hour, zerolog.Nop())

	first, err := svc.Get()
	require.NoError(t, err)
	first["AAA"] = 0

	second, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 10.0, second["AAA"])
}

func TestService_Unconfigured(t *testing.T) {
	svc := NewService("", time.Hour, zerolog.Nop())

	assert.False(t, svc.Configured())
	_, err := svc.Get()
	assert.Error(t, err)
}
