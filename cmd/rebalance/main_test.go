package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunRebalance_PlanOutput(t *testing.T) {
	dir := t.TempDir()
	opts := rebalanceOptions{
		positionsPath: writeCSV(t, dir, "positions.csv",
			"ticker,asset_type,quantity,price\nAAA,STOCK,10,10\n"),
		targetsPath: writeCSV(t, dir, "targets.csv",
			"ticker,weight\nAAA,0.5\nBBB,0.5\n"),
		pricesPath: writeCSV(t, dir, "prices.csv",
			"ticker,price\nAAA,10\nBBB,20\n"),
		cash: 100,
		mode: "buy",
	}

	var out bytes.Buffer
	require.NoError(t, runRebalance(opts, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "BUY,BBB,5,20,100", lines[0])
	assert.Equal(t, "CASH_BEFORE,100", lines[1])
	assert.Equal(t, "CASH_AFTER,0", lines[2])
}

func TestRunRebalance_ShowPost(t *testing.T) {
	dir := t.TempDir()
	opts := rebalanceOptions{
		positionsPath: writeCSV(t, dir, "positions.csv",
			"ticker,asset_type,quantity,price\nAAA,STOCK,10,10\n"),
		targetsPath: writeCSV(t, dir, "targets.csv",
			"ticker,weight\nAAA,0.5\nBBB,0.5\n"),
		pricesPath: writeCSV(t, dir, "prices.csv",
			"ticker,price\nAAA,10\nBBB,10\n"),
		cash:     0,
		mode:     "TRADE",
		showPost: true,
	}

	var out bytes.Buffer
	require.NoError(t, runRebalance(opts, &out))

	got := out.String()
	assert.Contains(t, got, "SELL,AAA,5,10,50")
	assert.Contains(t, got, "BUY,BBB,5,10,50")
	assert.Contains(t, got, "POST_PORTFOLIO\n")
	assert.Contains(t, got, "POST_CASH,0")
	assert.Contains(t, got, "POST_POSITION,AAA,STOCK,5,10,50")
	assert.Contains(t, got, "POST_POSITION,BBB,STOCK,5,10,50")
	assert.Contains(t, got, "POST_TOTAL_VALUE,100")
}

func TestRunRebalance_InvalidMode(t *testing.T) {
	dir := t.TempDir()
	opts := rebalanceOptions{
		positionsPath: writeCSV(t, dir, "positions.csv",
			"ticker,asset_type,quantity,price\nAAA,STOCK,10,10\n"),
		targetsPath: writeCSV(t, dir, "targets.csv", "ticker,weight\nAAA,1\n"),
		pricesPath:  writeCSV(t, dir, "prices.csv", "ticker,price\nAAA,10\n"),
		cash:        0,
		mode:        "HOLD",
	}

	var out bytes.Buffer
	err := runRebalance(opts, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}
