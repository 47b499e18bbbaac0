package loaders

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/targets"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "1234.56", want: 1234.56},
		{input: "1.234,56", want: 1234.56},
		{input: "1234,56", want: 1234.56},
		{input: " 10 ", want: 10},
		{input: "1 234,5", want: 1234.5},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecimal(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLoadPositionsCSV(t *testing.T) {
	path := writeFile(t, "positions.csv",
		"ticker,asset_type,quantity,price\n"+
			"aaa,stock,10,\"10,50\"\n"+
			"BBB,fii,\"1.000,5\",20\n")

	positions, err := LoadPositionsCSV(path)
	require.NoError(t, err)

	require.Len(t, positions, 2)
	assert.Equal(t, domain.Position{Ticker: "AAA", AssetType: "STOCK", Quantity: 10, Price: 10.5}, positions[0])
	assert.Equal(t, domain.Position{Ticker: "BBB", AssetType: "FII", Quantity: 1000.5, Price: 20}, positions[1])
}

func TestLoadPositionsCSV_MissingColumn(t *testing.T) {
	path := writeFile(t, "positions.csv", "ticker,quantity\nAAA,10\n")

	_, err := LoadPositionsCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must have columns")
}

func TestLoadPositionsCSV_EmptyTicker(t *testing.T) {
	path := writeFile(t, "positions.csv", "ticker,asset_type,quantity,price\n ,STOCK,1,1\n")

	_, err := LoadPositionsCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty ticker")
}

func TestLoadTargetsCSV(t *testing.T) {
	path := writeFile(t, "targets.csv", "ticker,weight\naaa,0.6\nBBB,\"0,4\"\n")

	target, err := LoadTargetsCSV(path)
	require.NoError(t, err)

	assert.Equal(t, 0.6, target.Weight("AAA"))
	assert.Equal(t, 0.4, target.Weight("BBB"))
	assert.Equal(t, 0.0, target.Weight("CCC"))
}

func TestWriteTargetsCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.csv")
	target := targets.New(map[string]float64{"AAA": 0.25, "BBB": 0.75})

	require.NoError(t, WriteTargetsCSV(target, path))

	loaded, err := LoadTargetsCSV(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, loaded.Weight("AAA"), 1e-9)
	assert.InDelta(t, 0.75, loaded.Weight("BBB"), 1e-9)
}

func TestLoadPricesCSV_PreviousCloseFallback(t *testing.T) {
	path := writeFile(t, "prices.csv",
		"ticker,price,previous_close\n"+
			"AAA,10,9\n"+
			"BBB,,21\n"+ // no live price, fall back to previous close
			"CCC,-1,30\n"+ // negative live price is unusable
			"DDD,,\n") // no usable price at all, row skipped

	prices, err := LoadPricesCSV(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"AAA": 10, "BBB": 21, "CCC": 30}, prices)
}

func TestLoadPricesCSV_RequiresPriceColumn(t *testing.T) {
	path := writeFile(t, "prices.csv", "ticker,volume\nAAA,100\n")

	_, err := LoadPricesCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price and/or previous_close")
}

func TestLoadPricesCSV_FromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ticker,price\nAAA,12.5\n"))
	}))
	defer srv.Close()

	prices, err := LoadPricesCSV(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"AAA": 12.5}, prices)
}

func TestResolvePrices_FallsBackToPositionPrice(t *testing.T) {
	positions := []domain.Position{
		{Ticker: "AAA", AssetType: "STOCK", Quantity: 10, Price: 9},
		{Ticker: "BBB", AssetType: "STOCK", Quantity: 5, Price: 33},
	}
	sheet := map[string]float64{"AAA": 10}

	prices, fallback, err := ResolvePrices(positions, sheet)
	require.NoError(t, err)

	assert.Equal(t, domain.PriceMap{"AAA": 10, "BBB": 33}, prices)
	assert.Equal(t, []string{"BBB"}, fallback)
}

func TestResolvePrices_RejectsUnresolvablePrice(t *testing.T) {
	positions := []domain.Position{{Ticker: "AAA", AssetType: "STOCK", Quantity: 10, Price: 0}}

	_, _, err := ResolvePrices(positions, map[string]float64{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AAA")
}

func TestNormalizeSource_BackslashURL(t *testing.T) {
	assert.Equal(t, "https://host/sheet.csv", normalizeSource(`https:\\host\sheet.csv`))
	assert.Equal(t, "http://host/sheet.csv", normalizeSource(`http:\\host\sheet.csv`))
	assert.Equal(t, "data/prices.csv", normalizeSource("data/prices.csv"))
}
