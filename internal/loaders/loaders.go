// Package loaders reads positions, target weights and price sheets from CSV
// sources. Numbers are accepted in both plain ("1234.56") and pt-BR
// ("1.234,56") formats, since exported broker sheets commonly use the latter.
package loaders

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/rebalancer/internal/domain"
	"github.com/aristath/rebalancer/internal/targets"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// ParseDecimal parses a decimal that may use pt-BR separators:
// "1.234,56" and "1234,56" both parse to 1234.56.
func ParseDecimal(s string) (float64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if v == "" {
		return 0, fmt.Errorf("empty number")
	}

	switch {
	case strings.Contains(v, ",") && strings.Contains(v, "."):
		v = strings.ReplaceAll(v, ".", "")
		v = strings.ReplaceAll(v, ",", ".")
	case strings.Contains(v, ","):
		v = strings.ReplaceAll(v, ",", ".")
	}

	return strconv.ParseFloat(v, 64)
}

// LoadPositionsCSV reads positions from a CSV with columns
// ticker, asset_type, quantity, price.
func LoadPositionsCSV(path string) ([]domain.Position, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open positions csv: %w", err)
	}
	defer f.Close()
	return parsePositions(f)
}

// ParsePositionsCSV reads positions from an already-open CSV stream, e.g. an
// uploaded file.
func ParsePositionsCSV(r io.Reader) ([]domain.Position, error) {
	return parsePositions(r)
}

func parsePositions(r io.Reader) ([]domain.Position, error) {
	rows, header, err := readRecords(r)
	if err != nil {
		return nil, fmt.Errorf("positions csv: %w", err)
	}
	for _, col := range []string{"ticker", "asset_type", "quantity", "price"} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("positions csv must have columns: asset_type, price, quantity, ticker")
		}
	}

	out := make([]domain.Position, 0, len(rows))
	for _, row := range rows {
		ticker := domain.NormalizeTicker(row[header["ticker"]])
		if ticker == "" {
			return nil, fmt.Errorf("positions csv: empty ticker")
		}

		qty, err := ParseDecimal(row[header["quantity"]])
		if err != nil {
			return nil, fmt.Errorf("positions csv: invalid quantity for %s: %w", ticker, err)
		}
		price, err := ParseDecimal(row[header["price"]])
		if err != nil {
			return nil, fmt.Errorf("positions csv: invalid price for %s: %w", ticker, err)
		}

		out = append(out, domain.Position{
			Ticker:    ticker,
			AssetType: domain.NormalizeAssetType(row[header["asset_type"]]),
			Quantity:  qty,
			Price:     price,
		})
	}
	return out, nil
}

// LoadTargetsCSV reads a target allocation from a CSV with columns
// ticker, weight.
func LoadTargetsCSV(path string) (targets.TargetAllocation, error) {
	f, err := os.Open(path)
	if err != nil {
		return targets.TargetAllocation{}, fmt.Errorf("failed to open targets csv: %w", err)
	}
	defer f.Close()

	rows, header, err := readRecords(f)
	if err != nil {
		return targets.TargetAllocation{}, fmt.Errorf("targets csv: %w", err)
	}
	if _, ok := header["ticker"]; !ok {
		return targets.TargetAllocation{}, fmt.Errorf("targets csv must have columns: ticker, weight")
	}
	if _, ok := header["weight"]; !ok {
		return targets.TargetAllocation{}, fmt.Errorf("targets csv must have columns: ticker, weight")
	}

	weights := make(map[string]float64)
	for _, row := range rows {
		ticker := domain.NormalizeTicker(row[header["ticker"]])
		if ticker == "" {
			continue
		}
		w := 0.0
		if raw := strings.TrimSpace(row[header["weight"]]); raw != "" {
			w, err = ParseDecimal(raw)
			if err != nil {
				return targets.TargetAllocation{}, fmt.Errorf("targets csv: invalid weight for %s: %w", ticker, err)
			}
		}
		weights[ticker] = w
	}
	return targets.New(weights), nil
}

// LoadPricesCSV reads a price sheet from a local path or an http(s) URL.
// The sheet must have a ticker column and at least one of price or
// previous_close; price wins when both parse to a positive value. Rows with
// no usable price are skipped rather than failing the whole sheet.
func LoadPricesCSV(pathOrURL string) (map[string]float64, error) {
	source := normalizeSource(pathOrURL)

	if isURL(source) {
		resp, err := httpClient.Get(source)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch prices csv: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to fetch prices csv: status %d", resp.StatusCode)
		}
		return parsePrices(resp.Body)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open prices csv: %w", err)
	}
	defer f.Close()
	return parsePrices(f)
}

func parsePrices(r io.Reader) (map[string]float64, error) {
	rows, header, err := readRecords(r)
	if err != nil {
		return nil, fmt.Errorf("prices csv: %w", err)
	}
	if _, ok := header["ticker"]; !ok {
		return nil, fmt.Errorf("prices csv must have column: ticker")
	}
	priceIdx, hasPrice := header["price"]
	prevIdx, hasPrev := header["previous_close"]
	if !hasPrice && !hasPrev {
		return nil, fmt.Errorf("prices csv must have column: price and/or previous_close")
	}

	out := make(map[string]float64)
	for _, row := range rows {
		ticker := domain.NormalizeTicker(row[header["ticker"]])
		if ticker == "" {
			continue
		}

		px := 0.0
		if hasPrice {
			if v, err := ParseDecimal(row[priceIdx]); err == nil && v > 0 {
				px = v
			}
		}
		if px == 0 && hasPrev {
			if v, err := ParseDecimal(row[prevIdx]); err == nil && v > 0 {
				px = v
			}
		}
		if px > 0 {
			out[ticker] = px
		}
	}
	return out, nil
}

// ResolvePrices builds the authoritative price map for a position set from a
// price sheet, falling back to each position's stale reference price when the
// sheet misses its ticker. The returned fallback list names the tickers that
// needed the stale price, so callers can surface them.
func ResolvePrices(positions []domain.Position, sheet map[string]float64) (domain.PriceMap, []string, error) {
	out := make(domain.PriceMap, len(positions))
	var fallback []string

	for _, p := range positions {
		ticker := domain.NormalizeTicker(p.Ticker)
		if ticker == "" {
			continue
		}

		px, ok := sheet[ticker]
		if !ok {
			px = p.Price
			fallback = append(fallback, ticker)
		}
		if px <= 0 {
			return nil, nil, fmt.Errorf("resolved price must be > 0 for ticker: %s", ticker)
		}
		out[ticker] = px
	}

	sort.Strings(fallback)
	return out, fallback, nil
}

// WriteTargetsCSV writes a target allocation as a ticker,weight CSV.
func WriteTargetsCSV(target targets.TargetAllocation, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create targets csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ticker", "weight"}); err != nil {
		return err
	}
	for _, ticker := range target.Tickers() {
		if err := w.Write([]string{ticker, strconv.FormatFloat(target.Weight(ticker), 'f', 12, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// readRecords reads all CSV rows and returns them along with a lower-cased
// header name → column index map. A UTF-8 BOM on the first header cell is
// stripped.
func readRecords(r io.Reader) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("missing header row")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		name = strings.TrimPrefix(name, "\uFEFF")
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return records[1:], header, nil
}

// normalizeSource repairs sources pasted with backslashes
// ("https:\\host\sheet.csv") before deciding between URL and file path.
func normalizeSource(source string) string {
	s := strings.TrimSpace(source)

	low := strings.ToLower(s)
	if strings.HasPrefix(low, `https:\`) {
		s = "https://" + strings.TrimLeft(s[6:], `\/`)
	} else if strings.HasPrefix(low, `http:\`) {
		s = "http://" + strings.TrimLeft(s[5:], `\/`)
	}

	return strings.ReplaceAll(s, `\`, "/")
}

func isURL(s string) bool {
	low := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://")
}
