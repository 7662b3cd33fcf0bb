package strategy

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
)

// LoadUniverse reads the tradable symbol list for a market from
// <dir>/universe_kr.csv or <dir>/universe_us.csv. Rows with
// enabled=false are excluded; a missing enabled column means enabled.
func LoadUniverse(dir string, market contracts.Market) ([]string, error) {
	path := filepath.Join(dir, fmt.Sprintf("universe_%s.csv", strings.ToLower(string(market))))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open universe file %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse universe file %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("universe file %s is empty", path)
	}

	header := records[0]
	symbolIdx, enabledIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.ToLower(col)) {
		case "symbol":
			symbolIdx = i
		case "enabled":
			enabledIdx = i
		}
	}
	if symbolIdx < 0 {
		return nil, fmt.Errorf("universe file %s has no symbol column", path)
	}

	symbols := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if symbolIdx >= len(row) {
			continue
		}
		symbol := strings.TrimSpace(row[symbolIdx])
		if symbol == "" {
			continue
		}
		if enabledIdx >= 0 && enabledIdx < len(row) {
			if strings.EqualFold(strings.TrimSpace(row[enabledIdx]), "false") {
				continue
			}
		}
		symbols = append(symbols, symbol)
	}

	return symbols, nil
}
