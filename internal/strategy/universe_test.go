package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
)

func writeUniverse(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadUniverse(t *testing.T) {
	dir := t.TempDir()
	writeUniverse(t, dir, "universe_kr.csv", "symbol,name,enabled\n005930,삼성전자,true\n000660,SK하이닉스,true\n035420,NAVER,false\n")

	symbols, err := LoadUniverse(dir, contracts.MarketKR)
	require.NoError(t, err)
	assert.Equal(t, []string{"005930", "000660"}, symbols)
}

func TestLoadUniverseEnabledDefaultsTrue(t *testing.T) {
	dir := t.TempDir()
	writeUniverse(t, dir, "universe_us.csv", "symbol\nSPY\nQQQ\n")

	symbols, err := LoadUniverse(dir, contracts.MarketUS)
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "QQQ"}, symbols)
}

func TestLoadUniverseMissingFile(t *testing.T) {
	_, err := LoadUniverse(t.TempDir(), contracts.MarketKR)
	assert.Error(t, err)
}

func TestLoadUniverseMissingSymbolColumn(t *testing.T) {
	dir := t.TempDir()
	writeUniverse(t, dir, "universe_kr.csv", "ticker,enabled\n005930,true\n")

	_, err := LoadUniverse(dir, contracts.MarketKR)
	assert.Error(t, err)
}
