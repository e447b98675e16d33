package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMarketService_UniverseFromConfig(t *testing.T) {
	conf := newTestConfig()
	conf.Scan.Symbols = []string{"ethusdt", "BTCUSDT", " solusdt ", "ETHUSDT", "DOGEUSDT", ""}
	conf.Scan.ExcludeSymbols = []string{"dogeusdt"}
	s := NewMarketService(newFakeMarket(), conf, zap.NewNop())

	universe, err := s.Universe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHUSDT", "BTCUSDT", "SOLUSDT"}, universe)
}

func TestMarketService_UniverseFromExchange(t *testing.T) {
	market := newFakeMarket()
	market.symbols = []string{"SOLUSDT", "BTCUSDT", "USDCUSDT", "ETHUSDT"}
	conf := newTestConfig()
	conf.Scan.ExcludeSymbols = []string{"USDCUSDT"}
	s := NewMarketService(market, conf, zap.NewNop())

	universe, err := s.Universe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}, universe)
	assert.Equal(t, "SOLUSDT", market.symbols[0])
}

func TestMarketService_FetchKlines(t *testing.T) {
	market := newFakeMarket()
	market.add("BTCUSDT", buildKlines(linearCloses(300, 1, 1)))
	market.errs["ETHUSDT"] = errors.New("timeout")
	s := NewMarketService(market, newTestConfig(), zap.NewNop())

	klines, err := s.FetchKlines(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Len(t, klines, 205)

	_, err = s.FetchKlines(context.Background(), "ETHUSDT")
	assert.ErrorContains(t, err, "ETHUSDT")
}
