package engine

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openalpha/betexchange/internal/config"
)

var operatorAddr = common.HexToAddress("0xop00000000000000000000000000000000000001")

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Operator: config.OperatorConfig{Address: operatorAddr.Hex()},
		Limits: config.LimitsConfig{
			StakeMin: 1,
			StakeMax: 1_000_000_000,
			OddsMax:  100_000,
		},
		Exposure: config.ExposureConfig{
			ImbalanceMultiple: 5,
			CheckInterval:     time.Minute,
		},
		Store: config.StoreConfig{DataDir: t.TempDir()},
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := New(testConfig(t), logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(e.Stop)
	return e
}
