package aggregate

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"liquidityPool/internal/events"
	"liquidityPool/internal/model"
	"liquidityPool/internal/state"
	"liquidityPool/internal/storage"
)

const baseTS = 1_700_000_100

var (
	testPool   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testAssetX = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testAssetY = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	testTrader = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

type captureSink struct {
	pools   []model.PoolInfo
	metrics []model.PoolWindowMetrics
}

func (s *captureSink) UpsertPools(_ context.Context, pools []model.PoolInfo) error {
	s.pools = append(s.pools, pools...)
	return nil
}

func (s *captureSink) UpsertWindowMetrics(_ context.Context, metrics []model.PoolWindowMetrics) error {
	s.metrics = append(s.metrics, metrics...)
	return nil
}

type fixedDecimals map[common.Address]uint8

func (f fixedDecimals) Decimals(_ context.Context, asset common.Address) (uint8, error) {
	return f[asset], nil
}

func writeJournal(t *testing.T, path string, first uint64, evs []events.Event, offsets []int64) {
	t.Helper()
	encoder, err := events.NewEncoder()
	if err != nil {
		t.Fatalf("encoder: %v", err)
	}
	sink := storage.NewJsonlStorage(path)
	for i, ev := range evs {
		record, err := encoder.Encode(first+uint64(i), time.Unix(baseTS+offsets[i], 0), ev)
		if err != nil {
			t.Fatalf("encode %s: %v", ev.Name(), err)
		}
		if err := sink.PutLogBatch(context.Background(), []model.LogRecord{record}); err != nil {
			t.Fatalf("write journal: %v", err)
		}
	}
}

func newJournalSource(t *testing.T, path string) *JournalSource {
	t.Helper()
	decoder, err := events.NewDecoder(events.NewPoolMetaCache())
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	return &JournalSource{Path: path, Decoder: decoder}
}

func TestAggregatorWindowsAndResume(t *testing.T) {
	dir := t.TempDir()
	journal := filepath.Join(dir, "journal.jsonl")
	progress := &state.ProgressFile{Path: filepath.Join(dir, "report_state.json")}

	writeJournal(t, journal, 1, []events.Event{
		events.PoolInitialized{Pool: testPool, Initializer: testTrader, PoolID: 1, AssetX: testAssetX, AssetY: testAssetY, FeeBps: 30},
		events.Deposit{Liquidity: events.Liquidity{Pool: testPool, Owner: testTrader, Shares: 100000, AmountX: 100000, AmountY: 100000, ReserveX: 100000, ReserveY: 100000, ShareSupply: 100000}},
		events.Swap{Pool: testPool, Trader: testTrader, XToY: true, AmountIn: 1000, AmountOut: 987, Fee: 3, ReserveX: 101000, ReserveY: 99013},
		events.Swap{Pool: testPool, Trader: testTrader, XToY: false, AmountIn: 500, AmountOut: 504, Fee: 2, ReserveX: 100496, ReserveY: 99513},
		events.Swap{Pool: testPool, Trader: testTrader, XToY: true, AmountIn: 100, AmountOut: 98, Fee: 1, ReserveX: 100596, ReserveY: 99415},
	}, []int64{0, 10, 20, 30, 400})

	sink := &captureSink{}
	agg := NewAggregator(Config{WindowSeconds: 300, StateStore: progress}, newJournalSource(t, journal), sink, nil, nil)
	if err := agg.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.metrics) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(sink.metrics))
	}
	w := sink.metrics[0]
	if w.WindowStart.Unix() != baseTS || w.WindowEnd.Unix() != baseTS+300 {
		t.Fatalf("window bounds mismatch: %v - %v", w.WindowStart, w.WindowEnd)
	}
	if w.SwapCount != 2 || w.DepositCount != 1 || w.WithdrawCount != 0 {
		t.Fatalf("counts mismatch: %+v", w)
	}
	if w.VolumeX != "1504" || w.VolumeY != "1487" || w.FeeX != "3" || w.FeeY != "2" {
		t.Fatalf("volume/fee mismatch: %+v", w)
	}
	if w.ReserveX == nil || *w.ReserveX != "100496" || w.ReserveY == nil || *w.ReserveY != "99513" {
		t.Fatalf("closing reserves mismatch: %v %v", w.ReserveX, w.ReserveY)
	}
	if w.LastSequence != 4 {
		t.Fatalf("last sequence = %d", w.LastSequence)
	}

	rateX := big.NewRat(3, 100496)
	rateY := big.NewRat(2, 99513)
	wantAPR := new(big.Rat).Add(rateX, rateY)
	wantAPR.Mul(wantAPR, big.NewRat(365*24*3600, 2*300))
	if w.FeeRateX == nil || *w.FeeRateX != rateX.FloatString(ratioScale) {
		t.Fatalf("fee rate x mismatch: %v", w.FeeRateX)
	}
	if w.APR == nil || *w.APR != wantAPR.FloatString(ratioScale) {
		t.Fatalf("apr mismatch: %v want %s", w.APR, wantAPR.FloatString(ratioScale))
	}

	if sink.metrics[1].SwapCount != 1 || sink.metrics[1].FeeY != "0" || sink.metrics[1].FeeRateY == nil {
		t.Fatalf("open window mismatch: %+v", sink.metrics[1])
	}
	if len(sink.pools) != 1 || sink.pools[0].FirstSeenSequence != 1 || sink.pools[0].Meta.AssetX != testAssetX.Hex() {
		t.Fatalf("pool records mismatch: %+v", sink.pools)
	}

	saved, ok, err := progress.Load(context.Background())
	if err != nil || !ok || saved != 4 {
		t.Fatalf("saved progress = %d %v %v", saved, ok, err)
	}

	writeJournal(t, journal, 6, []events.Event{
		events.LockChanged{Pool: testPool, Authority: testTrader, Locked: true},
	}, []int64{700})

	resumed := &captureSink{}
	agg = NewAggregator(Config{WindowSeconds: 300, StateStore: progress}, newJournalSource(t, journal), resumed, nil, nil)
	if err := agg.Run(context.Background()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(resumed.metrics) != 2 {
		t.Fatalf("expected rebuilt open window plus new window, got %d", len(resumed.metrics))
	}
	if resumed.metrics[0].SwapCount != 1 || resumed.metrics[0].VolumeX != "100" {
		t.Fatalf("rebuilt window mismatch: %+v", resumed.metrics[0])
	}
	quiet := resumed.metrics[1]
	if quiet.SwapCount != 0 || quiet.ReserveX == nil || *quiet.ReserveX != "100596" {
		t.Fatalf("quiet window should carry reserves: %+v", quiet)
	}
	if saved, _, _ := progress.Load(context.Background()); saved != 5 {
		t.Fatalf("saved progress after resume = %d", saved)
	}
}

func TestAggregatorRecomputeFromAndDecimals(t *testing.T) {
	dir := t.TempDir()
	journal := filepath.Join(dir, "journal.jsonl")
	writeJournal(t, journal, 1, []events.Event{
		events.PoolInitialized{Pool: testPool, Initializer: testTrader, PoolID: 1, AssetX: testAssetX, AssetY: testAssetY, FeeBps: 30},
		events.Deposit{Liquidity: events.Liquidity{Pool: testPool, Owner: testTrader, Shares: 2_000_000, AmountX: 2_500_000, AmountY: 1_000_000, ReserveX: 2_500_000, ReserveY: 1_000_000, ShareSupply: 2_000_000}},
		events.Swap{Pool: testPool, Trader: testTrader, XToY: true, AmountIn: 1_500_000, AmountOut: 1, Fee: 4500, ReserveX: 4_000_000, ReserveY: 999_999},
	}, []int64{0, 1, 2})

	decimals := NewTokenDecimalsCache(fixedDecimals{testAssetX: 6, testAssetY: 0}, 18, nil)
	sink := &captureSink{}
	agg := NewAggregator(Config{WindowSeconds: 60, RecomputeFrom: 3}, newJournalSource(t, journal), sink, decimals, nil)
	if err := agg.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.metrics) != 1 {
		t.Fatalf("expected 1 window, got %d", len(sink.metrics))
	}
	m := sink.metrics[0]
	if m.DepositCount != 0 || m.SwapCount != 1 {
		t.Fatalf("recompute should start at sequence 3: %+v", m)
	}
	if m.VolumeX != "1.500000" || m.FeeX != "0.004500" || m.VolumeY != "1" {
		t.Fatalf("formatted amounts mismatch: %+v", m)
	}
	if m.FeeRateY == nil || *m.FeeRateY != "0.000000000000000000" {
		t.Fatalf("fee rate y should be zero: %v", m.FeeRateY)
	}
	wantAPR := big.NewRat(4500, 4_000_000)
	wantAPR.Mul(wantAPR, big.NewRat(365*24*3600, 2*60))
	if m.APR == nil || *m.APR != wantAPR.FloatString(ratioScale) {
		t.Fatalf("apr mismatch: %v", m.APR)
	}
}

func TestComputeAPR(t *testing.T) {
	year := uint64(365 * 24 * 3600)
	apr := computeAPR(big.NewRat(1, 100), big.NewRat(3, 100), year)
	if got := *formatRat(apr); got != "0.020000000000000000" {
		t.Fatalf("apr = %s", got)
	}
	if computeAPR(nil, big.NewRat(1, 2), year) != nil {
		t.Fatalf("apr with missing rate should be nil")
	}
	if computeFeeRate(big.NewInt(5), big.NewInt(0)) != nil {
		t.Fatalf("fee rate over empty reserve should be nil")
	}
}

func TestFormatTokenAmount(t *testing.T) {
	cases := []struct {
		value    int64
		decimals uint8
		want     string
	}{
		{0, 6, "0.000000"},
		{1234567, 6, "1.234567"},
		{42, 0, "42"},
		{5, 2, "0.05"},
	}
	for _, tc := range cases {
		if got := formatTokenAmount(big.NewInt(tc.value), tc.decimals); got != tc.want {
			t.Fatalf("format %d/%d = %s want %s", tc.value, tc.decimals, got, tc.want)
		}
	}
}
