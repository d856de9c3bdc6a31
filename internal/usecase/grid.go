package usecase

import (
	"context"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/simulator"
	"RatioLab/pkg/logger"
	"RatioLab/pkg/util"
)

type cell struct {
	method  models.Method
	buyPct  float64
	sellPct float64
}

func cells(methods []models.Method, buys, sells []float64) []cell {
	out := make([]cell, 0, len(methods)*len(buys)*len(sells))
	for _, m := range methods {
		for _, bp := range buys {
			for _, sp := range sells {
				out = append(out, cell{method: m, buyPct: bp, sellPct: sp})
			}
		}
	}
	return out
}

// RunGrid simulates every (method, buy, sell) over the range and ranks the cells. Each
// cell carries its own cash and shares across days, or resets daily when Flatten is set.
// Only configuration problems are returned as errors; days without a usable baseline are
// skipped and counted.
func (b *Backtester) RunGrid(ctx context.Context, req GridRequest) (models.Leaderboard, error) {
	start := time.Now()
	defer b.observe("grid", start)

	if err := req.Validate(b.cfg.MaxGridCells); err != nil {
		b.metrics.RecordError("config")
		return models.Leaderboard{}, err
	}

	ds, err := b.load(ctx, req.Scope)
	if err != nil {
		b.metrics.RecordError("feed")
		return models.Leaderboard{}, err
	}

	bases := ds.baselines(req.Methods, b.opts, nil)
	test := ds.testDays()
	lb := models.Leaderboard{
		RunID:  b.runID(),
		Symbol: req.Symbol,
		From:   req.From,
		To:     req.To,
	}
	lb.SkippedDays, lb.UndefinedBaselines = b.countGaps(req, test, bases)

	mode := simulator.Carry
	if req.Flatten {
		mode = simulator.FlattenDaily
	}
	bars := ds.bars()
	grid := cells(req.Methods, req.Buys, req.Sells)
	results := make([]models.SimulationResult, len(grid))
	sources := make(map[models.Method]simulator.PerDay, len(bases))
	for m, db := range bases {
		sources[m] = db.perDay(test)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())
	for i, c := range grid {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = simulator.Simulate(bars, sources[c.method], simulator.Params{
				Symbol:              req.Symbol,
				Method:              c.method,
				Thresholds:          simulator.Thresholds{BuyPct: c.buyPct, SellPct: c.sellPct},
				StartingCash:        req.StartingCash,
				ParticipationCapPct: req.ParticipationCapPct,
				Mode:                mode,
				Log:                 req.Log && len(grid) == 1,
			})
			b.metrics.RecordSimulation(string(c.method))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Leaderboard{}, err
	}

	traded := false
	lb.Rows = make([]models.LeaderboardRow, len(results))
	for i, r := range results {
		traded = traded || !math.IsNaN(r.TotalReturn)
		lb.Rows[i] = models.LeaderboardRow{
			Symbol:       req.Symbol,
			Method:       r.Method,
			BuyPct:       r.BuyPct,
			SellPct:      r.SellPct,
			TotalReturn:  r.TotalReturn,
			TradeCount:   r.TradeCount,
			DaysUsed:     r.DaysUsed,
			EndingShares: r.EndingShares,
			FinalCash:    r.EndingCash,
			FinalEquity:  r.FinalEquity,
		}
	}
	Rank(lb.Rows)
	for i := range lb.Rows {
		roundRow(&lb.Rows[i])
	}
	if len(results) == 1 {
		lb.Fills = results[0].Fills
	}

	if traded {
		b.metrics.RecordBestReturn(req.Symbol, lb.Rows[0].TotalReturn)
	}
	b.log.Info("grid finished",
		logger.String("run_id", lb.RunID),
		logger.String("symbol", req.Symbol),
		logger.Int("cells", len(grid)),
		logger.Int("days", len(test)),
		logger.Int("skipped_days", lb.SkippedDays),
		logger.Int("undefined_baselines", lb.UndefinedBaselines),
		logger.Duration("elapsed", time.Since(start)))

	if b.sink != nil {
		if err := b.sink.StoreLeaderboard(ctx, lb); err != nil {
			b.metrics.RecordError("sink")
			b.log.Error("store leaderboard", logger.String("run_id", lb.RunID), logger.Error(err))
		}
	}
	return lb, nil
}

// countGaps counts test days no method could trade and (method, day) pairs whose baseline
// was undefined despite a full lookback.
func (b *Backtester) countGaps(req GridRequest, test []tradingDay, bases map[models.Method]dayBaselines) (skipped, undefined int) {
	for j, d := range test {
		anyDefined := false
		for _, m := range req.Methods {
			db := bases[m]
			switch {
			case !db.history[j]:
			case !db.results[j].Defined:
				undefined++
				b.log.Warn("baseline undefined",
					logger.String("symbol", req.Symbol),
					logger.String("method", string(m)),
					logger.Date("date", d.date),
					logger.Int("samples", db.results[j].Samples))
			default:
				anyDefined = true
			}
		}
		if !anyDefined {
			skipped++
			reason := "baseline_undefined"
			if len(req.Methods) > 0 && !bases[req.Methods[0]].history[j] {
				reason = "insufficient_history"
			}
			b.metrics.RecordSkippedDay(reason)
		}
	}
	return skipped, undefined
}

func (b *Backtester) workers() int {
	if b.cfg.Workers < 1 {
		return 1
	}
	return b.cfg.Workers
}

// Rank orders rows by total return descending with NaN last, then trade count ascending,
// then (method, buy, sell). NaN returns are reported as zero afterwards.
func Rank(rows []models.LeaderboardRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, c := rows[i], rows[j]
		an, cn := math.IsNaN(a.TotalReturn), math.IsNaN(c.TotalReturn)
		switch {
		case an != cn:
			return cn
		case !an && a.TotalReturn != c.TotalReturn:
			return a.TotalReturn > c.TotalReturn
		case a.TradeCount != c.TradeCount:
			return a.TradeCount < c.TradeCount
		}
		return rowAction(a).Less(rowAction(c))
	})
	for i := range rows {
		rows[i].TotalReturn = util.FiniteOr(rows[i].TotalReturn, 0)
	}
}

func rowAction(r models.LeaderboardRow) models.ActionID {
	return models.ActionID{Method: r.Method, BuyPct: r.BuyPct, SellPct: r.SellPct}
}

func roundRow(r *models.LeaderboardRow) {
	r.FinalCash = util.RoundMoney(r.FinalCash)
	r.FinalEquity = util.RoundMoney(r.FinalEquity)
	r.TotalReturn = util.RoundPlaces(r.TotalReturn, 6)
}
