package usecase

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/confidence"
	"RatioLab/internal/services/features"
	"RatioLab/internal/services/simulator"
	"RatioLab/pkg/cache"
	"RatioLab/pkg/logger"
)

const memoDailyActions = "usecase.daily_actions"

// dayEval is every action's isolated outcome on one day plus the per-method signal scores.
type dayEval struct {
	date    time.Time
	actions []models.DailyAction
	scores  map[models.Method]confidence.Score
	samples map[models.Method]int
}

// evaluateDays simulates each (method, buy, sell) on each test day from StartingCash,
// flattening at the close. Days or methods without a baseline produce no rows.
func (b *Backtester) evaluateDays(ctx context.Context, req ActionsRequest) ([]dayEval, error) {
	if err := req.Validate(b.cfg.MaxGridCells); err != nil {
		b.metrics.RecordError("config")
		return nil, err
	}
	ds, err := b.load(ctx, req.Scope)
	if err != nil {
		b.metrics.RecordError("feed")
		return nil, err
	}
	bases := ds.baselines(req.Methods, b.opts, nil)
	test := ds.testDays()
	out := make([]dayEval, len(test))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())
	for j := range test {
		j := j
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[j] = b.evaluateDay(req, ds, ds.first+j, j, bases)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backtester) evaluateDay(req ActionsRequest, ds *dataset, i, j int, bases map[models.Method]dayBaselines) dayEval {
	day := ds.days[i]
	ev := dayEval{
		date:    day.date,
		scores:  make(map[models.Method]confidence.Score, len(req.Methods)),
		samples: make(map[models.Method]int, len(req.Methods)),
	}
	feats := models.MissingFeatures()
	if i > 0 {
		feats = features.RegimeFeatures(ds.days[i-1].bars, day.bars)
	}

	for _, m := range req.Methods {
		db := bases[m]
		if !db.history[j] {
			b.metrics.RecordSkippedDay("insufficient_history")
			continue
		}
		res := db.results[j]
		if !res.Defined {
			b.metrics.RecordSkippedDay("baseline_undefined")
			continue
		}
		score := confidence.DaySignal(day.bars, res.Value, req.Horizon)
		ev.scores[m] = score
		ev.samples[m] = res.Samples

		for _, bp := range req.Buys {
			for _, sp := range req.Sells {
				r := simulator.Simulate(day.bars, simulator.Scalar(res.Value), simulator.Params{
					Symbol:              ds.symbol,
					Method:              m,
					Thresholds:          simulator.Thresholds{BuyPct: bp, SellPct: sp},
					StartingCash:        req.StartingCash,
					ParticipationCapPct: req.ParticipationCapPct,
					FlattenAtEnd:        true,
					Mode:                simulator.FlattenDaily,
				})
				b.metrics.RecordSimulation(string(m))
				if math.IsNaN(r.TotalReturn) {
					continue
				}
				ev.actions = append(ev.actions, models.DailyAction{
					Date:       day.date,
					Symbol:     ds.symbol,
					Session:    req.Window.String(),
					Method:     m,
					BuyPct:     bp,
					SellPct:    sp,
					DayReturn:  b.costs.Apply(r.TotalReturn, r.TradeCount),
					TradeCount: r.TradeCount,
					Baseline:   res.Value,
					Confidence: score.Confidence,
					Features:   feats,
				})
			}
		}
	}
	return ev
}

// DailyActions returns every (method, buy, sell) outcome per day, evaluated in isolation
// and net of trading costs. Results are memoized by request and stored to the sink.
func (b *Backtester) DailyActions(ctx context.Context, req ActionsRequest) ([]models.DailyAction, error) {
	defer b.observe("daily_actions", time.Now())
	actions, err := cache.Do(ctx, b.memo, memoDailyActions, req, func(ctx context.Context) ([]models.DailyAction, error) {
		evals, err := b.evaluateDays(ctx, req)
		if err != nil {
			return nil, err
		}
		var out []models.DailyAction
		for _, ev := range evals {
			out = append(out, ev.actions...)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	b.storeActions(ctx, actions)
	return actions, nil
}

func (b *Backtester) storeActions(ctx context.Context, actions []models.DailyAction) {
	if b.sink == nil || len(actions) == 0 {
		return
	}
	runID := b.runID()
	if err := b.sink.StoreDailyActions(ctx, runID, actions); err != nil {
		b.metrics.RecordError("sink")
		b.log.Error("store daily actions", logger.String("run_id", runID), logger.Error(err))
	}
}

// InvalidateActions drops memoized daily actions, e.g. after new minutes are loaded.
func (b *Backtester) InvalidateActions(ctx context.Context) error {
	return b.memo.Invalidate(ctx, memoDailyActions)
}
