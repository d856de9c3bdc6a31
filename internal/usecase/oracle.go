package usecase

import (
	"context"
	"math"
	"time"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/features"
	"RatioLab/pkg/logger"
	"RatioLab/pkg/util"
)

// OracleReport is the hindsight-best action per day and its per-method summary.
type OracleReport struct {
	Symbol  string                 `json:"symbol"`
	From    time.Time              `json:"from"`
	To      time.Time              `json:"to"`
	Days    []models.OracleDay     `json:"days"`
	Summary []models.OracleSummary `json:"summary"`
}

// DailyBest picks, for each day, the action with the highest isolated day return. The
// first action in (method, buy, sell) sweep order wins ties. Each winner carries the
// signal confidence of its method on that day.
func (b *Backtester) DailyBest(ctx context.Context, req ActionsRequest) (OracleReport, error) {
	defer b.observe("oracle", time.Now())
	evals, err := b.evaluateDays(ctx, req)
	if err != nil {
		return OracleReport{}, err
	}

	rep := OracleReport{Symbol: req.Symbol, From: req.From, To: req.To}
	var all []models.DailyAction
	for _, ev := range evals {
		all = append(all, ev.actions...)
		if len(ev.actions) == 0 {
			continue
		}
		best := ev.actions[0]
		for _, a := range ev.actions[1:] {
			if a.DayReturn > best.DayReturn {
				best = a
			}
		}
		score := ev.scores[best.Method]
		rep.Days = append(rep.Days, models.OracleDay{
			Date:       ev.date,
			Symbol:     req.Symbol,
			Method:     best.Method,
			BuyPct:     best.BuyPct,
			SellPct:    best.SellPct,
			TradeCount: best.TradeCount,
			DayReturn:  util.RoundPlaces(best.DayReturn, 6),
			Baseline:   best.Baseline,
			Samples:    ev.samples[best.Method],
			Pearson:    finitePtr(score.Pearson),
			Spearman:   finitePtr(score.Spearman),
			Confidence: util.RoundPlaces(score.Confidence, 2),
		})
	}
	rep.Summary = summarize(req.Symbol, req.Methods, rep.Days)

	b.log.Info("oracle finished",
		logger.String("symbol", req.Symbol),
		logger.Int("days", len(evals)),
		logger.Int("resolved", len(rep.Days)))
	b.storeActions(ctx, all)
	return rep, nil
}

// summarize aggregates oracle days per method, in the requested method order.
func summarize(symbol string, methods []models.Method, days []models.OracleDay) []models.OracleSummary {
	rets := make(map[models.Method][]float64, len(methods))
	conf := make(map[models.Method]float64, len(methods))
	for _, d := range days {
		rets[d.Method] = append(rets[d.Method], d.DayReturn)
		conf[d.Method] += d.Confidence
	}
	out := make([]models.OracleSummary, 0, len(methods))
	for _, m := range methods {
		s := models.OracleSummary{Symbol: symbol, Method: m, DaysWon: len(rets[m])}
		if s.DaysWon > 0 {
			s.AvgReturn = util.RoundPlaces(features.Mean(rets[m]), 6)
			s.MedianReturn = util.RoundPlaces(features.Median(rets[m]), 6)
			s.AvgConfidence = util.RoundPlaces(conf[m]/float64(s.DaysWon), 2)
		}
		out = append(out, s)
	}
	return out
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
