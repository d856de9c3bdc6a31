package usecase

import (
	"context"
	"time"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/policy"
	"RatioLab/internal/services/simulator"
	"RatioLab/pkg/logger"
	"RatioLab/pkg/util"
)

// CurveReport is a single action's daily equity path.
type CurveReport struct {
	Symbol      string              `json:"symbol"`
	Method      models.Method       `json:"method"`
	BuyPct      float64             `json:"buy_pct"`
	SellPct     float64             `json:"sell_pct"`
	Points      []models.CurvePoint `json:"points"`
	FinalEquity float64             `json:"final_equity"`
	TotalReturn float64             `json:"total_return"`
	TradeCount  int                 `json:"trade_count"`
	MaxDrawdown float64             `json:"max_drawdown"`
}

// DailyCurve replays one (method, buy, sell) across the range and reports each day's
// equity. With AH thresholds set, after-hours bars trade against an AH-only baseline.
func (b *Backtester) DailyCurve(ctx context.Context, req CurveRequest) (CurveReport, error) {
	defer b.observe("curve", time.Now())
	if err := req.Validate(); err != nil {
		b.metrics.RecordError("config")
		return CurveReport{}, err
	}
	ds, err := b.load(ctx, req.Scope)
	if err != nil {
		b.metrics.RecordError("feed")
		return CurveReport{}, err
	}
	method := req.Method()
	test := ds.testDays()
	mode := simulator.Carry
	if req.Flatten {
		mode = simulator.FlattenDaily
	}
	p := simulator.Params{
		Symbol:              req.Symbol,
		Method:              method,
		Thresholds:          req.Thresholds,
		StartingCash:        req.StartingCash,
		ParticipationCapPct: req.ParticipationCapPct,
		Mode:                mode,
	}

	var res models.SimulationResult
	if req.AH == nil {
		src := ds.baselines(req.Methods, b.opts, nil)[method].perDay(test)
		res = simulator.Simulate(ds.bars(), src, p)
	} else {
		rth := ds.baselines(req.Methods, b.opts, sessionFilter(models.SessionRTH))[method].perDay(test)
		ah := ds.baselines(req.Methods, b.opts, sessionFilter(models.SessionAH))[method].perDay(test)
		res = simulator.SimulateSplit(ds.bars(), rth, ah, req.Thresholds, *req.AH, p)
	}
	b.metrics.RecordSimulation(string(method))

	rep := CurveReport{
		Symbol:      req.Symbol,
		Method:      method,
		BuyPct:      req.BuyPct,
		SellPct:     req.SellPct,
		FinalEquity: util.RoundMoney(res.FinalEquity),
		TotalReturn: util.RoundPlaces(util.FiniteOr(res.TotalReturn, 0), 6),
		TradeCount:  res.TradeCount,
	}
	rep.Points, rep.MaxDrawdown = curvePoints(res.DayReturns, req.StartingCash)

	b.log.Info("curve finished",
		logger.String("symbol", req.Symbol),
		logger.String("method", string(method)),
		logger.Int("days", len(rep.Points)),
		logger.Int("trades", res.TradeCount))
	return rep, nil
}

// curvePoints turns simulator day returns into rounded curve rows and the max drawdown.
func curvePoints(days []models.DayReturn, start float64) ([]models.CurvePoint, float64) {
	pts := make([]models.CurvePoint, 0, len(days))
	equity := []float64{start}
	for _, d := range days {
		equity = append(equity, d.EquityEnd)
		pts = append(pts, models.CurvePoint{
			Date:        d.Date,
			EquityStart: util.RoundMoney(d.EquityStart),
			EquityEnd:   util.RoundMoney(d.EquityEnd),
			DayReturn:   util.RoundPlaces(util.FiniteOr(d.Return, 0), 6),
			CumReturn:   util.RoundPlaces(d.EquityEnd/start-1, 6),
			Trades:      d.Buys + d.Sells,
			Buys:        d.Buys,
			Sells:       d.Sells,
		})
	}
	return pts, util.RoundPlaces(policy.Drawdown(equity).MaxDrawdown, 6)
}
