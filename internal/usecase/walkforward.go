package usecase

import (
	"context"
	"time"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/policy"
	"RatioLab/pkg/logger"
)

// WalkForwardReport pairs the adaptive policy with the best fixed action in hindsight and
// the rule table trained on the most recent window.
type WalkForwardReport struct {
	Policy       models.WalkForwardResult `json:"policy"`
	Static       models.WalkForwardResult `json:"static"`
	StaticAction models.ActionID          `json:"static_action"`
	Rules        models.RuleTable         `json:"rules"`
	// Recommendation is the latest rule table's action for the most recent day's regime,
	// absent when that regime has no rule.
	Recommendation    *models.PolicyRule `json:"recommendation,omitempty"`
	RecommendationFor *time.Time         `json:"recommendation_for,omitempty"`
}

// WalkForward builds the daily actions for the range and runs the regime policy over them.
// Only configuration errors are returned; unresolved days are listed in the result.
func (b *Backtester) WalkForward(ctx context.Context, req WalkForwardRequest) (WalkForwardReport, error) {
	start := time.Now()
	defer b.observe("walkforward", start)

	if err := req.Validate(b.cfg.MaxGridCells); err != nil {
		b.metrics.RecordError("config")
		return WalkForwardReport{}, err
	}
	actions, err := b.DailyActions(ctx, req.ActionsRequest)
	if err != nil {
		return WalkForwardReport{}, err
	}

	res, err := policy.WalkForward(actions, req.Policy)
	if err != nil {
		b.metrics.RecordError("config")
		return WalkForwardReport{}, err
	}
	res.RunID = b.runID()
	res.Symbol = req.Symbol

	rep := WalkForwardReport{Policy: res}
	rep.StaticAction, rep.Static = bestStatic(actions, req.Policy.StartCapital)
	rep.Static.Symbol = req.Symbol

	rules, err := policy.BuildRuleTable(actions, req.Policy)
	if err != nil {
		return WalkForwardReport{}, err
	}
	rules.Symbol = req.Symbol
	rep.Rules = rules
	if last, ok := latestFeatures(actions); ok {
		if rule, err := policy.Recommend(rules, last.Features); err == nil {
			day := last.Date
			rep.Recommendation, rep.RecommendationFor = &rule, &day
		}
	}

	for range res.DaysWithNoAction {
		b.metrics.RecordSkippedDay("no_rule")
	}
	b.log.Info("walk-forward finished",
		logger.String("run_id", res.RunID),
		logger.String("symbol", req.Symbol),
		logger.Int("decisions", len(res.Decisions)),
		logger.Int("gaps", len(res.DaysWithNoAction)),
		logger.Float("total_return", res.TotalReturn),
		logger.Float("static_return", rep.Static.TotalReturn),
		logger.Duration("elapsed", time.Since(start)))

	if b.sink != nil {
		if err := b.sink.StoreWalkForward(ctx, res); err != nil {
			b.metrics.RecordError("sink")
			b.log.Error("store walk-forward", logger.String("run_id", res.RunID), logger.Error(err))
		}
	}
	return rep, nil
}

// bestStatic evaluates every distinct action as a fixed policy and keeps the one with the
// highest total return; the smaller action wins ties.
func bestStatic(actions []models.DailyAction, capital float64) (models.ActionID, models.WalkForwardResult) {
	seen := map[models.ActionID]bool{}
	var (
		best    models.ActionID
		bestRes models.WalkForwardResult
		found   bool
	)
	for _, a := range actions {
		id := a.Action()
		if seen[id] {
			continue
		}
		seen[id] = true
		res := policy.Static(actions, id, capital)
		if !found || res.TotalReturn > bestRes.TotalReturn ||
			(res.TotalReturn == bestRes.TotalReturn && id.Less(best)) {
			best, bestRes, found = id, res, true
		}
	}
	if !found {
		bestRes = models.WalkForwardResult{StartCapital: capital, FinalEquity: capital}
	}
	return best, bestRes
}

// latestFeatures returns the row of the most recent day, whose features describe the
// current regime.
func latestFeatures(actions []models.DailyAction) (models.DailyAction, bool) {
	var (
		last  models.DailyAction
		found bool
	)
	for _, a := range actions {
		if !found || a.Date.After(last.Date) {
			last, found = a, true
		}
	}
	return last, found
}
