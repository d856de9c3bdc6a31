package usecase

import (
	"time"

	"RatioLab/internal/domain/models"
	"RatioLab/internal/services/policy"
	"RatioLab/internal/services/session"
	"RatioLab/internal/services/simulator"
	"RatioLab/pkg/config"
	"RatioLab/pkg/util"
)

// Scope selects the data a run reads: a symbol, an inclusive local date range and the
// per-day bar filters. Baselines for a day come from the Lookback trading days before it.
type Scope struct {
	Symbol            string            `json:"symbol"`
	From              time.Time         `json:"from"`
	To                time.Time         `json:"to"`
	Methods           []models.Method   `json:"methods"`
	Lookback          int               `json:"lookback"`
	Window            session.Window    `json:"window"`
	Liquidity         session.Liquidity `json:"liquidity"`
	LiquidityBaseline bool              `json:"liquidity_baseline"`
	LiquidityTriggers bool              `json:"liquidity_triggers"`
}

func (s Scope) validate() error {
	if s.Symbol == "" {
		return models.NewConfigError("symbol", "is required")
	}
	if s.From.IsZero() || s.To.IsZero() {
		return models.NewConfigError("from", "from and to are required")
	}
	if s.To.Before(s.From) {
		return models.NewConfigError("to", "must not be before from")
	}
	if s.Lookback < 1 {
		return models.NewConfigError("lookback", "must be >= 1, got %d", s.Lookback)
	}
	if len(s.Methods) == 0 {
		return models.NewConfigError("methods", "at least one method is required")
	}
	if s.Liquidity.MinShares < 0 || s.Liquidity.MinDollar < 0 {
		return models.NewConfigError("liquidity", "limits must be >= 0")
	}
	return nil
}

func (s Scope) triggerLiquidity() session.Liquidity {
	if s.LiquidityTriggers {
		return s.Liquidity
	}
	return session.Liquidity{}
}

func (s Scope) baselineLiquidity() session.Liquidity {
	if s.LiquidityBaseline {
		return s.Liquidity
	}
	return session.Liquidity{}
}

// GridRequest sweeps every (method, buy, sell) over the range with shared capital per cell.
type GridRequest struct {
	Scope
	Buys                []float64 `json:"buys"`
	Sells               []float64 `json:"sells"`
	StartingCash        float64   `json:"starting_cash"`
	Flatten             bool      `json:"flatten"`
	ParticipationCapPct float64   `json:"participation_cap_pct"`
	// Log keeps the fill log. It is honoured for single-cell grids only.
	Log bool `json:"log"`
}

// Cells returns the number of simulations the grid runs.
func (r GridRequest) Cells() int {
	return len(r.Methods) * len(r.Buys) * len(r.Sells)
}

// Validate checks the grid against the configured cell limit.
func (r GridRequest) Validate(maxCells int) error {
	if err := r.Scope.validate(); err != nil {
		return err
	}
	if err := validateThresholds(r.Buys, r.Sells); err != nil {
		return err
	}
	if maxCells > 0 && r.Cells() > maxCells {
		return models.NewConfigError("grid", "%d cells exceed the limit of %d", r.Cells(), maxCells)
	}
	p := simulator.Params{StartingCash: r.StartingCash, ParticipationCapPct: r.ParticipationCapPct}
	return p.Validate()
}

func validateThresholds(buys, sells []float64) error {
	if len(buys) == 0 {
		return models.NewConfigError("buy_pct", "empty buy range")
	}
	if len(sells) == 0 {
		return models.NewConfigError("sell_pct", "empty sell range")
	}
	for _, b := range buys {
		for _, s := range sells {
			p := simulator.Params{Thresholds: simulator.Thresholds{BuyPct: b, SellPct: s}, StartingCash: 1}
			if err := p.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// ActionsRequest evaluates every (method, buy, sell) on each day in isolation. It drives
// the oracle, the stored daily actions and the walk-forward policy.
type ActionsRequest struct {
	Scope
	Buys                []float64 `json:"buys"`
	Sells               []float64 `json:"sells"`
	StartingCash        float64   `json:"starting_cash"`
	ParticipationCapPct float64   `json:"participation_cap_pct"`
	// Horizon is the forward-return length in minutes for the confidence score.
	Horizon int `json:"horizon"`
}

// Validate checks the request.
func (r ActionsRequest) Validate(maxCells int) error {
	if err := r.Scope.validate(); err != nil {
		return err
	}
	if err := validateThresholds(r.Buys, r.Sells); err != nil {
		return err
	}
	if n := len(r.Methods) * len(r.Buys) * len(r.Sells); maxCells > 0 && n > maxCells {
		return models.NewConfigError("grid", "%d cells exceed the limit of %d", n, maxCells)
	}
	if r.Horizon < 1 {
		return models.NewConfigError("horizon", "must be >= 1, got %d", r.Horizon)
	}
	p := simulator.Params{StartingCash: r.StartingCash, ParticipationCapPct: r.ParticipationCapPct}
	return p.Validate()
}

// CurveRequest replays one (method, buy, sell) and reports the daily equity.
type CurveRequest struct {
	Scope
	simulator.Thresholds
	StartingCash        float64 `json:"starting_cash"`
	Flatten             bool    `json:"flatten"`
	ParticipationCapPct float64 `json:"participation_cap_pct"`
	// AH, when set, trades after-hours bars against an AH-only baseline with these
	// thresholds while RTH bars keep the main pair.
	AH *simulator.Thresholds `json:"ah,omitempty"`
}

// Method is the single estimator the curve uses.
func (r CurveRequest) Method() models.Method {
	if len(r.Methods) == 0 {
		return ""
	}
	return r.Methods[0]
}

// Validate checks the request.
func (r CurveRequest) Validate() error {
	if err := r.Scope.validate(); err != nil {
		return err
	}
	if len(r.Methods) != 1 {
		return models.NewConfigError("method", "exactly one method is required")
	}
	if r.AH != nil {
		if err := simulator.ValidateSplit(r.Thresholds, *r.AH); err != nil {
			return err
		}
	}
	p := simulator.Params{Thresholds: r.Thresholds, StartingCash: r.StartingCash, ParticipationCapPct: r.ParticipationCapPct}
	return p.Validate()
}

// WalkForwardRequest trains the regime policy over daily actions.
type WalkForwardRequest struct {
	ActionsRequest
	Policy policy.Config `json:"policy"`
}

// Validate checks both the action sweep and the policy configuration.
func (r WalkForwardRequest) Validate(maxCells int) error {
	if err := r.ActionsRequest.Validate(maxCells); err != nil {
		return err
	}
	return r.Policy.Validate()
}

// BaselineRequest asks for one day's baseline.
type BaselineRequest struct {
	Symbol    string
	AsOf      time.Time
	Method    models.Method
	Lookback  int
	Window    session.Window
	Liquidity session.Liquidity
}

// Validate checks the request.
func (r BaselineRequest) Validate() error {
	if r.Symbol == "" {
		return models.NewConfigError("symbol", "is required")
	}
	if r.AsOf.IsZero() {
		return models.NewConfigError("as_of", "is required")
	}
	if r.Lookback < 1 {
		return models.NewConfigError("lookback", "must be >= 1, got %d", r.Lookback)
	}
	_, err := models.ParseMethod(string(r.Method))
	return err
}

func scopeFromConfig(symbol string, from, to time.Time, cfg config.Backtest) (Scope, error) {
	methods, err := models.ParseMethods(cfg.Methods)
	if err != nil {
		return Scope{}, err
	}
	w, err := session.ParseWindow(cfg.Window)
	if err != nil {
		return Scope{}, err
	}
	return Scope{
		Symbol:            symbol,
		From:              from,
		To:                to,
		Methods:           methods,
		Lookback:          cfg.LookbackDays,
		Window:            w,
		Liquidity:         session.Liquidity{MinShares: cfg.MinShares, MinDollar: cfg.MinDollar},
		LiquidityBaseline: cfg.LiquidityBaseline,
		LiquidityTriggers: cfg.LiquidityTriggers,
	}, nil
}

func policyFromConfig(cfg config.Backtest) (policy.Config, error) {
	fields, err := models.ParseRegimeFields(cfg.RegimeFields)
	if err != nil {
		return policy.Config{}, err
	}
	return policy.Config{
		Fields:          fields,
		Bins:            cfg.RegimeBins,
		TrainWindowDays: cfg.TrainWindowDays,
		StartCapital:    cfg.StartingCash,
		MinSupport:      cfg.MinSupport,
		MinConfidence:   cfg.MinConfidence,
		MinSharpe:       cfg.MinSharpe,
	}, nil
}

// GridRequestFromConfig builds a grid over the configured sweep.
func GridRequestFromConfig(symbol string, from, to time.Time, cfg config.Backtest) (GridRequest, error) {
	scope, err := scopeFromConfig(symbol, from, to, cfg)
	if err != nil {
		return GridRequest{}, err
	}
	return GridRequest{
		Scope:               scope,
		Buys:                util.FloatRange(cfg.BuyMin, cfg.BuyMax, cfg.BuyStep),
		Sells:               util.FloatRange(cfg.SellMin, cfg.SellMax, cfg.SellStep),
		StartingCash:        cfg.StartingCash,
		Flatten:             cfg.FlattenEOD,
		ParticipationCapPct: cfg.ParticipationCapPct,
	}, nil
}

// ActionsRequestFromConfig builds a daily-action sweep over the configured grid.
func ActionsRequestFromConfig(symbol string, from, to time.Time, cfg config.Backtest) (ActionsRequest, error) {
	scope, err := scopeFromConfig(symbol, from, to, cfg)
	if err != nil {
		return ActionsRequest{}, err
	}
	return ActionsRequest{
		Scope:               scope,
		Buys:                util.FloatRange(cfg.BuyMin, cfg.BuyMax, cfg.BuyStep),
		Sells:               util.FloatRange(cfg.SellMin, cfg.SellMax, cfg.SellStep),
		StartingCash:        cfg.StartingCash,
		ParticipationCapPct: cfg.ParticipationCapPct,
		Horizon:             cfg.ConfidenceHorizon,
	}, nil
}

// WalkForwardRequestFromConfig builds a walk-forward run from the configuration.
func WalkForwardRequestFromConfig(symbol string, from, to time.Time, cfg config.Backtest) (WalkForwardRequest, error) {
	ar, err := ActionsRequestFromConfig(symbol, from, to, cfg)
	if err != nil {
		return WalkForwardRequest{}, err
	}
	pc, err := policyFromConfig(cfg)
	if err != nil {
		return WalkForwardRequest{}, err
	}
	return WalkForwardRequest{ActionsRequest: ar, Policy: pc}, nil
}

// queryScope parses the fields every range query shares. Configuration supplies the
// liquidity limits, which are not exposed as query parameters.
func queryScope(symbol, from, to, methods, window string, lookback int, cfg config.Backtest) (Scope, error) {
	f, t, err := util.ParseDateRange(from, to)
	if err != nil {
		return Scope{}, models.NewConfigError("from", "%v", err)
	}
	ms, err := models.ParseMethods(util.SplitList(methods))
	if err != nil {
		return Scope{}, err
	}
	w, err := session.ParseWindow(window)
	if err != nil {
		return Scope{}, err
	}
	return Scope{
		Symbol:            symbol,
		From:              f,
		To:                t,
		Methods:           ms,
		Lookback:          lookback,
		Window:            w,
		Liquidity:         session.Liquidity{MinShares: cfg.MinShares, MinDollar: cfg.MinDollar},
		LiquidityBaseline: cfg.LiquidityBaseline,
		LiquidityTriggers: cfg.LiquidityTriggers,
	}, nil
}

// GridRequestFromQuery converts validated HTTP parameters.
func GridRequestFromQuery(q models.GridQuery, cfg config.Backtest) (GridRequest, error) {
	scope, err := queryScope(q.Symbol, q.From, q.To, q.Methods, q.Window, q.Lookback, cfg)
	if err != nil {
		return GridRequest{}, err
	}
	return GridRequest{
		Scope:               scope,
		Buys:                util.FloatRange(q.BuyMin, q.BuyMax, q.BuyStep),
		Sells:               util.FloatRange(q.SellMin, q.SellMax, q.SellStep),
		StartingCash:        q.Cash,
		Flatten:             q.Flatten,
		ParticipationCapPct: q.CapPct,
		Log:                 q.Log,
	}, nil
}

// ActionsRequestFromQuery converts validated oracle parameters.
func ActionsRequestFromQuery(q models.OracleQuery, cfg config.Backtest) (ActionsRequest, error) {
	scope, err := queryScope(q.Symbol, q.From, q.To, q.Methods, q.Window, q.Lookback, cfg)
	if err != nil {
		return ActionsRequest{}, err
	}
	return ActionsRequest{
		Scope:               scope,
		Buys:                util.FloatRange(q.BuyMin, q.BuyMax, q.BuyStep),
		Sells:               util.FloatRange(q.SellMin, q.SellMax, q.SellStep),
		StartingCash:        q.Cash,
		ParticipationCapPct: q.CapPct,
		Horizon:             q.Horizon,
	}, nil
}

// CurveRequestFromQuery converts validated curve parameters.
func CurveRequestFromQuery(q models.CurveQuery, cfg config.Backtest) (CurveRequest, error) {
	scope, err := queryScope(q.Symbol, q.From, q.To, q.Method, q.Window, q.Lookback, cfg)
	if err != nil {
		return CurveRequest{}, err
	}
	r := CurveRequest{
		Scope:               scope,
		Thresholds:          simulator.Thresholds{BuyPct: q.Buy, SellPct: q.Sell},
		StartingCash:        q.Cash,
		Flatten:             q.Flatten,
		ParticipationCapPct: q.CapPct,
	}
	if q.Split {
		r.AH = &simulator.Thresholds{BuyPct: q.AHBuy, SellPct: q.AHSell}
	}
	return r, nil
}

// WalkForwardRequestFromQuery converts validated walk-forward parameters. The optional
// min sharpe-like filter comes from configuration.
func WalkForwardRequestFromQuery(q models.WalkForwardQuery, cfg config.Backtest) (WalkForwardRequest, error) {
	scope, err := queryScope(q.Symbol, q.From, q.To, q.Methods, q.Window, q.Lookback, cfg)
	if err != nil {
		return WalkForwardRequest{}, err
	}
	fields, err := models.ParseRegimeFields(util.SplitList(q.Fields))
	if err != nil {
		return WalkForwardRequest{}, err
	}
	return WalkForwardRequest{
		ActionsRequest: ActionsRequest{
			Scope:               scope,
			Buys:                util.FloatRange(q.BuyMin, q.BuyMax, q.BuyStep),
			Sells:               util.FloatRange(q.SellMin, q.SellMax, q.SellStep),
			StartingCash:        q.Capital,
			ParticipationCapPct: q.CapPct,
			Horizon:             cfg.ConfidenceHorizon,
		},
		Policy: policy.Config{
			Fields:          fields,
			Bins:            q.Bins,
			TrainWindowDays: q.TrainDays,
			StartCapital:    q.Capital,
			MinSupport:      q.MinSupport,
			MinConfidence:   q.MinConfidence,
			MinSharpe:       cfg.MinSharpe,
		},
	}, nil
}

// BaselineRequestFromQuery converts validated baseline parameters.
func BaselineRequestFromQuery(q models.BaselineQuery, cfg config.Backtest) (BaselineRequest, error) {
	asOf, err := util.ParseDate(q.AsOf)
	if err != nil {
		return BaselineRequest{}, models.NewConfigError("as_of", "%v", err)
	}
	m, err := models.ParseMethod(q.Method)
	if err != nil {
		return BaselineRequest{}, err
	}
	w, err := session.ParseWindow(q.Window)
	if err != nil {
		return BaselineRequest{}, err
	}
	r := BaselineRequest{Symbol: q.Symbol, AsOf: asOf, Method: m, Lookback: q.Lookback, Window: w}
	if cfg.LiquidityBaseline {
		r.Liquidity = session.Liquidity{MinShares: cfg.MinShares, MinDollar: cfg.MinDollar}
	}
	return r, nil
}
