package models

// Query parameters for the backtest HTTP endpoints. Dates are YYYY-MM-DD; list parameters are comma separated.

type BaselineQuery struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	AsOf     string `query:"as_of" json:"as_of" validate:"required,datetime=2006-01-02"`
	Method   string `query:"method" json:"method" default:"VWAP_RATIO" validate:"oneof=VWAP_RATIO VOL_WEIGHTED WINSORIZED WEIGHTED_MEDIAN EQUAL_MEAN"`
	Lookback int    `query:"lookback" json:"lookback" default:"5" validate:"gte=1,lte=250"`
	Window   string `query:"window" json:"window" default:"RTH" validate:"oneof=RTH AH ALL"`
}

// ThresholdGrid is the buy/sell sweep shared by the grid-style requests.
type ThresholdGrid struct {
	BuyMin   float64 `query:"buy_min" json:"buy_min" validate:"gte=0"`
	BuyMax   float64 `query:"buy_max" json:"buy_max" default:"2" validate:"gtefield=BuyMin"`
	BuyStep  float64 `query:"buy_step" json:"buy_step" default:"0.5" validate:"gt=0"`
	SellMin  float64 `query:"sell_min" json:"sell_min" validate:"gte=0"`
	SellMax  float64 `query:"sell_max" json:"sell_max" default:"2" validate:"gtefield=SellMin"`
	SellStep float64 `query:"sell_step" json:"sell_step" default:"0.5" validate:"gt=0"`
}

type GridQuery struct {
	Symbol   string  `query:"symbol" json:"symbol" validate:"required"`
	From     string  `query:"from" json:"from" validate:"required,datetime=2006-01-02"`
	To       string  `query:"to" json:"to" validate:"required,datetime=2006-01-02"`
	Methods  string  `query:"methods" json:"methods" default:"VWAP_RATIO"`
	Lookback int     `query:"lookback" json:"lookback" default:"5" validate:"gte=1,lte=250"`
	Window   string  `query:"window" json:"window" default:"RTH" validate:"oneof=RTH AH ALL"`
	Flatten  bool    `query:"flatten" json:"flatten"`
	Cash     float64 `query:"cash" json:"cash" default:"10000" validate:"gt=0"`
	CapPct   float64 `query:"cap_pct" json:"cap_pct" validate:"gte=0,lte=100"`
	Log      bool    `query:"log" json:"log"`
	ThresholdGrid
}

type OracleQuery struct {
	Symbol   string  `query:"symbol" json:"symbol" validate:"required"`
	From     string  `query:"from" json:"from" validate:"required,datetime=2006-01-02"`
	To       string  `query:"to" json:"to" validate:"required,datetime=2006-01-02"`
	Methods  string  `query:"methods" json:"methods" default:"VWAP_RATIO,VOL_WEIGHTED,WINSORIZED,WEIGHTED_MEDIAN,EQUAL_MEAN"`
	Lookback int     `query:"lookback" json:"lookback" default:"5" validate:"gte=1,lte=250"`
	Window   string  `query:"window" json:"window" default:"RTH" validate:"oneof=RTH AH ALL"`
	Cash     float64 `query:"cash" json:"cash" default:"10000" validate:"gt=0"`
	Horizon  int     `query:"horizon" json:"horizon" default:"10" validate:"gte=1,lte=390"`
	CapPct   float64 `query:"cap_pct" json:"cap_pct" validate:"gte=0,lte=100"`
	ThresholdGrid
}

type CurveQuery struct {
	Symbol   string  `query:"symbol" json:"symbol" validate:"required"`
	From     string  `query:"from" json:"from" validate:"required,datetime=2006-01-02"`
	To       string  `query:"to" json:"to" validate:"required,datetime=2006-01-02"`
	Method   string  `query:"method" json:"method" default:"VWAP_RATIO" validate:"oneof=VWAP_RATIO VOL_WEIGHTED WINSORIZED WEIGHTED_MEDIAN EQUAL_MEAN"`
	Buy      float64 `query:"buy" json:"buy" default:"1" validate:"gte=0"`
	Sell     float64 `query:"sell" json:"sell" default:"1" validate:"gte=0"`
	Lookback int     `query:"lookback" json:"lookback" default:"5" validate:"gte=1,lte=250"`
	Window   string  `query:"window" json:"window" default:"RTH" validate:"oneof=RTH AH ALL"`
	Flatten  bool    `query:"flatten" json:"flatten"`
	Cash     float64 `query:"cash" json:"cash" default:"10000" validate:"gt=0"`
	CapPct   float64 `query:"cap_pct" json:"cap_pct" validate:"gte=0,lte=100"`
	// Split trades after-hours bars against their own baseline and thresholds.
	Split  bool    `query:"split" json:"split"`
	AHBuy  float64 `query:"ah_buy" json:"ah_buy" default:"1" validate:"gte=0"`
	AHSell float64 `query:"ah_sell" json:"ah_sell" default:"1" validate:"gte=0"`
}

type WalkForwardQuery struct {
	Symbol        string  `query:"symbol" json:"symbol" validate:"required"`
	From          string  `query:"from" json:"from" validate:"required,datetime=2006-01-02"`
	To            string  `query:"to" json:"to" validate:"required,datetime=2006-01-02"`
	Methods       string  `query:"methods" json:"methods" default:"VWAP_RATIO,VOL_WEIGHTED,WINSORIZED,WEIGHTED_MEDIAN,EQUAL_MEAN"`
	Lookback      int     `query:"lookback" json:"lookback" default:"5" validate:"gte=1,lte=250"`
	Window        string  `query:"window" json:"window" default:"RTH" validate:"oneof=RTH AH ALL"`
	Fields        string  `query:"fields" json:"fields" default:"bench_prev_ret,bench_overnight_ret"`
	Bins          int     `query:"bins" json:"bins" default:"3" validate:"gte=1,lte=20"`
	TrainDays     int     `query:"train_days" json:"train_days" default:"60" validate:"gte=1"`
	MinSupport    int     `query:"min_support" json:"min_support" default:"1" validate:"gte=1"`
	MinConfidence float64 `query:"min_confidence" json:"min_confidence" validate:"gte=0,lte=100"`
	Capital       float64 `query:"capital" json:"capital" default:"10000" validate:"gt=0"`
	CapPct        float64 `query:"cap_pct" json:"cap_pct" validate:"gte=0,lte=100"`
	ThresholdGrid
}
