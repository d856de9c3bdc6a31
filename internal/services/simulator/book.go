package simulator

import (
	"math"

	"RatioLab/internal/domain/models"
)

// book is the private cash/position state of one run.
type book struct {
	p          Params
	cash       float64
	shares     int64
	pos        models.Position
	lastPrice  float64
	lastBar    models.MinuteBar
	buys       int
	sells      int
	trades     []models.Trade
	fills      []models.Fill
	dayReturns []models.DayReturn
}

func newBook(p Params) *book {
	return &book{p: p, cash: p.StartingCash, pos: models.Position{State: models.Flat}}
}

func (b *book) equity() float64 {
	if b.shares == 0 {
		return b.cash
	}
	return b.cash + float64(b.shares)*b.lastPrice
}

func (b *book) buy(bar models.MinuteBar, ratio, base float64, th Thresholds) {
	px := bar.AssetClose
	qty := int64(math.Floor(b.cash / px))
	if b.p.ParticipationCapPct > 0 {
		capQty := int64(math.Floor(math.Max(bar.AssetVolume, 0) * b.p.ParticipationCapPct / 100))
		if capQty < qty {
			qty = capQty
		}
	}
	if qty <= 0 {
		return
	}
	b.cash -= float64(qty) * px
	b.shares = qty
	b.pos = models.Position{State: models.Long, EntryTime: bar.Timestamp, EntryPrice: px, Shares: qty}
	b.buys++
	b.log(bar, models.ActionBuy, px, ratio, base, qty, th)
}

func (b *book) sell(bar models.MinuteBar, ratio, base float64, th Thresholds, action models.FillAction) {
	px := bar.AssetClose
	qty := b.shares
	b.cash += float64(qty) * px
	b.trades = append(b.trades, models.Trade{
		EntryTime:  b.pos.EntryTime,
		EntryPrice: b.pos.EntryPrice,
		ExitTime:   bar.Timestamp,
		ExitPrice:  px,
		Shares:     qty,
		ReturnPct:  (px/b.pos.EntryPrice - 1) * 100,
	})
	b.shares = 0
	b.pos = models.Position{State: models.Flat}
	b.sells++
	b.log(bar, action, px, ratio, base, qty, th)
}

// flatten liquidates at the last valid price.
func (b *book) flatten() {
	bar := b.lastBar
	bar.AssetClose = b.lastPrice
	r, _ := bar.Ratio()
	b.sell(bar, r, math.NaN(), b.p.Thresholds, models.ActionFlatten)
}

// mark appends the closing mark-to-market row.
func (b *book) mark() {
	if !b.p.Log || b.lastPrice == 0 {
		return
	}
	r, _ := b.lastBar.Ratio()
	b.log(b.lastBar, models.ActionMark, b.lastPrice, r, math.NaN(), b.shares, b.p.Thresholds)
}

func (b *book) log(bar models.MinuteBar, action models.FillAction, px, ratio, base float64, shares int64, th Thresholds) {
	if !b.p.Log {
		return
	}
	b.fills = append(b.fills, models.Fill{
		Symbol:   b.p.Symbol,
		Date:     bar.DateKey(),
		Time:     bar.LocalTime.String(),
		Session:  bar.Session,
		Action:   action,
		Price:    px,
		Ratio:    zeroIfNaN(ratio),
		Baseline: zeroIfNaN(base),
		Shares:   shares,
		BuyPct:   th.BuyPct,
		SellPct:  th.SellPct,
		Method:   b.p.Method,
	})
}

func zeroIfNaN(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
