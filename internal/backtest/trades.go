package backtest

import "github.com/keelquant/keel/internal/core"

// ExtractTrades walks the position series once, opening a trade when
// the position crosses from 0 to a positive value and closing it when
// the position returns to exactly 0. Partial scale-ins and scale-outs
// from continuous sizing are not separate trades, which keeps the
// trade log interpretable. A position still open at the final bar
// yields no record; the equity curve accounts for it regardless.
func ExtractTrades(bars []core.Bar, position []float64) []TradeRecord {
	var trades []TradeRecord
	inTrade := false
	var entry TradeRecord

	for i, pos := range position {
		switch {
		case !inTrade && pos > 0:
			inTrade = true
			entry = TradeRecord{
				EntryDate:  bars[i].Time,
				EntryPrice: bars[i].Close,
			}
		case inTrade && pos == 0:
			entry.ExitDate = bars[i].Time
			entry.ExitPrice = bars[i].Close
			entry.Return = entry.ExitPrice/entry.EntryPrice - 1
			trades = append(trades, entry)
			inTrade = false
		}
	}
	return trades
}
