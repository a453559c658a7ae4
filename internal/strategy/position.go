package strategy

import (
	"time"

	"github.com/tradelab/trendsniper/pkg/types"
)

// Direction of an open position.
type Direction int

const (
	Long Direction = iota
	Short
)

func (d Direction) String() string {
	if d == Short {
		return "short"
	}
	return "long"
}

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss      ExitReason = "stop_loss"
	ExitTrailingStop  ExitReason = "trailing_stop"
	ExitTrendReversal ExitReason = "trend_reversal"
)

// Position is the single open trade slot. The stop state machine starts
// with the hard stop only; once the favorable excursion reaches the
// trailing threshold it arms a trailing stop that ratchets monotonically
// in the trade's favor. Both the arming threshold and the trailing
// distance use the ATR captured at entry, not the live ATR, so the
// ratchet is well-defined.
type Position struct {
	Direction  Direction
	EntryPrice float64 // fill price, slippage included
	Size       float64
	EntryIndex int
	EntryTime  time.Time
	EntryATR   float64

	HardStop       float64
	TrailingActive bool
	TrailingStop   float64
}

// OpenPosition creates a position with its initial hard stop placed
// stopMultiplier ATRs away from the entry fill.
func OpenPosition(dir Direction, fillPrice, size float64, index int, entryTime time.Time, atr, stopMultiplier float64) *Position {
	p := &Position{
		Direction:  dir,
		EntryPrice: fillPrice,
		Size:       size,
		EntryIndex: index,
		EntryTime:  entryTime,
		EntryATR:   atr,
	}

	stopDistance := atr * stopMultiplier
	if dir == Long {
		p.HardStop = fillPrice - stopDistance
	} else {
		p.HardStop = fillPrice + stopDistance
	}
	return p
}

// UpdateTrailing advances the trailing-stop state machine with the bar's
// close. Arming is one-way; after that the stop only moves in the trade's
// favor.
func (p *Position) UpdateTrailing(close float64, trailMultiplier float64, enabled bool) {
	if !enabled {
		return
	}
	distance := trailMultiplier * p.EntryATR
	if distance <= 0 {
		return
	}

	switch p.Direction {
	case Long:
		if close-p.EntryPrice < distance && !p.TrailingActive {
			return
		}
		candidate := close - distance
		if !p.TrailingActive {
			p.TrailingActive = true
			p.TrailingStop = candidate
		} else if candidate > p.TrailingStop {
			p.TrailingStop = candidate
		}
	case Short:
		if p.EntryPrice-close < distance && !p.TrailingActive {
			return
		}
		candidate := close + distance
		if !p.TrailingActive {
			p.TrailingActive = true
			p.TrailingStop = candidate
		} else if candidate < p.TrailingStop {
			p.TrailingStop = candidate
		}
	}
}

// ActiveStop returns the stop price currently in force.
func (p *Position) ActiveStop() float64 {
	if p.TrailingActive {
		return p.TrailingStop
	}
	return p.HardStop
}

// StopHit reports whether the bar's range crossed the active stop. The
// returned price is the stop itself: a stop order fills at its level, not
// at the bar's close.
func (p *Position) StopHit(bar types.OHLCV) (price float64, reason ExitReason, hit bool) {
	stop := p.ActiveStop()
	reason = ExitStopLoss
	if p.TrailingActive {
		reason = ExitTrailingStop
	}

	switch p.Direction {
	case Long:
		if bar.Low <= stop {
			return stop, reason, true
		}
	case Short:
		if bar.High >= stop {
			return stop, reason, true
		}
	}
	return 0, "", false
}

// UnrealizedPnL marks the position to the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.Direction == Long {
		return (price - p.EntryPrice) * p.Size
	}
	return (p.EntryPrice - price) * p.Size
}
