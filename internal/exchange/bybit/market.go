package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/tradelab/trendsniper/pkg/types"
)

// KlineInterval is a candle interval in Bybit's wire encoding: minute
// counts for intraday, letters for daily and up.
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval4h  KlineInterval = "240"
	Interval1d  KlineInterval = "D"
	Interval1w  KlineInterval = "W"
)

// ParseInterval converts common interval spellings ("1h", "4h", "1d",
// "15m") into the wire encoding.
func ParseInterval(s string) (KlineInterval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1m", "1":
		return Interval1m, nil
	case "5m", "5":
		return Interval5m, nil
	case "15m", "15":
		return Interval15m, nil
	case "30m", "30":
		return Interval30m, nil
	case "1h", "60":
		return Interval1h, nil
	case "4h", "240":
		return Interval4h, nil
	case "1d", "d":
		return Interval1d, nil
	case "1w", "w":
		return Interval1w, nil
	default:
		return "", fmt.Errorf("unsupported interval %q", s)
	}
}

// Duration returns the bar length of the interval.
func (i KlineInterval) Duration() time.Duration {
	switch i {
	case Interval1d:
		return 24 * time.Hour
	case Interval1w:
		return 7 * 24 * time.Hour
	default:
		minutes, err := strconv.Atoi(string(i))
		if err != nil {
			return 0
		}
		return time.Duration(minutes) * time.Minute
	}
}

// KlineParams holds parameters for one kline page request.
type KlineParams struct {
	Category string // "spot", "linear", "inverse"
	Symbol   string
	Interval KlineInterval
	Start    *time.Time
	End      *time.Time
	Limit    int // max 1000, default 200
}

// GetKlines fetches one page of candles, oldest first.
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]types.OHLCV, error) {
	if params.Category == "" {
		params.Category = "linear"
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > 1000 {
		params.Limit = 1000
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if params.Start != nil {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if params.End != nil {
		reqParams["end"] = params.End.UnixMilli()
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("get klines: %w", err)
	}

	bars, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("parse kline response: %w", err)
	}
	return bars, nil
}

// GetKlineRange pages through [start, end] and returns the full series in
// chronological order with page-seam duplicates removed.
func (c *Client) GetKlineRange(ctx context.Context, params KlineParams, start, end time.Time) ([]types.OHLCV, error) {
	step := params.Interval.Duration()
	if step <= 0 {
		return nil, fmt.Errorf("cannot page interval %q", params.Interval)
	}

	// Pause between pages to stay under Bybit's public rate limits.
	const pagePause = 100 * time.Millisecond

	var all []types.OHLCV
	cursor := start
	for cursor.Before(end) {
		if len(all) > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(pagePause):
			}
		}

		pageStart := cursor
		pageEnd := end
		page := params
		page.Start = &pageStart
		page.End = &pageEnd
		page.Limit = 1000

		bars, err := c.GetKlines(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			break
		}

		all = append(all, bars...)

		last := bars[len(bars)-1].Timestamp
		if !last.After(cursor) {
			break
		}
		cursor = last.Add(step)
	}

	return dedupe(all), nil
}

// parseKlineResponse decodes the raw API envelope into candles, oldest
// first. Bybit returns rows newest first.
func parseKlineResponse(response interface{}) ([]types.OHLCV, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("unmarshal kline result: %w", err)
	}

	bars := make([]types.OHLCV, 0, len(klineResult.List))
	// Wire format: [startTime, open, high, low, close, volume, turnover].
	for _, item := range klineResult.List {
		if len(item) < 6 {
			return nil, fmt.Errorf("kline row has %d fields, want at least 6", len(item))
		}

		ms, err := strconv.ParseInt(item[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid kline timestamp %q: %w", item[0], err)
		}

		bar := types.OHLCV{Timestamp: time.UnixMilli(ms).UTC()}
		fields := []struct {
			raw string
			dst *float64
		}{
			{item[1], &bar.Open},
			{item[2], &bar.High},
			{item[3], &bar.Low},
			{item[4], &bar.Close},
			{item[5], &bar.Volume},
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f.raw, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid kline value %q: %w", f.raw, err)
			}
			*f.dst = v
		}

		bars = append(bars, bar)
	}

	// Newest first on the wire.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

func dedupe(bars []types.OHLCV) []types.OHLCV {
	if len(bars) <= 1 {
		return bars
	}
	out := bars[:1]
	for _, bar := range bars[1:] {
		if !bar.Timestamp.After(out[len(out)-1].Timestamp) {
			continue
		}
		out = append(out, bar)
	}
	return out
}
