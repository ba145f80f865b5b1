package dataflows

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// SupportedIndicators maps indicator name to the description agents
// see when choosing which series to request.
var SupportedIndicators = map[string]string{
	"close_50_sma":  "50 SMA: medium-term trend direction and dynamic support/resistance.",
	"close_200_sma": "200 SMA: long-term trend benchmark for golden/death cross setups.",
	"close_10_ema":  "10 EMA: responsive short-term average capturing quick momentum shifts.",
	"macd":          "MACD: momentum via EMA differences, crossovers signal trend changes.",
	"macds":         "MACD Signal: EMA smoothing of the MACD line for crossover triggers.",
	"macdh":         "MACD Histogram: gap between MACD and its signal, shows momentum strength.",
	"rsi":           "RSI: momentum oscillator flagging overbought (70) and oversold (30) conditions.",
	"boll":          "Bollinger Middle: 20 SMA baseline of the Bollinger band system.",
	"boll_ub":       "Bollinger Upper: 2 standard deviations above the middle, overbought zone.",
	"boll_lb":       "Bollinger Lower: 2 standard deviations below the middle, oversold zone.",
	"atr":           "ATR: average true range for volatility-aware stop placement.",
	"vwma":          "VWMA: volume-weighted moving average confirming trend with volume.",
	"mfi":           "MFI: money flow index combining price and volume for buying pressure.",
}

// CalcIndicator computes one indicator series over the bars, keeping
// points inside [start, end]. Bars are sorted by date first.
func CalcIndicator(name string, bars []*MarketData, start, end time.Time) ([]IndicatorPoint, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("no price data")
	}
	sorted := make([]*MarketData, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	switch name {
	case "close_50_sma":
		return sma(sorted, 50, start, end), nil
	case "close_200_sma":
		return sma(sorted, 200, start, end), nil
	case "close_10_ema":
		return ema(sorted, 10, start, end)
	case "macd":
		return macdLine(sorted, start, end)
	case "macds":
		return macdSignal(sorted, start, end)
	case "macdh":
		return macdHistogram(sorted, start, end)
	case "rsi":
		return rsi(sorted, 14, start, end)
	case "boll":
		return sma(sorted, 20, start, end), nil
	case "boll_ub":
		return bollingerBand(sorted, 20, 2, start, end), nil
	case "boll_lb":
		return bollingerBand(sorted, 20, -2, start, end), nil
	case "atr":
		return atr(sorted, 14, start, end)
	case "vwma":
		return vwma(sorted, 20, start, end), nil
	case "mfi":
		return mfi(sorted, 14, start, end)
	}
	return nil, fmt.Errorf("unsupported indicator: %s", name)
}

func inRange(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}

func closeAt(bars []*MarketData, i int) float64 {
	return bars[i].Close.InexactFloat64()
}

func sma(bars []*MarketData, period int, start, end time.Time) []IndicatorPoint {
	var out []IndicatorPoint
	for i := period - 1; i < len(bars); i++ {
		if !inRange(bars[i].Date, start, end) {
			continue
		}
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += closeAt(bars, j)
		}
		out = append(out, IndicatorPoint{
			Date:  bars[i].Date.Format("2006-01-02"),
			Value: sum / float64(period),
		})
	}
	return out
}

func emaSeries(bars []*MarketData, period int) ([]float64, error) {
	if len(bars) < period {
		return nil, fmt.Errorf("insufficient data for %d-period EMA", period)
	}
	mult := 2.0 / (float64(period) + 1.0)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += closeAt(bars, i)
	}
	val := sum / float64(period)

	// series[i] aligns with bars[period-1+i]
	series := make([]float64, 0, len(bars)-period+1)
	series = append(series, val)
	for i := period; i < len(bars); i++ {
		val = closeAt(bars, i)*mult + val*(1-mult)
		series = append(series, val)
	}
	return series, nil
}

func ema(bars []*MarketData, period int, start, end time.Time) ([]IndicatorPoint, error) {
	series, err := emaSeries(bars, period)
	if err != nil {
		return nil, err
	}
	var out []IndicatorPoint
	for i, v := range series {
		bar := bars[period-1+i]
		if inRange(bar.Date, start, end) {
			out = append(out, IndicatorPoint{Date: bar.Date.Format("2006-01-02"), Value: v})
		}
	}
	return out, nil
}

// macdValues returns the MACD line aligned with bars[25:].
func macdValues(bars []*MarketData) ([]float64, error) {
	ema12, err := emaSeries(bars, 12)
	if err != nil {
		return nil, err
	}
	ema26, err := emaSeries(bars, 26)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ema26))
	for i := range ema26 {
		out[i] = ema12[i+14] - ema26[i]
	}
	return out, nil
}

func macdLine(bars []*MarketData, start, end time.Time) ([]IndicatorPoint, error) {
	macd, err := macdValues(bars)
	if err != nil {
		return nil, err
	}
	var out []IndicatorPoint
	for i, v := range macd {
		bar := bars[25+i]
		if inRange(bar.Date, start, end) {
			out = append(out, IndicatorPoint{Date: bar.Date.Format("2006-01-02"), Value: v})
		}
	}
	return out, nil
}

// signalValues returns the 9-period EMA of the MACD line, aligned with
// bars[33:].
func signalValues(bars []*MarketData) ([]float64, error) {
	macd, err := macdValues(bars)
	if err != nil {
		return nil, err
	}
	if len(macd) < 9 {
		return nil, fmt.Errorf("insufficient data for MACD signal")
	}
	mult := 2.0 / 10.0
	sum := 0.0
	for i := 0; i < 9; i++ {
		sum += macd[i]
	}
	val := sum / 9.0
	out := make([]float64, 0, len(macd)-8)
	out = append(out, val)
	for i := 9; i < len(macd); i++ {
		val = macd[i]*mult + val*(1-mult)
		out = append(out, val)
	}
	return out, nil
}

func macdSignal(bars []*MarketData, start, end time.Time) ([]IndicatorPoint, error) {
	signal, err := signalValues(bars)
	if err != nil {
		return nil, err
	}
	var out []IndicatorPoint
	for i, v := range signal {
		bar := bars[33+i]
		if inRange(bar.Date, start, end) {
			out = append(out, IndicatorPoint{Date: bar.Date.Format("2006-01-02"), Value: v})
		}
	}
	return out, nil
}

func macdHistogram(bars []*MarketData, start, end time.Time) ([]IndicatorPoint, error) {
	macd, err := macdValues(bars)
	if err != nil {
		return nil, err
	}
	signal, err := signalValues(bars)
	if err != nil {
		return nil, err
	}
	var out []IndicatorPoint
	for i, sv := range signal {
		bar := bars[33+i]
		if inRange(bar.Date, start, end) {
			out = append(out, IndicatorPoint{
				Date:  bar.Date.Format("2006-01-02"),
				Value: macd[8+i] - sv,
			})
		}
	}
	return out, nil
}

func rsi(bars []*MarketData, period int, start, end time.Time) ([]IndicatorPoint, error) {
	if len(bars) < period+1 {
		return nil, fmt.Errorf("insufficient data for RSI")
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := closeAt(bars, i) - closeAt(bars, i-1)
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	var out []IndicatorPoint
	for i := period; i < len(bars); i++ {
		if i > period {
			change := closeAt(bars, i) - closeAt(bars, i-1)
			gain, loss := 0.0, 0.0
			if change > 0 {
				gain = change
			} else {
				loss = -change
			}
			avgGain = (avgGain*float64(period-1) + gain) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		}

		value := 100.0
		if avgLoss != 0 {
			value = 100 - 100/(1+avgGain/avgLoss)
		}
		if inRange(bars[i].Date, start, end) {
			out = append(out, IndicatorPoint{Date: bars[i].Date.Format("2006-01-02"), Value: value})
		}
	}
	return out, nil
}

// bollingerBand computes middle + stdevs*sigma. Use stdevs=0 for the
// middle band.
func bollingerBand(bars []*MarketData, period int, stdevs float64, start, end time.Time) []IndicatorPoint {
	var out []IndicatorPoint
	for i := period - 1; i < len(bars); i++ {
		if !inRange(bars[i].Date, start, end) {
			continue
		}
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += closeAt(bars, j)
		}
		mean := sum / float64(period)

		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := closeAt(bars, j) - mean
			variance += d * d
		}
		sigma := math.Sqrt(variance / float64(period))

		out = append(out, IndicatorPoint{
			Date:  bars[i].Date.Format("2006-01-02"),
			Value: mean + stdevs*sigma,
		})
	}
	return out
}

func atr(bars []*MarketData, period int, start, end time.Time) ([]IndicatorPoint, error) {
	if len(bars) < period+1 {
		return nil, fmt.Errorf("insufficient data for ATR")
	}

	trueRange := func(i int) float64 {
		high := bars[i].High.InexactFloat64()
		low := bars[i].Low.InexactFloat64()
		prevClose := closeAt(bars, i-1)
		tr := high - low
		if d := math.Abs(high - prevClose); d > tr {
			tr = d
		}
		if d := math.Abs(low - prevClose); d > tr {
			tr = d
		}
		return tr
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += trueRange(i)
	}
	val := sum / float64(period)

	var out []IndicatorPoint
	for i := period; i < len(bars); i++ {
		if i > period {
			val = (val*float64(period-1) + trueRange(i)) / float64(period)
		}
		if inRange(bars[i].Date, start, end) {
			out = append(out, IndicatorPoint{Date: bars[i].Date.Format("2006-01-02"), Value: val})
		}
	}
	return out, nil
}

func vwma(bars []*MarketData, period int, start, end time.Time) []IndicatorPoint {
	var out []IndicatorPoint
	for i := period - 1; i < len(bars); i++ {
		if !inRange(bars[i].Date, start, end) {
			continue
		}
		priceVolume, volume := 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			v := float64(bars[j].Volume)
			priceVolume += closeAt(bars, j) * v
			volume += v
		}
		if volume == 0 {
			continue
		}
		out = append(out, IndicatorPoint{
			Date:  bars[i].Date.Format("2006-01-02"),
			Value: priceVolume / volume,
		})
	}
	return out
}

func mfi(bars []*MarketData, period int, start, end time.Time) ([]IndicatorPoint, error) {
	if len(bars) < period+1 {
		return nil, fmt.Errorf("insufficient data for MFI")
	}

	typical := func(i int) float64 {
		return (bars[i].High.InexactFloat64() + bars[i].Low.InexactFloat64() + closeAt(bars, i)) / 3
	}

	var out []IndicatorPoint
	for i := period; i < len(bars); i++ {
		if !inRange(bars[i].Date, start, end) {
			continue
		}
		posFlow, negFlow := 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			flow := typical(j) * float64(bars[j].Volume)
			if typical(j) > typical(j-1) {
				posFlow += flow
			} else if typical(j) < typical(j-1) {
				negFlow += flow
			}
		}

		value := 100.0
		if negFlow != 0 {
			value = 100 - 100/(1+posFlow/negFlow)
		}
		out = append(out, IndicatorPoint{Date: bars[i].Date.Format("2006-01-02"), Value: value})
	}
	return out, nil
}
