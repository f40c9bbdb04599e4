package technical

import (
	"math"

	"FinSight/internal/domain/models"
)

const (
	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	smaShortPeriod   = 20
	smaLongPeriod    = 50
	bollingerPeriod  = 20
	bollingerWidth   = 2.0
)

// RSI computes the 14-period relative strength index over closing prices
// using Wilder smoothing. A series without losses in the window reads as
// neutral 50 instead of amplifying the division artifact.
func RSI(closes []float64) float64 {
	if len(closes) < rsiPeriod+1 {
		return 50.0
	}

	var avgGain, avgLoss float64
	for i := 1; i <= rsiPeriod; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= rsiPeriod
	avgLoss /= rsiPeriod

	for i := rsiPeriod + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(rsiPeriod-1) + gain) / rsiPeriod
		avgLoss = (avgLoss*(rsiPeriod-1) + loss) / rsiPeriod
	}

	if avgLoss == 0 {
		return 50.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// ema computes an exponential moving average series seeded with the first
// value.
func ema(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	k := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

// MACD computes the 12/26 EMA difference with a 9-period signal line.
func MACD(closes []float64) models.MACDResult {
	if len(closes) < macdSlowPeriod {
		return models.MACDResult{}
	}

	fast := ema(closes, macdFastPeriod)
	slow := ema(closes, macdSlowPeriod)

	macdLine := make([]float64, len(closes))
	for i := range closes {
		macdLine[i] = fast[i] - slow[i]
	}
	signal := ema(macdLine, macdSignalPeriod)

	last := len(closes) - 1
	return models.MACDResult{
		MACD:      macdLine[last],
		Signal:    signal[last],
		Histogram: macdLine[last] - signal[last],
	}
}

// SMA computes a simple moving average over the trailing period. With
// insufficient history it falls back to the latest price.
func SMA(closes []float64, period int) float64 {
	if len(closes) == 0 {
		return 0
	}
	if len(closes) < period {
		return closes[len(closes)-1]
	}
	var sum float64
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

// Bollinger computes 20-period bands at two standard deviations. With
// insufficient history the bands degrade to ten percent around the latest
// price.
func Bollinger(closes []float64) models.BollingerBands {
	if len(closes) == 0 {
		return models.BollingerBands{}
	}
	current := closes[len(closes)-1]
	if len(closes) < bollingerPeriod {
		return models.BollingerBands{
			Upper:  current * 1.10,
			Middle: current,
			Lower:  current * 0.90,
		}
	}

	window := closes[len(closes)-bollingerPeriod:]
	middle := SMA(closes, bollingerPeriod)

	var variance float64
	for _, c := range window {
		d := c - middle
		variance += d * d
	}
	std := math.Sqrt(variance / float64(bollingerPeriod-1))

	return models.BollingerBands{
		Upper:  middle + bollingerWidth*std,
		Middle: middle,
		Lower:  middle - bollingerWidth*std,
	}
}
