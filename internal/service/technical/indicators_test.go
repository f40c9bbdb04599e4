package technical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func flatSeries(price float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = price
	}
	return s
}

func risingSeries(start, step float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = start + step*float64(i)
	}
	return s
}

func TestRSIWithinBounds(t *testing.T) {
	series := [][]float64{
		risingSeries(100, 1.5, 60),
		risingSeries(200, -2.0, 60),
		{100, 102, 99, 104, 101, 103, 98, 105, 102, 104, 100, 106, 103, 105, 101, 107, 104, 106, 102, 108},
	}
	for _, closes := range series {
		rsi := RSI(closes)
		assert.GreaterOrEqual(t, rsi, 0.0)
		assert.LessOrEqual(t, rsi, 100.0)
	}
}

func TestRSIFlatSeriesIsNeutral(t *testing.T) {
	assert.Equal(t, 50.0, RSI(flatSeries(100, 60)))
}

func TestRSIShortSeriesIsNeutral(t *testing.T) {
	assert.Equal(t, 50.0, RSI([]float64{100, 101, 102}))
}

func TestRSIExtremes(t *testing.T) {
	// Strong trends with occasional tiny counter-moves, so both gain and
	// loss averages are non-zero.
	up := make([]float64, 0, 60)
	down := make([]float64, 0, 60)
	for i := 0; i < 60; i++ {
		step := 2.0
		if i%4 == 3 {
			step = -0.1
		}
		if len(up) == 0 {
			up = append(up, 100)
			down = append(down, 300)
			continue
		}
		up = append(up, up[len(up)-1]+step)
		down = append(down, down[len(down)-1]-step)
	}

	assert.Greater(t, RSI(up), 70.0, "sustained gains read overbought")
	assert.Less(t, RSI(down), 30.0, "sustained losses read oversold")
}

func TestMACDUptrendPositive(t *testing.T) {
	m := MACD(risingSeries(100, 1, 80))
	assert.Greater(t, m.MACD, 0.0)
	assert.InDelta(t, m.MACD-m.Signal, m.Histogram, 1e-9)
}

func TestMACDInsufficientHistory(t *testing.T) {
	m := MACD(risingSeries(100, 1, 10))
	assert.Zero(t, m.MACD)
	assert.Zero(t, m.Signal)
	assert.Zero(t, m.Histogram)
}

func TestSMA(t *testing.T) {
	closes := risingSeries(1, 1, 20) // 1..20
	assert.Equal(t, 10.5, SMA(closes, 20))
	assert.Equal(t, 18.0, SMA(closes, 5))
}

func TestSMAInsufficientHistoryFallsBackToCurrent(t *testing.T) {
	closes := []float64{10, 11, 12}
	assert.Equal(t, 12.0, SMA(closes, 20))
}

func TestBollingerMonotonicSeries(t *testing.T) {
	closes := risingSeries(100, 1, 30)
	b := Bollinger(closes)

	assert.InDelta(t, SMA(closes, 20), b.Middle, 1e-9, "middle band equals SMA-20")
	assert.Greater(t, b.Upper, b.Middle)
	assert.Greater(t, b.Middle, b.Lower)
}

func TestBollingerSymmetric(t *testing.T) {
	b := Bollinger(risingSeries(50, 0.5, 40))
	assert.InDelta(t, b.Upper-b.Middle, b.Middle-b.Lower, 1e-9)
}

func TestBollingerInsufficientHistoryDegrades(t *testing.T) {
	b := Bollinger([]float64{100, 102, 104})
	assert.InDelta(t, 114.4, b.Upper, 1e-9)
	assert.Equal(t, 104.0, b.Middle)
	assert.InDelta(t, 93.6, b.Lower, 1e-9)
}

func TestBollingerFlatSeriesCollapses(t *testing.T) {
	b := Bollinger(flatSeries(100, 25))
	assert.Equal(t, 100.0, b.Middle)
	assert.True(t, math.Abs(b.Upper-b.Lower) < 1e-9)
}
