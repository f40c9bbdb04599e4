package technical

import "FinSight/internal/domain/models"

type vote struct {
	signal   models.Signal
	strength models.Strength
}

// DeriveSignal combines four independent indicator votes into an overall
// buy/sell/hold call. A direction wins only with a strictly greater count,
// so ties resolve to hold.
func DeriveSignal(currentPrice, rsi float64, macd models.MACDResult, sma20, sma50 float64, bands models.BollingerBands) (models.Signal, models.Strength) {
	votes := []vote{
		rsiVote(rsi),
		macdVote(macd),
		movingAverageVote(currentPrice, sma20, sma50),
		bollingerVote(currentPrice, bands),
	}

	var buy, sell, hold int
	for _, v := range votes {
		switch v.signal {
		case models.SignalBuy:
			buy++
		case models.SignalSell:
			sell++
		default:
			hold++
		}
	}

	overall := models.SignalHold
	if buy > sell && buy > hold {
		overall = models.SignalBuy
	} else if sell > buy && sell > hold {
		overall = models.SignalSell
	}

	var strong, moderate int
	for _, v := range votes {
		switch v.strength {
		case models.StrengthStrong:
			strong++
		case models.StrengthModerate:
			moderate++
		}
	}

	strength := models.StrengthWeak
	if strong >= 2 {
		strength = models.StrengthStrong
	} else if strong >= 1 || moderate >= 2 {
		strength = models.StrengthModerate
	}

	return overall, strength
}

func rsiVote(rsi float64) vote {
	switch {
	case rsi <= 30:
		return vote{models.SignalBuy, models.StrengthStrong}
	case rsi <= 40:
		return vote{models.SignalBuy, models.StrengthModerate}
	case rsi >= 70:
		return vote{models.SignalSell, models.StrengthStrong}
	case rsi >= 60:
		return vote{models.SignalSell, models.StrengthModerate}
	default:
		return vote{models.SignalHold, models.StrengthWeak}
	}
}

func macdVote(m models.MACDResult) vote {
	switch {
	case m.Histogram > 0 && m.MACD > m.Signal:
		return vote{models.SignalBuy, models.StrengthModerate}
	case m.Histogram < 0 && m.MACD < m.Signal:
		return vote{models.SignalSell, models.StrengthModerate}
	default:
		return vote{models.SignalHold, models.StrengthWeak}
	}
}

func movingAverageVote(price, sma20, sma50 float64) vote {
	switch {
	case price > sma20 && sma20 > sma50:
		return vote{models.SignalBuy, models.StrengthModerate}
	case price < sma20 && sma20 < sma50:
		return vote{models.SignalSell, models.StrengthModerate}
	default:
		return vote{models.SignalHold, models.StrengthWeak}
	}
}

func bollingerVote(price float64, b models.BollingerBands) vote {
	switch {
	case price < b.Lower:
		return vote{models.SignalBuy, models.StrengthStrong}
	case price > b.Upper:
		return vote{models.SignalSell, models.StrengthStrong}
	default:
		return vote{models.SignalHold, models.StrengthWeak}
	}
}
