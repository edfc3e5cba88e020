package markovchain

import (
	"fmt"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

// RegimeStats joins the decoded regimes of a state table against the
// cleaned split it was built from and averages return and volatility
// per regime. The state table is shorter than the cleaned split, so
// the join is an inner join on date; an empty join is an error.
func RegimeStats(cleaned, table *dataset.Frame, states int) ([]domain.RegimeStat, error) {
	returns, err := cleaned.Column(dataset.ColReturn)
	if err != nil {
		return nil, err
	}
	volatility, err := cleaned.Column(dataset.ColVolatility)
	if err != nil {
		return nil, err
	}
	regimes, err := table.Column(dataset.ColRegime)
	if err != nil {
		return nil, err
	}

	idxCleaned, idxTable := dataset.AlignDates(cleaned, table)
	if len(idxCleaned) == 0 {
		return nil, fmt.Errorf("cleaned data and state table share no dates")
	}

	days := make([]int, states)
	sumReturn := make([]float64, states)
	sumVolatility := make([]float64, states)
	for k := range idxCleaned {
		regime := int(regimes[idxTable[k]])
		if regime < 0 || regime >= states {
			return nil, fmt.Errorf("regime %d outside 0..%d", regime, states-1)
		}
		days[regime]++
		sumReturn[regime] += returns[idxCleaned[k]]
		sumVolatility[regime] += volatility[idxCleaned[k]]
	}

	stats := make([]domain.RegimeStat, states)
	for s := 0; s < states; s++ {
		stats[s] = domain.RegimeStat{State: s, Days: days[s]}
		if days[s] > 0 {
			stats[s].MeanReturn = sumReturn[s] / float64(days[s])
			stats[s].MeanVolatility = sumVolatility[s] / float64(days[s])
		}
	}
	return stats, nil
}
