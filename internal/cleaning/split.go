package cleaning

import (
	"fmt"
	"log/slog"

	"github.com/Karagul/WorldQuant-BTC-Trading/internal/config"
	"github.com/Karagul/WorldQuant-BTC-Trading/internal/dataset"
	"github.com/Karagul/WorldQuant-BTC-Trading/pkg/contracts/domain"
)

// Split cuts the table chronologically into train, validation and test
// sets. Row counts are floored from the ratios, the test split takes
// the remainder. Shuffling would leak future information into train,
// so order is preserved.
func (c *Cleaner) Split(frame *dataset.Frame) (map[domain.Split]*dataset.Frame, error) {
	trainRatio := c.cfg.TrainRatio
	validationRatio := c.cfg.ValidationRatio
	if trainRatio+validationRatio >= 1 {
		return nil, fmt.Errorf("train ratio %v + validation ratio %v must be below 1", trainRatio, validationRatio)
	}

	n := frame.Len()
	trainEnd := int(float64(n) * trainRatio)
	validationEnd := trainEnd + int(float64(n)*validationRatio)

	bounds := map[domain.Split][2]int{
		domain.SplitTrain:      {0, trainEnd},
		domain.SplitValidation: {trainEnd, validationEnd},
		domain.SplitTest:       {validationEnd, n},
	}

	splits := make(map[domain.Split]*dataset.Frame, len(bounds))
	for _, split := range domain.Splits {
		b := bounds[split]
		rows := b[1] - b[0]
		if rows < config.MinSplitRows {
			return nil, fmt.Errorf("%s split has %d rows, need at least %d", split, rows, config.MinSplitRows)
		}
		part, err := frame.Slice(b[0], b[1])
		if err != nil {
			return nil, err
		}
		splits[split] = part
		slog.Info("split rows",
			"split", string(split),
			"rows", rows,
			"from", part.Date(0).Format(config.DateLayout),
			"to", part.Date(rows-1).Format(config.DateLayout))
	}
	return splits, nil
}
