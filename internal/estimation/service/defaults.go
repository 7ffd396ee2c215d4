package service

import (
	catdomain "github.com/wemb-pms/pms-backend/internal/catalog/domain"
	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
	"github.com/wemb-pms/pms-backend/internal/estimation/sheet"
)

// DefaultsFromCatalog maps catalog rows onto seeded sheet rows.
func DefaultsFromCatalog(c catdomain.Catalog, mmBase float64) sheet.Defaults {
	d := sheet.Defaults{
		Modeling3DWeights: c.Modeling3DWeights,
		PIDWeights:        c.PIDWeights,
		CommonDifficulty:  c.DifficultyItems,
		FieldDifficulty:   c.FieldDifficultyItems,
		MMCalculationBase: mmBase,
	}
	for _, it := range c.DevelopmentItems {
		d.DevelopmentItems = append(d.DevelopmentItems, domain.LineItem{
			Ref:            domain.Seeded(it.ID),
			Classification: it.Classification,
			Content:        it.Content,
			UnitRate:       it.StandardMD,
		})
	}
	d.Modeling3DRates = rateItems(c.Modeling3DRates)
	d.PIDRates = rateItems(c.PIDRates)
	return d
}

func rateItems(in []catdomain.RateItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(in))
	for _, it := range in {
		out = append(out, domain.LineItem{
			Ref:            domain.Seeded(it.ID),
			Classification: it.Category,
			Difficulty:     it.Difficulty,
			Quantity:       it.Quantity,
			UnitRate:       it.BaseMD,
			Remarks:        it.Remarks,
		})
	}
	return out
}
