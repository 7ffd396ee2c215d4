package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/wemb-pms/pms-backend/internal/settlement/domain"
)

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}

func fromNull(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func nonNilValues(m domain.MonthValues) domain.MonthValues {
	if m == nil {
		return domain.MonthValues{}
	}
	return m
}

func nonNilAmounts(m domain.MonthAmounts) domain.MonthAmounts {
	if m == nil {
		return domain.MonthAmounts{}
	}
	return m
}

// Malformed JSONB decodes to an empty map rather than failing the read.
func decodeValues(raw []byte) domain.MonthValues {
	out := domain.MonthValues{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return domain.MonthValues{}
		}
	}
	return out
}

func decodeAmounts(raw []byte) domain.MonthAmounts {
	out := domain.MonthAmounts{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return domain.MonthAmounts{}
		}
	}
	return out
}
