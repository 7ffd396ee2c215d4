package unitprices

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestIncreaseRate(t *testing.T) {
	r := IncreaseRate(dec("5000000"), dec("5250000"))
	require.NotNil(t, r)
	assert.Equal(t, "5", r.String())

	r = IncreaseRate(dec("3000000"), dec("3100000"))
	require.NotNil(t, r)
	assert.Equal(t, "3.33", r.String())

	assert.Nil(t, IncreaseRate(nil, dec("1")))
	assert.Nil(t, IncreaseRate(dec("1"), nil))
	assert.Nil(t, IncreaseRate(dec("0"), dec("1")))
}

func TestChainRates(t *testing.T) {
	rates := chainRates([]yearPoint{
		{ID: 3, Year: 2025, Internal: dec("5512500")},
		{ID: 1, Year: 2023, Internal: dec("5000000")},
		{ID: 2, Year: 2024, Internal: dec("5250000")},
		{ID: 4, Year: 2027, Internal: dec("6000000")},
	})

	require.Len(t, rates, 4)
	assert.Nil(t, rates[1], "first year has no predecessor")
	assert.Equal(t, "5", rates[2].String())
	assert.Equal(t, "5", rates[3].String())
	assert.Nil(t, rates[4], "2026 is missing")
}

func TestAverages(t *testing.T) {
	items := []UnitPrice{
		{AffiliationGroup: "외주_개발", ProposedApplied: dec("4000000")},
		{AffiliationGroup: "위엠비_컨설팅", ProposedApplied: dec("8000000"), InternalApplied: dec("6000000"), InternalIncreaseRate: dec("3")},
		{AffiliationGroup: "위엠비_컨설팅", ProposedApplied: dec("9000000"), InternalApplied: dec("7000000")},
		{AffiliationGroup: "기타"},
	}

	got := Averages(items)
	require.Len(t, got, 3)
	assert.Equal(t, "위엠비_컨설팅", got[0].AffiliationGroup)
	assert.Equal(t, "8500000", got[0].AverageProposedApplied.String())
	assert.Equal(t, "6500000", got[0].AverageInternalApplied.String())
	require.NotNil(t, got[0].AverageIncreaseRate)
	assert.Equal(t, "3", got[0].AverageIncreaseRate.String())

	assert.Equal(t, "외주_개발", got[1].AffiliationGroup)
	assert.Nil(t, got[1].AverageIncreaseRate)
	assert.True(t, got[1].AverageInternalApplied.IsZero())
	assert.Equal(t, "기타", got[2].AffiliationGroup)
}
