package calc_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemb-pms/pms-backend/internal/estimation/calc"
	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
)

func TestToNumber(t *testing.T) {
	cases := map[string]float64{
		"":       0,
		"   ":    0,
		"abc":    0,
		"12":     12,
		" 7.5 ":  7.5,
		"-3":     -3,
		"12abc":  12,
		".5":     0.5,
		"5.":     5,
		"1e2":    100,
		"1e":     1,
		"NaN":    0,
		"Inf":    0,
		"-":      0,
		"3.2.1":  3.2,
		"+4 M/D": 4,
		"1_000":  1,
		"0x1p4":  0,
		"0x10":   0,
		"1e400":  0,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got := calc.ToNumber(in)
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, want, got, 1e-9)
		})
	}
}

func TestDeriveText_NeverNaN(t *testing.T) {
	inputs := []string{"10", "", "abc", "-2", "0", "2.5", "NaN", "1e400"}
	for _, q := range inputs {
		for _, r := range inputs {
			got := calc.DeriveText(q, r)
			assert.False(t, math.IsNaN(got), "q=%q r=%q", q, r)
			assert.False(t, math.IsInf(got, 0), "q=%q r=%q", q, r)
			assert.Equal(t, calc.Finite(calc.ToNumber(q)*calc.ToNumber(r)), got, "q=%q r=%q", q, r)
		}
	}
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	var body struct {
		A calc.Number `json:"a"`
		B calc.Number `json:"b"`
		C calc.Number `json:"c"`
		D calc.Number `json:"d"`
		E calc.Number `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a": 3.5, "b": "12", "c": "", "d": "abc", "e": null}`), &body)
	require.NoError(t, err)

	assert.Equal(t, 3.5, body.A.Float())
	assert.Equal(t, 12.0, body.B.Float())
	assert.Equal(t, 0.0, body.C.Float())
	assert.Equal(t, 0.0, body.D.Float())
	assert.Equal(t, 0.0, body.E.Float())
}

func TestRecompute_ReplacesCalculated(t *testing.T) {
	row := domain.LineItem{Quantity: 10, UnitRate: 5, Calculated: 999}
	row = calc.Recompute(row)
	assert.Equal(t, 50.0, row.Calculated)

	row.Quantity = 2
	row = calc.Recompute(row)
	assert.Equal(t, 10.0, row.Calculated, "recompute must replace, not increment")

	row.UnitRate = math.NaN()
	row = calc.Recompute(row)
	assert.Equal(t, 0.0, row.Calculated)
}

func TestSumBy_GrandTotalEqualsGroups(t *testing.T) {
	rows := []domain.LineItem{
		{Classification: "PM", Calculated: 5},
		{Classification: "개발", Calculated: 12.5},
		{Classification: "개발", Calculated: 7.5},
		{Classification: "I/F", Calculated: 3},
		{Classification: "", Calculated: 4},
		{Classification: "QA", Calculated: 2},
		{Classification: "QA", Calculated: math.NaN()},
	}

	keyFns := map[string]func(domain.LineItem) string{
		"classification": calc.ClassificationKey,
		"single":         func(domain.LineItem) string { return "all" },
		"first-rune": func(r domain.LineItem) string {
			if r.Classification == "" {
				return "?"
			}
			return string([]rune(r.Classification)[0])
		},
	}

	grand := calc.Sum(rows)
	assert.Equal(t, 34.0, grand)

	for name, fn := range keyFns {
		t.Run(name, func(t *testing.T) {
			sum := 0.0
			for _, v := range calc.SumBy(rows, fn) {
				sum += v
			}
			assert.InDelta(t, grand, sum, 1e-9)
		})
	}

	t.Run("ordered groups cover every row", func(t *testing.T) {
		groups := calc.OrderedGroups(calc.SumBy(rows, calc.ClassificationKey))
		sum := 0.0
		names := make([]string, 0, len(groups))
		for _, g := range groups {
			sum += g.MD
			names = append(names, g.Classification)
		}
		assert.InDelta(t, grand, sum, 1e-9)
		assert.Equal(t, []string{"PM", "개발", "I/F", "2D디자인", "포탈", "QA", "기타"}, names)
	})
}

func TestCoefficient(t *testing.T) {
	common := []domain.DifficultyItem{
		{ID: 1, Category: "요구사항", Difficulty: 2},
		{ID: 2, Category: "요구사항", Difficulty: 3},
	}
	field := []domain.DifficultyItem{
		{ID: 1, Category: "플랜트", Difficulty: 1},
		{ID: 2, Category: "발전", Difficulty: 3},
	}

	t.Run("empty pools yield zero", func(t *testing.T) {
		res := calc.Coefficient(calc.DifficultyInput{})
		assert.Equal(t, 0.0, res.Coefficient)
	})

	t.Run("defaults without field selection", func(t *testing.T) {
		res := calc.Coefficient(calc.DifficultyInput{Common: common, Field: field})
		assert.Equal(t, 5.0, res.CommonSum)
		assert.Equal(t, 0.0, res.FieldSum)
		assert.InDelta(t, 5.0/4.0, res.Coefficient, 1e-9)
	})

	t.Run("selected field category contributes", func(t *testing.T) {
		res := calc.Coefficient(calc.DifficultyInput{
			Common:             common,
			Field:              field,
			SelectedCategories: map[string]bool{"플랜트": true},
		})
		assert.Equal(t, 1.0, res.FieldSum)
		assert.Equal(t, 1, res.FieldCount)
		assert.InDelta(t, 6.0/6.0, res.Coefficient, 1e-9)
	})

	t.Run("selection overrides catalog default", func(t *testing.T) {
		res := calc.Coefficient(calc.DifficultyInput{
			Common:           common,
			CommonSelections: map[int64]int{1: 0, 2: 0},
		})
		assert.Equal(t, 0.0, res.Coefficient)
	})

	t.Run("all max scores yield 1.5", func(t *testing.T) {
		res := calc.Coefficient(calc.DifficultyInput{
			Common:             common,
			Field:              field,
			CommonSelections:   map[int64]int{1: 3, 2: 3},
			FieldSelections:    map[int64]int{1: 3, 2: 3},
			SelectedCategories: map[string]bool{"플랜트": true, "발전": true},
		})
		assert.InDelta(t, 1.5, res.Coefficient, 1e-9)
	})

	t.Run("monotonic in a single score", func(t *testing.T) {
		prev := -1.0
		for s := calc.MinScore; s <= calc.MaxScore; s++ {
			res := calc.Coefficient(calc.DifficultyInput{
				Common:           common,
				CommonSelections: map[int64]int{1: s},
			})
			assert.GreaterOrEqual(t, res.Coefficient, prev)
			prev = res.Coefficient
		}
	})
}

func TestWeightTable(t *testing.T) {
	entries := []domain.WeightEntry{
		{ID: 1, Content: "모델링 제공", Weight: 0.1},
		{ID: 2, Content: "CAD 도면 제공", Weight: 1.0},
		{ID: 5, Content: "실측 필요", Weight: 1.5},
	}

	t.Run("none selected is identity and flagged", func(t *testing.T) {
		wt := calc.NewWeightTable(entries)
		assert.True(t, wt.Unselected())
		assert.Equal(t, 1.0, wt.Multiplier())
	})

	t.Run("select known id", func(t *testing.T) {
		wt := calc.NewWeightTable(entries)
		require.NoError(t, wt.Select(5))
		id, ok := wt.Selected()
		assert.True(t, ok)
		assert.Equal(t, int64(5), id)
		assert.Equal(t, 1.5, wt.Multiplier())
	})

	t.Run("select unknown id is rejected", func(t *testing.T) {
		wt := calc.NewWeightTable(entries)
		require.NoError(t, wt.Select(2))
		err := wt.Select(99)
		assert.ErrorIs(t, err, domain.ErrUnknownWeight)
		id, _ := wt.Selected()
		assert.Equal(t, int64(2), id, "rejected transition keeps previous state")
	})

	t.Run("removing selected returns to none", func(t *testing.T) {
		wt := calc.NewWeightTable(entries)
		require.NoError(t, wt.Select(1))
		require.NoError(t, wt.Remove(1))
		assert.True(t, wt.Unselected())
		assert.Equal(t, 1.0, wt.Multiplier())
		assert.Equal(t, 2, wt.Len())
	})

	t.Run("removing other entry keeps selection", func(t *testing.T) {
		wt := calc.NewWeightTable(entries)
		require.NoError(t, wt.Select(2))
		require.NoError(t, wt.Remove(5))
		id, ok := wt.Selected()
		assert.True(t, ok)
		assert.Equal(t, int64(2), id)
	})

	t.Run("zero value table", func(t *testing.T) {
		var wt calc.WeightTable
		assert.Equal(t, 1.0, wt.Multiplier())
		assert.ErrorIs(t, wt.Select(1), domain.ErrUnknownWeight)
	})
}

func TestManMonths_SafeBase(t *testing.T) {
	for _, base := range []float64{0, -5, math.NaN(), math.Inf(1), calc.ToNumber("abc")} {
		assert.InDelta(t, 42.0/21.0, calc.ManMonths(42, base), 1e-9, "base=%v", base)
	}
	assert.InDelta(t, 2.0, calc.ManMonths(42, 21), 1e-9)
	assert.InDelta(t, 2.1, calc.ManMonths(42, 20), 1e-9)
}

func TestSummarize(t *testing.T) {
	t.Run("single development item with coefficient", func(t *testing.T) {
		dev := []domain.LineItem{calc.Recompute(domain.LineItem{Classification: "개발", Quantity: 10, UnitRate: 5})}
		require.Equal(t, 50.0, dev[0].Calculated)

		// 12 / (5 * 2) = 1.2
		common := make([]domain.DifficultyItem, 5)
		for i := range common {
			common[i] = domain.DifficultyItem{ID: int64(i + 1), Difficulty: 3}
		}
		common[4].Difficulty = 0

		s := calc.Summarize(calc.SummaryInput{
			Development:       dev,
			Difficulty:        calc.DifficultyInput{Common: common},
			MMCalculationBase: 21,
		})
		assert.InDelta(t, 1.2, s.Difficulty.Coefficient, 1e-9)
		assert.InDelta(t, 60.0, s.Development.FinalMD, 1e-9)
		assert.InDelta(t, 50*1.2/21, s.Development.MM, 1e-9)
		assert.InDelta(t, 2.857, s.Development.MM, 1e-3)
		assert.InDelta(t, s.Development.MM, s.TotalMM, 1e-9)
	})

	t.Run("no weight selected keeps raw aggregate", func(t *testing.T) {
		m3 := []domain.LineItem{calc.Recompute(domain.LineItem{Classification: "건물", Quantity: 100, UnitRate: 1})}
		s := calc.Summarize(calc.SummaryInput{
			Modeling3D:        m3,
			Modeling3DWeights: calc.NewWeightTable([]domain.WeightEntry{{ID: 1, Weight: 0.1}}),
			MMCalculationBase: 21,
		})
		assert.Equal(t, 100.0, s.Modeling3D.FinalMD)
		assert.True(t, s.Modeling3DUnselected)
		assert.True(t, s.PIDUnselected)
	})

	t.Run("total is sum of domains", func(t *testing.T) {
		pw := calc.NewWeightTable([]domain.WeightEntry{{ID: 2, Weight: 0.15}})
		require.NoError(t, pw.Select(2))
		s := calc.Summarize(calc.SummaryInput{
			Development:       []domain.LineItem{{Classification: "PM", Calculated: 21}},
			Modeling3D:        []domain.LineItem{{Calculated: 42}},
			PID:               []domain.LineItem{{Calculated: 140}},
			Difficulty:        calc.DifficultyInput{Common: []domain.DifficultyItem{{ID: 1, Difficulty: 2}}},
			PIDWeights:        pw,
			MMCalculationBase: -1,
		})
		assert.Equal(t, 21.0, s.MMCalculationBase)
		assert.InDelta(t, 1.0, s.Development.MM, 1e-9)
		assert.InDelta(t, 2.0, s.Modeling3D.MM, 1e-9)
		assert.InDelta(t, 1.0, s.PID.MM, 1e-9)
		assert.InDelta(t, 4.0, s.TotalMM, 1e-9)
		assert.False(t, s.PIDUnselected)
	})
}
