package sheet

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemb-pms/pms-backend/internal/estimation/calc"
	"github.com/wemb-pms/pms-backend/internal/estimation/domain"
)

func testDefaults() Defaults {
	return Defaults{
		DevelopmentItems: []domain.LineItem{
			{Ref: domain.Seeded(1), Classification: "PM", Content: "프로젝트 관리", UnitRate: 5},
			{Ref: domain.Seeded(2), Classification: "개발", Content: "화면 개발", UnitRate: 10},
			{Ref: domain.Seeded(3), Classification: "I/F", Content: "연계", UnitRate: 2},
		},
		Modeling3DRates: []domain.LineItem{
			{Ref: domain.Seeded(1), Classification: "건물", Difficulty: "상", Quantity: 1, UnitRate: 1},
			{Ref: domain.Seeded(2), Classification: "층", Difficulty: "중", Quantity: 100, UnitRate: 0.3},
		},
		PIDRates: []domain.LineItem{
			{Ref: domain.Seeded(1), Classification: "P&ID", Quantity: 500, UnitRate: 1},
		},
		Modeling3DWeights: []domain.WeightEntry{
			{ID: 1, Content: "모델링 제공", Weight: 0.1},
			{ID: 2, Content: "CAD 도면 제공", Weight: 1.0},
			{ID: 4, Content: "사진/실측 제공", Weight: 1.3},
		},
		PIDWeights: []domain.WeightEntry{
			{ID: 1, Content: "수기 작성", Weight: 1.0},
			{ID: 2, Content: "DrawDX", Weight: 0.15},
		},
		CommonDifficulty: []domain.DifficultyItem{
			{ID: 1, Category: "요구사항", Difficulty: 2},
			{ID: 2, Category: "기술 환경", Difficulty: 2},
		},
		FieldDifficulty: []domain.DifficultyItem{
			{ID: 10, Category: "플랜트", Difficulty: 3},
			{ID: 10, Category: "플랜트", Difficulty: 3},
			{ID: 11, Category: "발전", Difficulty: 1},
		},
	}
}

var sheetCmp = []cmp.Option{
	cmp.AllowUnexported(Sheet{}, calc.WeightTable{}, domain.ItemRef{}),
	cmpopts.EquateEmpty(),
}

func TestSheet_TypedUpdates(t *testing.T) {
	s := New(testDefaults())

	t.Run("quantity text is coerced and recomputed", func(t *testing.T) {
		require.NoError(t, s.SetQuantity(Development, domain.Seeded(2), "3일"))
		items := s.Items(Development)
		assert.Equal(t, 3.0, items[1].Quantity)
		assert.Equal(t, 30.0, items[1].Calculated)
		assert.Equal(t, 30.0, s.Summary().Development.RawMD)
	})

	t.Run("seeded rows keep their classification and content", func(t *testing.T) {
		assert.ErrorIs(t, s.SetClassification(Development, domain.Seeded(1), "개발"), domain.ErrReadOnlyField)
		assert.ErrorIs(t, s.SetContent(Development, domain.Seeded(1), "x"), domain.ErrReadOnlyField)
		assert.NoError(t, s.SetRemarks(Development, domain.Seeded(1), "비고"))
	})

	t.Run("user added rows are editable", func(t *testing.T) {
		ref := s.AddItem(Development, domain.LineItem{Classification: "커스텀", UnitRate: 2})
		assert.False(t, ref.IsSeeded())
		require.NoError(t, s.SetContent(Development, ref, "추가 작업"))
		require.NoError(t, s.SetQuantity(Development, ref, "4"))
		assert.Equal(t, 38.0, s.Summary().Development.RawMD)

		require.NoError(t, s.RemoveItem(Development, ref))
		assert.Equal(t, 30.0, s.Summary().Development.RawMD)
		assert.ErrorIs(t, s.RemoveItem(Development, ref), domain.ErrItemNotFound)
	})

	t.Run("difficulty scores are bounded", func(t *testing.T) {
		assert.ErrorIs(t, s.SetCommonDifficulty(1, 4), domain.ErrInvalidScore)
		assert.ErrorIs(t, s.SetCommonDifficulty(99, 1), domain.ErrItemNotFound)
		require.NoError(t, s.SetCommonDifficulty(1, 0))
		// (0 + 2) / (2 * 2)
		assert.InDelta(t, 0.5, s.Summary().Difficulty.Coefficient, 1e-9)
	})

	t.Run("field category toggles contribution", func(t *testing.T) {
		assert.True(t, s.ToggleFieldCategory("플랜트"))
		// (0 + 2 + 3) / (3 * 2); duplicate field item counted once
		assert.InDelta(t, 5.0/6.0, s.Summary().Difficulty.Coefficient, 1e-9)
		assert.False(t, s.ToggleFieldCategory("플랜트"))
		assert.InDelta(t, 0.5, s.Summary().Difficulty.Coefficient, 1e-9)
	})

	t.Run("weight selection drives the multiplier", func(t *testing.T) {
		assert.True(t, s.Summary().Modeling3DUnselected)
		assert.ErrorIs(t, s.SelectWeight(Modeling3DWeights, 3), domain.ErrUnknownWeight)
		require.NoError(t, s.SelectWeight(Modeling3DWeights, 4))
		assert.InDelta(t, 1.3, s.Summary().Modeling3D.Multiplier, 1e-9)

		require.NoError(t, s.RemoveWeight(Modeling3DWeights, 4))
		assert.True(t, s.Summary().Modeling3DUnselected)
		assert.Equal(t, 1.0, s.Summary().Modeling3D.Multiplier)
	})

	t.Run("weights accessor returns a copy", func(t *testing.T) {
		w := s.Weights(PIDWeights)
		require.NoError(t, w.Select(2))
		assert.True(t, s.Summary().PIDUnselected)
	})

	t.Run("bad base falls back at use", func(t *testing.T) {
		s.SetMMCalculationBase("abc")
		assert.Equal(t, 0.0, s.MMCalculationBase())
		assert.Equal(t, calc.DefaultMMCalculationBase, s.Summary().MMCalculationBase)
	})
}

func TestSerialize_RoundTrip(t *testing.T) {
	d := testDefaults()

	t.Run("seeded and user added rows", func(t *testing.T) {
		s := New(d)
		require.NoError(t, s.SetQuantity(Development, domain.Seeded(1), "2"))
		ref := s.AddItem(Development, domain.LineItem{Classification: "포탈", Content: "대시보드", Quantity: 1, UnitRate: 3})
		s.AddItem(PID, domain.LineItem{Classification: "SLD", Quantity: 10, UnitRate: 0.5})
		require.NoError(t, s.SetCommonDifficulty(2, 3))
		require.NoError(t, s.SetFieldDifficulty(11, 2))
		s.ToggleFieldCategory("발전")
		require.NoError(t, s.SelectWeight(Modeling3DWeights, 2))
		s.SetMMCalculationBase("20")

		got, rep, err := Deserialize(Serialize(s), d)
		require.NoError(t, err)
		assert.Equal(t, LoadReplaced, rep.Development)
		assert.False(t, rep.StaleSelection())
		if diff := cmp.Diff(s, got, sheetCmp...); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}

		restored := got.Items(Development)
		assert.Equal(t, ref, restored[len(restored)-1].Ref)
	})

	t.Run("cleared development collection stays cleared", func(t *testing.T) {
		s := New(d)
		for _, it := range s.Items(Development) {
			require.NoError(t, s.RemoveItem(Development, it.Ref))
		}

		got, rep, err := Deserialize(Serialize(s), d)
		require.NoError(t, err)
		assert.Equal(t, LoadCleared, rep.Development)
		assert.Empty(t, got.Items(Development))
		if diff := cmp.Diff(s, got, sheetCmp...); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("survives json encoding", func(t *testing.T) {
		s := New(d)
		s.AddItem(Modeling3D, domain.LineItem{Classification: "캐릭터", Quantity: 2, UnitRate: 5})
		require.NoError(t, s.SelectWeight(PIDWeights, 2))

		raw, err := json.Marshal(Serialize(s))
		require.NoError(t, err)
		var p Payload
		require.NoError(t, json.Unmarshal(raw, &p))

		got, _, err := Deserialize(p, d)
		require.NoError(t, err)
		if diff := cmp.Diff(s, got, sheetCmp...); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestDeserialize_CollectionAsymmetry(t *testing.T) {
	d := testDefaults()
	empty3D := []Modeling3DRecord{}
	emptyDev := []DevelopmentRecord{}

	got, rep, err := Deserialize(Payload{Modeling3DItems: &empty3D}, d)
	require.NoError(t, err)
	assert.Equal(t, LoadDefaulted, rep.Development)
	assert.Equal(t, LoadDefaulted, rep.Modeling3D)
	assert.Equal(t, LoadDefaulted, rep.PID)
	assert.Len(t, got.Items(Development), 3)
	for _, it := range got.Items(Modeling3D) {
		assert.Zero(t, it.Quantity, "defaults are loaded with zero quantity")
	}

	got, rep, err = Deserialize(Payload{DevelopmentItems: &emptyDev}, d)
	require.NoError(t, err)
	assert.Equal(t, LoadCleared, rep.Development)
	assert.Empty(t, got.Items(Development))
}

func TestDeserialize_IgnoresStoredCalculated(t *testing.T) {
	id := int64(2)
	dev := []DevelopmentRecord{{DevelopmentItemID: &id, Classification: "개발", Quantity: 2, StandardMD: 10, CalculatedMD: 999}}

	got, _, err := Deserialize(Payload{DevelopmentItems: &dev}, testDefaults())
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Items(Development)[0].Calculated)
}

func TestDeserialize_WeightPrecedence(t *testing.T) {
	d := testDefaults()

	t.Run("payload table wins over catalog", func(t *testing.T) {
		table := []domain.WeightEntry{{ID: 7, Content: "custom", Weight: 2}}
		sel := int64(7)
		got, rep, err := Deserialize(Payload{WeightTable: &table, SelectedModeling3DWeightID: SetID(&sel)}, d)
		require.NoError(t, err)
		assert.Equal(t, SourcePayload, rep.Modeling3DWeights.Source)
		assert.Equal(t, 2.0, got.Summary().Modeling3D.Multiplier)
	})

	t.Run("empty payload table defers to catalog", func(t *testing.T) {
		table := []domain.WeightEntry{}
		got, rep, err := Deserialize(Payload{WeightTable: &table}, d)
		require.NoError(t, err)
		assert.Equal(t, SourceCatalog, rep.Modeling3DWeights.Source)
		assert.Equal(t, 3, got.Weights(Modeling3DWeights).Len())
	})

	t.Run("stale selection is reported", func(t *testing.T) {
		sel := int64(42)
		got, rep, err := Deserialize(Payload{SelectedPIDWeightID: SetID(&sel)}, d)
		require.NoError(t, err)
		assert.True(t, rep.StaleSelection())
		assert.True(t, got.Summary().PIDUnselected)
	})
}

func TestDeserialize_InvalidScore(t *testing.T) {
	id := int64(1)
	diffs := []DifficultyRecord{{DifficultyItemID: &id, SelectedDifficulty: 5}}
	_, _, err := Deserialize(Payload{Difficulties: &diffs}, testDefaults())
	assert.ErrorIs(t, err, domain.ErrInvalidScore)
}

func TestPayload_HasContent(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"status":"COMPLETED"}`), &p))
	assert.False(t, p.HasContent())

	require.NoError(t, json.Unmarshal([]byte(`{"selected_pid_weight_id":null}`), &p))
	assert.True(t, p.HasContent())
	assert.Nil(t, p.SelectedPIDWeightID.Value)
}

func TestSelectionLoader(t *testing.T) {
	catalog := []domain.WeightEntry{{ID: 1, Weight: 0.1}, {ID: 2, Weight: 1.0}}
	sel := int64(2)

	t.Run("selection waits for the catalog", func(t *testing.T) {
		l := NewSelectionLoader()
		require.NoError(t, l.Restore(nil, &sel))
		_, _, err := l.Resolve()
		assert.ErrorIs(t, err, ErrSelectionPending)

		require.NoError(t, l.BeginCatalog())
		assert.Equal(t, PhaseCatalogLoading, l.Phase())
		_, _, err = l.Resolve()
		assert.ErrorIs(t, err, ErrSelectionPending)

		require.NoError(t, l.CatalogLoaded(catalog))
		table, res, err := l.Resolve()
		require.NoError(t, err)
		assert.Equal(t, PhaseSelectionResolved, l.Phase())
		assert.False(t, res.StaleSelection)
		id, ok := table.Selected()
		assert.True(t, ok)
		assert.Equal(t, int64(2), id)
	})

	t.Run("arrival order does not change the outcome", func(t *testing.T) {
		custom := []domain.WeightEntry{{ID: 2, Weight: 1.5}}

		early := NewSelectionLoader()
		require.NoError(t, early.Restore(custom, &sel))
		require.NoError(t, early.BeginCatalog())
		require.NoError(t, early.CatalogLoaded(catalog))

		late := NewSelectionLoader()
		require.NoError(t, late.BeginCatalog())
		require.NoError(t, late.CatalogLoaded(catalog))
		require.NoError(t, late.Restore(custom, &sel))

		a, ra, err := early.Resolve()
		require.NoError(t, err)
		b, rb, err := late.Resolve()
		require.NoError(t, err)
		assert.Equal(t, ra, rb)
		assert.Equal(t, 1.5, a.Multiplier())
		assert.Equal(t, a.Multiplier(), b.Multiplier())
	})

	t.Run("invalid transitions", func(t *testing.T) {
		l := NewSelectionLoader()
		assert.ErrorIs(t, l.CatalogLoaded(catalog), ErrLoaderPhase)
		require.NoError(t, l.BeginCatalog())
		assert.ErrorIs(t, l.BeginCatalog(), ErrLoaderPhase)
		require.NoError(t, l.CatalogLoaded(catalog))
		_, _, err := l.Resolve()
		require.NoError(t, err)
		assert.ErrorIs(t, l.Restore(nil, nil), ErrLoaderPhase)
	})
}
