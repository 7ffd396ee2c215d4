package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Len(t, c.DevelopmentItems, 25)
	assert.Len(t, c.Modeling3DRates, 12)
	assert.Len(t, c.PIDRates, 2)
	assert.Len(t, c.Modeling3DWeights, 5)
	assert.Len(t, c.PIDWeights, 3)
	assert.Len(t, c.DifficultyItems, 40)
	assert.Equal(t, []string{"플랜트", "발전", "제조", "스마트시티"}, c.FieldCategories())

	assert.Equal(t, 0.5, c.DevelopmentItems[18].StandardMD)
	assert.Equal(t, 1.15, c.Modeling3DWeights[2].Weight)
	assert.Equal(t, "중복", c.Modeling3DRates[10].Difficulty)
}

func TestParse_NormalizesWeightsAndDuplicates(t *testing.T) {
	doc := []byte(`
modeling_3d_weights:
  - id: 1
    content: "a"
    weight: 0
  - id: 2
    content: "b"
field_difficulty_items:
  - id: 1
    category: "플랜트"
    difficulty: 2
  - id: 1
    category: "플랜트"
    difficulty: 2
`)
	c, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c.Modeling3DWeights[0].Weight)
	assert.Equal(t, 1.0, c.Modeling3DWeights[1].Weight)
	assert.Len(t, c.FieldDifficultyItems, 1)

	_, err = Parse([]byte("development_items: {"))
	assert.Error(t, err)
}
