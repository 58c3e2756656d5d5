package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Football", "football"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abc", ""))
	// kitten -> sitting: distance 3 over 7
	assert.InDelta(t, 4.0/7.0, Similarity("kitten", "sitting"), 1e-12)
}

func TestSimilarity_CountsCharactersNotBytes(t *testing.T) {
	// one substituted character over six, not two edits over seven bytes
	assert.InDelta(t, 5.0/6.0, Similarity("fútbol", "futbol"), 1e-12)
	assert.InDelta(t, 5.0/6.0, Similarity("FÚTBOL", "fútbal"), 1e-12)
	assert.Equal(t, 1.0, Similarity("Ñandú", "ñandú"))
}

func TestSuggest_NonASCIIVocabulary(t *testing.T) {
	v := NewVocabulary([]string{"Fútbol", "Baloncesto"}, []string{"Copa América"})

	got := v.Suggest("futbol")

	assert.Equal(t, []string{"Fútbol"}, got.Categories)
	assert.Empty(t, got.Subcategories)
}

func TestSuggest_Misspelling(t *testing.T) {
	got := Suggest("fotball")

	assert.Equal(t, []string{"Football"}, got.Categories)
	assert.False(t, got.Empty())
}

func TestSuggest_SubstringMatchesBothVocabularies(t *testing.T) {
	got := Suggest("cricket")

	assert.Equal(t, []string{"Cricket"}, got.Categories)
	assert.Equal(t, []string{"Test Cricket"}, got.Subcategories)
}

func TestSuggest_SubcategoryThresholdIsLooser(t *testing.T) {
	got := Suggest("leage")

	// No entry contains "leage", so every suggestion came from similarity.
	for _, s := range got.Subcategories {
		assert.Greater(t, Similarity("leage", s), SubcategoryThreshold)
	}
	assert.Empty(t, got.Categories)
}

func TestSuggest_BlankQuery(t *testing.T) {
	for _, q := range []string{"", "   "} {
		got := Suggest(q)
		assert.Empty(t, got.Categories)
		assert.Empty(t, got.Subcategories)
		assert.True(t, got.Empty())
	}
}

func TestSuggest_NoMatch(t *testing.T) {
	got := Suggest("zzzzzzzzzzzz")

	assert.NotNil(t, got.Categories)
	assert.True(t, got.Empty())
}

func TestVocabulary_Custom(t *testing.T) {
	v := NewVocabulary([]string{"Esports", "Darts"}, nil)

	got := v.Suggest("dart")

	assert.Equal(t, []string{"Darts"}, got.Categories)
	assert.Equal(t, DefaultVocabulary().Subcategories, v.Subcategories)
}
