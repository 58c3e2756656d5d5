package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	plan := Parse("  Arsenal injuries ")

	assert.Equal(t, "  Arsenal injuries ", plan.RawQuery)
	assert.Equal(t, "Arsenal injuries", plan.Text)
	assert.Equal(t, []string{"arsenal", "injury"}, plan.Terms)
	assert.False(t, plan.IsEmpty())
}

func TestParse_Blank(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		plan := Parse(q)
		assert.True(t, plan.IsEmpty(), "query %q", q)
		assert.Empty(t, plan.Terms)
	}
	var nilPlan *QueryPlan
	assert.True(t, nilPlan.IsEmpty())
}

func TestParse_StopWordsOnlyIsNotEmpty(t *testing.T) {
	plan := Parse("the")

	assert.False(t, plan.IsEmpty())
	assert.Empty(t, plan.Terms)
}
