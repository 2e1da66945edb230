package scoring

import (
	"testing"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/stretchr/testify/assert"
)

func Test_StrictScore_InstallationPhraseSaturates(t *testing.T) {
	scorer := NewFenestrationScorer()

	score := scorer.Score("Výrobu a montáž oken", "pro bytový dům", "")

	assert.Equal(t, 1.0, score)
	assert.True(t, scorer.Accept(score))
}

func Test_StrictScore_AccentFreeSpelling(t *testing.T) {
	scorer := NewFenestrationScorer()

	assert.Equal(t, 1.0, scorer.Score("Montaz oken", "", ""))
}

func Test_StrictScore_CleaningIsRejected(t *testing.T) {
	scorer := NewFenestrationScorer()

	score := scorer.Score("Mytí oken", "pravidelný úklid kanceláří", "okna")

	assert.Equal(t, 0.0, score)
	assert.False(t, scorer.Accept(score))
}

func Test_StrictScore_KeywordBonusAndRounding(t *testing.T) {
	scorer := NewFenestrationScorer()

	// dodávka 1.0 + oken 0.5 + keyword bonus 0.5 = 2.0 / 3.0
	score := scorer.Score("Dodávka oken", "", "oken")

	assert.Equal(t, 0.67, score)
}

func Test_StrictScore_SingleWeakTermSitsOnThreshold(t *testing.T) {
	scorer := NewFenestrationScorer()

	score := scorer.Score("Zasklení balkonu", "", "")

	assert.Equal(t, 0.3, score)
	assert.True(t, scorer.Accept(score))
}

func Test_StrictScore_TradePenalties(t *testing.T) {
	scorer := NewFenestrationScorer()

	score := scorer.Score("Plumbing and electrical work", "boiler replacement", "")

	assert.Equal(t, 0.0, score)
}

func Test_StrictScore_EmptyText(t *testing.T) {
	assert.Equal(t, 0.0, NewFenestrationScorer().Score("", "  ", "okna"))
}

func Test_StrictScorer_LaterTablesOverride(t *testing.T) {
	scorer := NewStrictScorer(map[string]float64{"skylight": 0.3}, map[string]float64{"Skylight": 3.0})

	assert.Equal(t, 1.0, scorer.Score("New skylight", "", ""))
}

func Test_StrictFilter_DropsRejectedAndSetsScore(t *testing.T) {
	scorer := NewFenestrationScorer()
	candidates := []entities.Candidate{
		{Title: "Výměna oken v základní škole", Source: entities.PoptavkyCz},
		{Title: "Dvířka pro kočky", Source: entities.PoptavkyCz},
		{Title: "Úklid po rekonstrukci", Source: entities.PoptavkyCz},
	}

	accepted := scorer.Filter(candidates, "okna")

	if assert.Len(t, accepted, 1) {
		assert.Equal(t, "Výměna oken v základní škole", accepted[0].Title)
		assert.Equal(t, 1.0, accepted[0].RelevanceScore)
	}
}
