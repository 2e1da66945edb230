package scoring

import (
	"math"
	"strings"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultStrictMaxScore  = 3.0
	DefaultKeywordBonus    = 0.5
	DefaultAcceptThreshold = 0.3
)

// FenestrationVocabulary weighs Czech and English phrases for window and door
// production or installation. Accent-free spellings are listed because
// listings often drop diacritics.
var FenestrationVocabulary = map[string]float64{
	"výrobu a montáž":         3.5,
	"vyroba a montaz":         3.5,
	"montáž a výroba":         3.5,
	"montaz a vyroba":         3.5,
	"renovaci dřevěných oken": 3.5,
	"renovace drevenych oken": 3.5,
	"montáž oken":             3.0,
	"montaz oken":             3.0,
	"montáž dveří":            3.0,
	"montaz dveri":            3.0,
	"instalace oken":          3.0,
	"instalace dveří":         3.0,
	"instalace dveri":         3.0,
	"výměna oken":             3.0,
	"vymena oken":             3.0,
	"výměna dveří":            3.0,
	"vymena dveri":            3.0,
	"renovaci oken":           3.0,
	"renovace oken":           3.0,
	"renovaci dveří":          3.0,
	"renovace dveri":          3.0,
	"vchodových dveří":        2.8,
	"vchodovych dveri":        2.8,
	"výrobu dveří":            2.8,
	"vyroba dveri":            2.8,
	"výrobu oken":             2.8,
	"vyroba oken":             2.8,
	"dodávka a montáž":        2.5,
	"dodavka a montaz":        2.5,
	"dvoukřídlých dveří":      2.5,
	"dvoukridlych dveri":      2.5,
	"nových dveří":            2.3,
	"novych dveri":            2.3,
	"výrobu":                  2.0,
	"vyroba":                  2.0,
	"dřevěných oken":          2.0,
	"drevenych oken":          2.0,
	"plastových oken":         2.0,
	"plastovych oken":         2.0,
	"ze skla":                 1.8,
	"se sklem":                1.8,
	"dřevěná okna":            1.8,
	"drevena okna":            1.8,
	"plastová okna":           1.8,
	"plastova okna":           1.8,
	"hliníková okna":          1.8,
	"hlinikova okna":          1.8,
	"skla":                    1.5,
	"skleněných":              1.5,
	"sklenenych":              1.5,
	"realizace":               1.5,
	"rekonstrukce":            1.5,
	"renovaci":                1.5,
	"renovace":                1.5,
	"montáž":                  1.2,
	"montaz":                  1.2,
	"instalace":               1.2,
	"installation":            1.2,
	"výměna":                  1.2,
	"vymena":                  1.2,
	"replacement":             1.2,
	"dodávka":                 1.0,
	"dodavka":                 1.0,
	"dodání":                  1.0,
	"dodani":                  1.0,
	"stavba":                  1.0,
	"construction":            1.0,
	"zasklení":                0.9,
	"glazing":                 0.9,
	"okenní":                  0.8,
	"okenni":                  0.8,
	"dveřní":                  0.8,
	"dverni":                  0.8,
	"oken":                    0.5,
	"dveří":                   0.5,
	"dveri":                   0.5,
}

// PenaltyVocabulary lowers the score of listings that mention windows or
// doors in an unrelated context: cleaning, pet flaps, protective nets.
var PenaltyVocabulary = map[string]float64{
	"úklid":      -3.0,
	"uklid":      -3.0,
	"cleaning":   -3.0,
	"mytí":       -3.0,
	"myti":       -3.0,
	"washing":    -3.0,
	"čištění":    -3.0,
	"cisteni":    -3.0,
	"kočky":      -3.0,
	"kocky":      -3.0,
	"cats":       -3.0,
	"dvířka":     -2.0,
	"dvirka":     -2.0,
	"domácí":     -2.0,
	"domaci":     -2.0,
	"pets":       -2.0,
	"síť":        -1.0,
	"ochrannou":  -1.0,
	"protective": -1.0,
}

// TradePenalties covers permits for trades that never involve fenestration work.
var TradePenalties = map[string]float64{
	"plumbing":   -1.5,
	"electrical": -1.5,
	"hvac":       -1.5,
	"roofing":    -1.5,
	"demolition": -1.5,
	"sidewalk":   -1.5,
	"scaffold":   -1.5,
	"sprinkler":  -1.5,
	"elevator":   -1.5,
	"boiler":     -1.5,
}

// StrictScorer is the precision-oriented scorer used by adapters for sources
// with a lot of off-topic listings.
type StrictScorer struct {
	weights   map[string]float64
	terms     *vocabulary
	MaxScore  float64
	Bonus     float64
	Threshold float64
}

// NewStrictScorer merges the given weight tables, later tables overriding
// earlier ones for the same term.
func NewStrictScorer(tables ...map[string]float64) *StrictScorer {
	weights := map[string]float64{}
	for _, table := range tables {
		for term, weight := range table {
			weights[normalize(term)] = weight
		}
	}

	return &StrictScorer{
		weights:   weights,
		terms:     newVocabulary(lo.Keys(weights)),
		MaxScore:  DefaultStrictMaxScore,
		Bonus:     DefaultKeywordBonus,
		Threshold: DefaultAcceptThreshold,
	}
}

func NewFenestrationScorer() *StrictScorer {
	return NewStrictScorer(FenestrationVocabulary, PenaltyVocabulary, TradePenalties)
}

func (s *StrictScorer) Score(title, description, keyword string) float64 {
	text := normalize(title + " " + description)
	if text == "" {
		return 0
	}

	score := 0.0
	for _, term := range s.terms.find(text) {
		score += s.weights[term]
	}

	if k := normalize(keyword); k != "" && strings.Contains(text, k) {
		score += s.Bonus
	}

	score = clamp(score / s.MaxScore)
	return math.Round(score*100) / 100
}

func (s *StrictScorer) Accept(score float64) bool {
	return score >= s.Threshold
}

// Filter scores each candidate, drops the ones below the threshold and
// returns the rest with their score set.
func (s *StrictScorer) Filter(candidates []entities.Candidate, keyword string) []entities.Candidate {
	accepted := make([]entities.Candidate, 0, len(candidates))
	for _, c := range candidates {
		c.RelevanceScore = s.Score(c.Title, c.Description, keyword)
		if !s.Accept(c.RelevanceScore) {
			log.Debugf("strict scorer rejected %q with score %.2f", c.Title, c.RelevanceScore)
			continue
		}
		accepted = append(accepted, c)
	}
	return accepted
}
