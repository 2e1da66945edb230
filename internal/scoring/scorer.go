package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/samber/lo"
)

// Weights are the additive components of the keyword score.
type Weights struct {
	Base             float64
	TitleBonus       float64
	DescriptionBonus float64
	DomainBonus      float64
}

func DefaultWeights() Weights {
	return Weights{
		Base:             0.3,
		TitleBonus:       0.3,
		DescriptionBonus: 0.2,
		DomainBonus:      0.1,
	}
}

func (w Weights) validate() error {
	for name, value := range map[string]float64{
		"base":              w.Base,
		"title bonus":       w.TitleBonus,
		"description bonus": w.DescriptionBonus,
		"domain bonus":      w.DomainBonus,
	} {
		if value < 0 || math.IsNaN(value) {
			return fmt.Errorf("scoring weight %s must be non-negative, got %v", name, value)
		}
	}
	return nil
}

// DefaultDomainTerms is the fenestration vocabulary that raises the score of
// any tender regardless of the profile keywords.
var DefaultDomainTerms = []string{
	"window",
	"door",
	"glazing",
	"fenestration",
	"curtain wall",
	"storefront",
}

type Scorer struct {
	weights Weights
	domain  *vocabulary
}

func NewScorer(weights Weights, domainTerms []string) (*Scorer, error) {
	if err := weights.validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: weights, domain: newVocabulary(domainTerms)}, nil
}

func NewDefaultScorer() *Scorer {
	scorer, _ := NewScorer(DefaultWeights(), DefaultDomainTerms)
	return scorer
}

// Score rates how well a tender matches the keywords, in [0, 1].
func (s *Scorer) Score(title, description string, keywords []string) float64 {
	title, description = normalize(title), normalize(description)
	text := strings.TrimSpace(title + " " + description)

	score := s.weights.Base
	for _, keyword := range uniqueKeywords(keywords) {
		switch {
		case strings.Contains(title, keyword):
			score += s.weights.TitleBonus
		case strings.Contains(text, keyword):
			score += s.weights.DescriptionBonus
		}
	}

	score += float64(len(s.domain.find(text))) * s.weights.DomainBonus

	return clamp(score)
}

// MatchedKeywords returns the keywords found in the title or description,
// keeping the caller's spelling of the first occurrence.
func (s *Scorer) MatchedKeywords(title, description string, keywords []string) []string {
	text := normalize(title + " " + description)

	return lo.UniqBy(lo.Filter(keywords, func(keyword string, _ int) bool {
		k := normalize(keyword)
		return k != "" && strings.Contains(text, k)
	}), normalize)
}

// Rate fills the candidate's score and matched keywords in place.
func (s *Scorer) Rate(candidate *entities.Candidate, keywords []string) {
	candidate.RelevanceScore = s.Score(candidate.Title, candidate.Description, keywords)
	candidate.Keywords = s.MatchedKeywords(candidate.Title, candidate.Description, keywords)
}

func uniqueKeywords(keywords []string) []string {
	return lo.Uniq(lo.Compact(lo.Map(keywords, func(keyword string, _ int) string {
		return normalize(keyword)
	})))
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(1, score))
}
