package dedup

import (
	"strings"
	"testing"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/stretchr/testify/assert"
)

func Test_TextSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, textSimilarity("window replacement", "window replacement"))
	assert.Equal(t, 0.0, textSimilarity("abc", "xyz"))
	// LCS("abcd", "abxd") = 3
	assert.InDelta(t, 0.75, textSimilarity("abcd", "abxd"), 1e-9)
	assert.Equal(t, textSimilarity("kitten", "sitting"), textSimilarity("sitting", "kitten"))
}

func Test_Similarity_UsesOnlySharedFields(t *testing.T) {
	candidate := entities.Candidate{Title: "Window replacement", Location: "Brooklyn, NY"}
	stored := entities.StoredTender{Title: "window replacement", Description: "Replace 40 windows"}

	// description and location are each missing on one side, only the title counts
	assert.Equal(t, 1.0, similarity(candidate, stored, 1000))
}

func Test_Similarity_WeightsFields(t *testing.T) {
	candidate := entities.Candidate{Title: "abcd", Description: "same text", Location: "xyz"}
	stored := entities.StoredTender{Title: "abcd", Description: "same text", Location: "qrs"}

	// (0.5*1 + 0.3*1 + 0.2*0) / 1.0
	assert.InDelta(t, 0.8, similarity(candidate, stored, 1000), 1e-9)
}

func Test_Similarity_IsSymmetric(t *testing.T) {
	a := entities.Candidate{Title: "Curtain wall repairs", Description: "Facade glazing", Location: "Queens"}
	b := entities.Candidate{Title: "Curtain wall repair work", Description: "Glazing of the facade", Location: "Queens, NY"}

	ab := similarity(a, entities.NewStoredTender(b), 1000)
	ba := similarity(b, entities.NewStoredTender(a), 1000)

	assert.InDelta(t, ab, ba, 1e-9)
	assert.Greater(t, ab, 0.0)
	assert.LessOrEqual(t, ab, 1.0)
}

func Test_Similarity_TruncatesLongFields(t *testing.T) {
	long := strings.Repeat("a", 5000)
	candidate := entities.Candidate{Title: long + "tail one"}
	stored := entities.StoredTender{Title: long + "other ending"}

	assert.Equal(t, 1.0, similarity(candidate, stored, 100))
}

func Test_FirstToken(t *testing.T) {
	assert.Equal(t, "výměna", firstToken("  Výměna oken "))
	assert.Equal(t, "", firstToken("   "))
}
