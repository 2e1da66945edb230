package dedup

import (
	"strings"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
	"github.com/maxaizer/tender-monitor/internal/entities"
)

const (
	titleWeight       = 0.5
	descriptionWeight = 0.3
	locationWeight    = 0.2
)

// similarity compares the fields both records have and normalises by the
// weights actually used, so a missing description does not drag the score down.
func similarity(c entities.Candidate, t entities.StoredTender, maxRunes int) float64 {
	pairs := []struct {
		a, b   string
		weight float64
	}{
		{c.Title, t.Title, titleWeight},
		{c.Description, t.Description, descriptionWeight},
		{c.Location, t.Location, locationWeight},
	}

	var total, weights float64
	for _, p := range pairs {
		a, b := prepare(p.a, maxRunes), prepare(p.b, maxRunes)
		if a == "" || b == "" {
			continue
		}
		total += p.weight * textSimilarity(a, b)
		weights += p.weight
	}

	if weights == 0 {
		return 0
	}
	return total / weights
}

// textSimilarity is the LCS ratio 2*LCS/(|a|+|b|) over runes.
func textSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	length := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if length == 0 {
		return 0
	}
	return 2 * float64(edlib.LCS(a, b)) / float64(length)
}

func prepare(s string, maxRunes int) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		s = string([]rune(s)[:maxRunes])
	}
	return s
}

func firstToken(title string) string {
	fields := strings.Fields(strings.ToLower(title))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
