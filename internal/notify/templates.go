package notify

import (
	"bytes"
	htmltemplate "html/template"
	"math"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"
)

var templateFuncs = map[string]any{
	"date": func(t *time.Time) string {
		if t == nil {
			return "n/a"
		}
		return t.Format("2006-01-02")
	},
	"money": func(v *float64) string {
		if v == nil {
			return "n/a"
		}
		return formatMoney(*v)
	},
	"percent": func(score float64) int {
		return int(score*100 + 0.5)
	},
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

var textDigest = texttemplate.Must(texttemplate.New("digest.txt").Funcs(templateFuncs).Parse(
	`Tender report for profile "{{.Profile.Name}}" ({{.GeneratedAt.Format "2006-01-02 15:04"}})
Sources scanned: {{.SourcesScanned}}
{{if not .Tenders}}
No new tenders were found.
{{else}}
{{range $i, $t := .Tenders}}
{{inc $i}}. {{$t.Title}}
   Source: {{$t.Source}} | Relevance: {{percent $t.RelevanceScore}}%
   Value: {{money $t.EstimatedValue}} | Deadline: {{date $t.ResponseDeadline}}
{{- if $t.Location}}
   Location: {{$t.Location}}{{end}}
{{- if $t.Keywords}}
   Keywords: {{join $t.Keywords ", "}}{{end}}
{{- if $t.SourceURL}}
   Link: {{$t.URL}}{{end}}
{{- with $.DraftFor $t.ID}}
   Suggested email: {{.Subject}}
{{.Body}}{{end}}
{{end}}{{end}}`))

var htmlDigest = htmltemplate.Must(htmltemplate.New("digest.html").Funcs(templateFuncs).Parse(
	`<html><body>
<h2>Tender report for {{.Profile.Name}}</h2>
<p>{{.GeneratedAt.Format "2006-01-02 15:04"}}, sources scanned: {{.SourcesScanned}}</p>
{{if not .Tenders}}<p>No new tenders were found.</p>{{else}}
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Title</th><th>Source</th><th>Relevance</th><th>Value</th><th>Deadline</th><th>Location</th></tr>
{{range .Tenders}}<tr>
<td>{{if .SourceURL}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}</td>
<td>{{.Source}}</td>
<td>{{percent .RelevanceScore}}%</td>
<td>{{money .EstimatedValue}}</td>
<td>{{date .ResponseDeadline}}</td>
<td>{{.Location}}</td>
</tr>{{end}}
</table>
{{range .Tenders}}{{with $.DraftFor .ID}}
<h3>Suggested email: {{.Subject}}</h3>
<pre>{{.Body}}</pre>{{end}}{{end}}
{{end}}</body></html>`))

func renderText(d Digest) (string, error) {
	var buf bytes.Buffer
	if err := textDigest.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderHTML(d Digest) (string, error) {
	var buf bytes.Buffer
	if err := htmlDigest.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatMoney(v float64) string {
	digits := strconv.FormatInt(int64(math.Round(math.Abs(v))), 10)
	var out strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(d)
	}
	return "$" + out.String()
}
