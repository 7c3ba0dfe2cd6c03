// Package report renders the rejection report shown when a session runs out
// of retries.
package report

import (
	"fmt"
	"strings"

	"github.com/dagbolade/blind-auditor/internal/session"
)

type Bucket string

const (
	BucketCritical   Bucket = "CRITICAL"
	BucketWarning    Bucket = "WARNING"
	BucketPreference Bucket = "PREFERENCE"
	BucketOther      Bucket = "OTHER"
)

// bucketOrder is the match priority; sectionOrder adds the catch-all.
var (
	bucketOrder  = []Bucket{BucketCritical, BucketWarning, BucketPreference}
	sectionOrder = []Bucket{BucketCritical, BucketWarning, BucketPreference, BucketOther}
)

var bucketTitles = map[Bucket]string{
	BucketCritical:   "⛔ CRITICAL Issues",
	BucketWarning:    "⚠️ WARNING Issues",
	BucketPreference: "💡 PREFERENCE Issues",
	BucketOther:      "📌 Other Issues",
}

// Classify assigns an issue to the first bucket whose token it contains,
// ignoring case. An issue mentioning both CRITICAL and WARNING is CRITICAL.
func Classify(issue string) Bucket {
	upper := strings.ToUpper(issue)
	for _, b := range bucketOrder {
		if strings.Contains(upper, string(b)) {
			return b
		}
	}
	return BucketOther
}

// Average returns the mean score, or 0 for an empty history.
func Average(history []session.Record) float64 {
	if len(history) == 0 {
		return 0.0
	}
	sum := 0
	for _, rec := range history {
		sum += rec.Score
	}
	return float64(sum) / float64(len(history))
}

// Group partitions every issue of every attempt by bucket, keeping order.
func Group(history []session.Record) map[Bucket][]string {
	groups := make(map[Bucket][]string)
	for _, rec := range history {
		for _, issue := range rec.Issues {
			b := Classify(issue)
			groups[b] = append(groups[b], issue)
		}
	}
	return groups
}

func Generate(history []session.Record, code, language string, maxRetries int) string {
	lines := []string{
		"🚨 **AUDIT LIMIT EXCEEDED - CODE REJECTED**",
		"",
		fmt.Sprintf("You have reached the maximum retry limit (%d attempts).", maxRetries),
		"**The code has NOT been approved and cannot be modified further.**",
		"",
		"## 📊 Audit Summary",
		fmt.Sprintf("- **Total Attempts**: %d", len(history)),
		fmt.Sprintf("- **Average Score**: %.1f/100", Average(history)),
		"- **Status**: REJECTED",
		"",
		"## 📝 Detailed Audit History",
	}

	for i, rec := range history {
		lines = append(lines,
			fmt.Sprintf("\n### Attempt %d", i+1),
			fmt.Sprintf("- **Score**: %d/100", rec.Score),
			fmt.Sprintf("- **Result**: %s", result(rec.Passed)),
		)
		if len(rec.Issues) > 0 {
			lines = append(lines, "- **Issues**:")
			for _, issue := range rec.Issues {
				lines = append(lines, "  - "+issue)
			}
		}
	}

	lines = append(lines, "", "## 🔍 Issue Categorization")

	groups := Group(history)
	for _, b := range sectionOrder {
		issues := groups[b]
		if len(issues) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("\n### %s (%d)", bucketTitles[b], len(issues)))
		for _, issue := range issues {
			lines = append(lines, "- "+issue)
		}
	}

	lines = append(lines,
		"",
		"## 💡 Recommendations",
		"1. Review all CRITICAL issues first - these cause immediate failures",
		"2. Address WARNING issues to improve code quality",
		"3. Consider PREFERENCE issues for best practices",
		"4. Reset the session with `reset_session()` to start a new audit",
		"",
		"## 📄 Submitted Code",
		"```"+language,
		code,
		"```",
	)

	return strings.Join(lines, "\n")
}

func result(passed bool) string {
	if passed {
		return "PASSED"
	}
	return "FAILED"
}
