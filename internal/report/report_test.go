package report

import (
	"strings"
	"testing"

	"github.com/dagbolade/blind-auditor/internal/session"
)

func TestAverage(t *testing.T) {
	tests := []struct {
		name    string
		history []session.Record
		want    float64
	}{
		{"empty history", nil, 0.0},
		{"three attempts", []session.Record{{Score: 30}, {Score: 40}, {Score: 50}}, 40.0},
		{"fractional", []session.Record{{Score: 30}, {Score: 35}}, 32.5},
		{"out of range scores kept", []session.Record{{Score: -20}, {Score: 140}}, 60.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Average(tt.history); got != tt.want {
				t.Errorf("Average() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		issue string
		want  Bucket
	}{
		{"CRITICAL: bad cast", BucketCritical},
		{"[critical] lowercase still matches", BucketCritical},
		{"CRITICAL cast, also a WARNING about naming", BucketCritical},
		{"warning before critical in text", BucketCritical},
		{"[WARNING] missing decimal point", BucketWarning},
		{"WARNING and PREFERENCE together", BucketWarning},
		{"preference: use swizzles", BucketPreference},
		{"unused variable", BucketOther},
		{"", BucketOther},
	}

	for _, tt := range tests {
		t.Run(tt.issue, func(t *testing.T) {
			if got := Classify(tt.issue); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.issue, got, tt.want)
			}
		})
	}
}

func TestGroupKeepsOrderAcrossAttempts(t *testing.T) {
	history := []session.Record{
		{Issues: []string{"[CRITICAL] a1", "[WARNING] b1", "misc 1"}},
		{Issues: []string{"[CRITICAL] a2", "misc 2"}},
	}

	groups := Group(history)

	if strings.Join(groups[BucketCritical], "|") != "[CRITICAL] a1|[CRITICAL] a2" {
		t.Errorf("unexpected critical bucket: %v", groups[BucketCritical])
	}
	if strings.Join(groups[BucketOther], "|") != "misc 1|misc 2" {
		t.Errorf("unexpected other bucket: %v", groups[BucketOther])
	}
	if len(groups[BucketPreference]) != 0 {
		t.Errorf("expected empty preference bucket, got %v", groups[BucketPreference])
	}
}

func TestGenerateLimitExceededReport(t *testing.T) {
	code := "vec3 color = vec3(1, 0, 0);\nfloat x = 5;"
	var history []session.Record
	for i := 0; i < 3; i++ {
		history = append(history, session.Record{
			Passed: false,
			Issues: []string{
				"[CRITICAL] Type casting violation - using integer in float context",
				"[WARNING] Missing explicit decimal points",
			},
			Score:            30 + i*5,
			RetryCountAtTime: i,
		})
	}

	out := Generate(history, code, "glsl", 3)

	for _, want := range []string{
		"AUDIT LIMIT EXCEEDED - CODE REJECTED",
		"maximum retry limit (3 attempts)",
		"- **Total Attempts**: 3",
		"- **Average Score**: 35.0/100",
		"- **Status**: REJECTED",
		"### Attempt 3",
		"- **Result**: FAILED",
		"### ⛔ CRITICAL Issues (3)",
		"### ⚠️ WARNING Issues (3)",
		"## 💡 Recommendations",
		"```glsl\n" + code + "\n```",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}

	for _, absent := range []string{"PREFERENCE Issues", "Other Issues"} {
		if strings.Contains(out, absent) {
			t.Errorf("empty bucket section %q must be omitted", absent)
		}
	}
}

func TestGenerateSectionOrder(t *testing.T) {
	history := []session.Record{
		{Score: 10, Issues: []string{"misc", "preference x", "warning y", "critical z"}},
	}

	out := Generate(history, "x", "go", 1)

	order := []string{
		"## 📊 Audit Summary",
		"## 📝 Detailed Audit History",
		"## 🔍 Issue Categorization",
		"CRITICAL Issues (1)",
		"WARNING Issues (1)",
		"PREFERENCE Issues (1)",
		"Other Issues (1)",
		"## 💡 Recommendations",
		"## 📄 Submitted Code",
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(out, marker)
		if idx < 0 {
			t.Fatalf("report missing %q", marker)
		}
		if idx < last {
			t.Errorf("section %q out of order", marker)
		}
		last = idx
	}

	attempt := out[strings.Index(out, "### Attempt 1"):strings.Index(out, "## 🔍")]
	if strings.Index(attempt, "  - misc") > strings.Index(attempt, "  - critical z") {
		t.Error("attempt issues must keep their original order")
	}
}

func TestGenerateEmptyHistory(t *testing.T) {
	out := Generate(nil, "", "python", 0)

	if !strings.Contains(out, "- **Total Attempts**: 0") {
		t.Error("expected zero attempts")
	}
	if !strings.Contains(out, "- **Average Score**: 0.0/100") {
		t.Error("expected 0.0 average")
	}
	if strings.Contains(out, "### Attempt") {
		t.Error("expected no attempt sections")
	}
}
