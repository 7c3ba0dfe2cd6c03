package controller

import (
	"fmt"
	"strings"
)

const resetMessage = "✅ Session reset successfully."

func auditRequestPrompt(rulesFormatted, code, language string) string {
	return `🛑 **[SYSTEM INTERVENTION: CONTEXT ISOLATION MODE]**

**STOP GENERATING**. Do not output the code yet.

You are now entering the **Blind Audit Phase**.

**Rulebook:**
` + rulesFormatted + `

**Candidate Code:**
` + "```" + language + `
` + code + `
` + "```" + `

**Instructions:**
1. **Analyze Step-by-Step (CoT)**:
   - First, list all violations found.
   - Classify each violation by severity (CRITICAL, WARNING, PREFERENCE).
   - Calculate the deduction for each violation.

2. **Scoring Rubric (Strict Enforcement)**:
   - **Start Score**: 100
   - **CRITICAL Violation**: -50 points each (Immediate FAIL)
   - **WARNING Violation**: -15 points each
   - **PREFERENCE Violation**: -5 points each
   - **Maximum Deduction**: 100 points (Minimum Score: 0)

3. **Final Decision**:
   - Call ` + "`submit_audit_result`" + ` with your findings.
   - **CRITICAL**: If score is < ` + fmt.Sprint(MinPassingScore) + `, you MUST set passed=False.
   - The system will enforce ` + "`score >= " + fmt.Sprint(MinPassingScore) + "`" + ` to pass.
`
}

func approvalMessage(score int, code string) string {
	return fmt.Sprintf("✅ AUDIT PASSED (Score: %d/100)\n\n```\n%s\n```", score, code)
}

func rejectionMessage(score int, issues []string, retryCount, maxRetries int) string {
	formatted := make([]string, len(issues))
	for i, issue := range issues {
		formatted[i] = "- " + issue
	}
	return fmt.Sprintf("❌ AUDIT FAILED (Score: %d/100)\n\n**Issues:**\n%s\n\nRetry count: %d/%d",
		score, strings.Join(formatted, "\n"), retryCount, maxRetries)
}

func enforcementIssue(score int) string {
	return fmt.Sprintf("[SYSTEM ENFORCEMENT] Score (%d) is below minimum threshold (%d). You cannot pass code with such a low score.",
		score, MinPassingScore)
}
