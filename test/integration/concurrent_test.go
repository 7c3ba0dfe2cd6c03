package integration

import (
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dagbolade/blind-auditor/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentToolCalls sends rule listings and verdicts in parallel. Calls
// are serialized, so every verdict lands in the history exactly once.
func TestConcurrentToolCalls(t *testing.T) {
	env := SetupTestEnvironment(t)

	numWorkers := 20
	var wg sync.WaitGroup
	var failures int32

	start := time.Now()
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, status := env.CallTool(tools.ToolUpdateRules, tools.UpdateRulesArgs{Action: tools.ActionList}); status != http.StatusOK {
				atomic.AddInt32(&failures, 1)
			}
			if _, status := env.CallTool(tools.ToolSubmitAuditResult, tools.AuditResultArgs{Issues: []string{"bad"}, Score: 10}); status != http.StatusOK {
				atomic.AddInt32(&failures, 1)
			}
		}()
	}
	wg.Wait()

	t.Logf("%d workers finished in %v", numWorkers, time.Since(start))

	assert.Zero(t, atomic.LoadInt32(&failures))

	s := env.GetSession()
	assert.Len(t, s.History, numWorkers)
	assert.Equal(t, numWorkers, s.RetryCount)
	for i, rec := range s.History {
		assert.Equal(t, i, rec.RetryCountAtTime, "history entry %d", i)
	}

	entries, err := env.WaitForAuditEntries(numWorkers, 2*time.Second)
	require.NoError(t, err)
	assert.Len(t, entries, numWorkers)
}
