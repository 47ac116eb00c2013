package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CircularBuffer Tests
// =============================================================================

func TestCircularBuffer_Add_SingleItem(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	buf.Add("query1")

	items := buf.Items()
	assert.Equal(t, 1, len(items))
	assert.Equal(t, "query1", items[0])
}

func TestCircularBuffer_Add_MultipleItems(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	buf.Add("query1")
	buf.Add("query2")
	buf.Add("query3")

	items := buf.Items()
	assert.Equal(t, 3, len(items))
	assert.Equal(t, []string{"query1", "query2", "query3"}, items)
}

func TestCircularBuffer_MaintainsCapacity(t *testing.T) {
	buf := NewCircularBuffer[string](3)

	// Add more items than capacity
	buf.Add("query1")
	buf.Add("query2")
	buf.Add("query3")
	buf.Add("query4") // Should evict query1
	buf.Add("query5") // Should evict query2

	items := buf.Items()
	assert.Equal(t, 3, len(items))
	// Should contain last 3 items (FIFO eviction)
	assert.Equal(t, []string{"query3", "query4", "query5"}, items)
}

func TestCircularBuffer_Size(t *testing.T) {
	buf := NewCircularBuffer[string](5)

	assert.Equal(t, 0, buf.Size())

	buf.Add("a")
	assert.Equal(t, 1, buf.Size())

	buf.Add("b")
	buf.Add("c")
	assert.Equal(t, 3, buf.Size())

	// Exceed capacity
	buf.Add("d")
	buf.Add("e")
	buf.Add("f")                   // Evicts "a"
	assert.Equal(t, 5, buf.Size()) // Size capped at capacity
}

func TestCircularBuffer_EmptyItems(t *testing.T) {
	buf := NewCircularBuffer[string](10)

	items := buf.Items()
	assert.Equal(t, 0, len(items))
	assert.NotNil(t, items) // Should return empty slice, not nil
}

func TestCircularBuffer_Clear(t *testing.T) {
	buf := NewCircularBuffer[string](5)
	buf.Add("a")
	buf.Add("b")

	buf.Clear()

	assert.Equal(t, 0, buf.Size())
	assert.Empty(t, buf.Items())
}

// =============================================================================
// Latency Bucket Tests
// =============================================================================

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{9 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{49 * time.Millisecond, BucketP50},
		{50 * time.Millisecond, BucketP100},
		{99 * time.Millisecond, BucketP100},
		{100 * time.Millisecond, BucketP500},
		{499 * time.Millisecond, BucketP500},
		{500 * time.Millisecond, BucketP1000},
		{2 * time.Second, BucketP1000},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.latency), "latency %v", tt.latency)
	}
}

// =============================================================================
// Term Extraction Tests
// =============================================================================

func TestExtractTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"lowercases", "Deployment RUNBOOK", []string{"deployment", "runbook"}},
		{"drops short terms", "go to the runbook", []string{"the", "runbook"}},
		{"empty query", "", nil},
		{"whitespace only", "   ", nil},
		{"all short", "a b", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTerms(tt.query))
		})
	}
}

// =============================================================================
// RecordQuery Tests
// =============================================================================

func TestRecordQuery_CountsPerOperation(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.RecordQuery("search", "deploy", 10*time.Millisecond, 3)
	m.RecordQuery("search", "rollback", 10*time.Millisecond, 1)
	m.RecordQuery("list", "ops", 2*time.Millisecond, 5)
	m.RecordQuery("similar", "deploy.md", 4*time.Millisecond, 2)

	snapshot := m.Snapshot()
	assert.Equal(t, int64(2), snapshot.OpCounts[OpSearch])
	assert.Equal(t, int64(1), snapshot.OpCounts[OpList])
	assert.Equal(t, int64(1), snapshot.OpCounts[OpSimilar])
	assert.Equal(t, int64(4), snapshot.TotalQueries)
}

func TestRecordQuery_TracksTopSearchTerms(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.RecordQuery("search", "error handling", 10*time.Millisecond, 5)
	m.RecordQuery("search", "error retry", 10*time.Millisecond, 3)
	m.RecordQuery("search", "error backoff", 10*time.Millisecond, 2)
	m.RecordQuery("search", "retry backoff", 10*time.Millisecond, 1)

	snapshot := m.Snapshot()
	require.NotEmpty(t, snapshot.TopTerms)
	assert.Equal(t, "error", snapshot.TopTerms[0].Term)
	assert.Equal(t, int64(3), snapshot.TopTerms[0].Count)
}

func TestRecordQuery_NonSearchOpsDoNotPolluteTerms(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.RecordQuery("get", "guides/deploy.md", time.Millisecond, 1)
	m.RecordQuery("list", "oncall", time.Millisecond, 4)

	snapshot := m.Snapshot()
	assert.Empty(t, snapshot.TopTerms)
	assert.Equal(t, int64(0), snapshot.ZeroResultCount)
}

func TestRecordQuery_TracksZeroResultSearches(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.RecordQuery("search", "nonexistent topic", 30*time.Millisecond, 0)
	m.RecordQuery("search", "found something", 20*time.Millisecond, 5)
	m.RecordQuery("search", "another miss", 15*time.Millisecond, 0)

	snapshot := m.Snapshot()
	assert.Equal(t, int64(2), snapshot.ZeroResultCount)
	assert.Contains(t, snapshot.ZeroResultQueries, "nonexistent topic")
	assert.Contains(t, snapshot.ZeroResultQueries, "another miss")
	assert.InDelta(t, 66.6, snapshot.ZeroResultPercentage(), 0.1)
}

func TestRecordQuery_BuildsLatencyHistogram(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.RecordQuery("search", "fast", 5*time.Millisecond, 1)
	m.RecordQuery("search", "medium1", 25*time.Millisecond, 1)
	m.RecordQuery("search", "medium2", 35*time.Millisecond, 1)
	m.RecordQuery("search", "slow", 200*time.Millisecond, 1)
	m.RecordQuery("search", "very slow", time.Second, 1)

	snapshot := m.Snapshot()
	assert.Equal(t, int64(1), snapshot.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(2), snapshot.LatencyDistribution[BucketP50])
	assert.Equal(t, int64(1), snapshot.LatencyDistribution[BucketP500])
	assert.Equal(t, int64(1), snapshot.LatencyDistribution[BucketP1000])
}

func TestRecordQuery_DetectsExactRepeats(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	m.RecordQuery("search", "deploy guide", 10*time.Millisecond, 5)
	m.RecordQuery("search", "something else", 10*time.Millisecond, 3)
	m.RecordQuery("search", "Deploy Guide", 10*time.Millisecond, 5)
	m.RecordQuery("search", "  deploy guide  ", 10*time.Millisecond, 5)

	snapshot := m.Snapshot()
	assert.Equal(t, int64(2), snapshot.ExactRepeatCount, "case and whitespace variants hash identically")
	assert.Equal(t, int64(2), snapshot.UniqueQueryCount)
	assert.InDelta(t, 0.5, snapshot.ExactRepeatRate, 0.001)
}

func TestRecordQuery_AfterClose_IsIgnored(t *testing.T) {
	m := NewQueryMetrics(nil)
	require.NoError(t, m.Close())

	m.RecordQuery("search", "after close", 10*time.Millisecond, 1)

	assert.Equal(t, int64(0), m.Snapshot().TotalQueries)
}

func TestRecordQuery_ConcurrentAccess(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordQuery("search", "concurrent query", time.Millisecond, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), m.Snapshot().TotalQueries)
}

func TestClose_Twice_IsSafe(t *testing.T) {
	m := NewQueryMetrics(nil)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
