package transfers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoio/pkg/transfer"
)

func TestRecordListRows(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	l := RecordList{{
		ID:          "t1",
		EntityID:    "E1",
		Direction:   transfer.Download,
		Status:      transfer.Failed,
		HandlerName: "http",
		Error:       "404",
		StartedAt:   &start,
		FinishedAt:  &end,
	}}

	rows := l.Rows()
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(l.Headers()))
	assert.Equal(t, []string{"t1", "E1", "download", "failed", "http", "1.5s", "404"}, rows[0])
}

func TestSummaryPairs(t *testing.T) {
	pairs := summaryPairs(map[string]int{"completed": 3, "failed": 1})
	require.Len(t, pairs, 6)
	assert.Equal(t, [2]string{"unspecified", "0"}, pairs[0])
	assert.Equal(t, [2]string{"completed", "3"}, pairs[3])
	assert.Equal(t, [2]string{"total", "4"}, pairs[5])
}

func TestDetailsIncludesErrorOnlyWhenSet(t *testing.T) {
	ok := details(transfer.Record{ID: "t1", Status: transfer.Completed})
	for _, kv := range ok {
		assert.NotEqual(t, "Error", kv[0])
	}

	failed := details(transfer.Record{ID: "t2", Status: transfer.Failed, Error: "boom"})
	assert.Equal(t, [2]string{"Error", "boom"}, failed[len(failed)-1])
}
