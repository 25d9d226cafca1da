package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentHash(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		a := ContentHash("hello world")
		b := ContentHash("hello world")
		assert.Equal(t, a, b)
	})

	t.Run("distinct content distinct hash", func(t *testing.T) {
		a := ContentHash("hello world")
		b := ContentHash("hello world!")
		assert.NotEqual(t, a, b)
	})

	t.Run("empty content", func(t *testing.T) {
		assert.NotEmpty(t, ContentHash(""))
	})
}

func TestCacheKey(t *testing.T) {
	a := CacheKey([]byte("query|tag1,tag2|0"))
	b := CacheKey([]byte("query|tag1,tag2|0"))
	c := CacheKey([]byte("query|tag1,tag2|1"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to DocumentStatus }{
		{StatusUploaded, StatusProcessing},
		{StatusProcessing, StatusProcessed},
		{StatusProcessing, StatusError},
		{StatusProcessed, StatusReprocessing},
		{StatusError, StatusReprocessing},
		{StatusReprocessing, StatusProcessed},
		{StatusReprocessing, StatusError},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct{ from, to DocumentStatus }{
		{StatusProcessed, StatusUploaded},
		{StatusError, StatusUploaded},
		{StatusUploaded, StatusProcessed},
		{StatusUploaded, StatusReprocessing},
		{StatusProcessing, StatusReprocessing},
		{StatusProcessed, StatusProcessing},
		{StatusReprocessing, StatusUploaded},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestBulkResultCounts(t *testing.T) {
	result := &BulkResult{
		Action: BulkDelete,
		Items: []BulkItemResult{
			{DocumentID: "a", Success: true},
			{DocumentID: "b", Success: false, Error: "not found"},
			{DocumentID: "c", Success: true},
		},
	}
	assert.Equal(t, 2, result.Succeeded())
	assert.Equal(t, 1, result.Failed())
}

func TestJobIsTerminal(t *testing.T) {
	for _, status := range []JobStatus{JobCompleted, JobFailed, JobCancelled} {
		job := &ProcessingJob{Status: status}
		assert.True(t, status.IsTerminal(), "status %s", status)
		assert.True(t, job.IsTerminal(), "status %s", status)
	}
	for _, status := range []JobStatus{JobPending, JobRunning} {
		job := &ProcessingJob{Status: status}
		assert.False(t, status.IsTerminal(), "status %s", status)
		assert.False(t, job.IsTerminal(), "status %s", status)
	}
}

func TestSearchFiltersIsZero(t *testing.T) {
	assert.True(t, SearchFilters{}.IsZero())
	assert.False(t, SearchFilters{Author: "ada"}.IsZero())
	assert.False(t, SearchFilters{Tags: []string{"urgent"}}.IsZero())
}
