package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeAndFilter(t *testing.T) {
	t.Run("lowercases and trims punctuation", func(t *testing.T) {
		assert.Equal(t, []string{"raft", "consensus"}, tokenizeAndFilter("Raft, consensus!"))
	})

	t.Run("drops stop words", func(t *testing.T) {
		assert.Equal(t, []string{"leader", "election"}, tokenizeAndFilter("the leader of an election"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, tokenizeAndFilter("   "))
	})

	t.Run("all stop words", func(t *testing.T) {
		assert.Empty(t, tokenizeAndFilter("the a an of"))
	})
}

func TestKeywordStrength(t *testing.T) {
	terms := []string{"raft", "election", "timeout"}

	t.Run("full coverage", func(t *testing.T) {
		assert.InDelta(t, 1.0, keywordStrength(terms, "Raft election timeout defaults."), 0.001)
	})

	t.Run("partial coverage", func(t *testing.T) {
		assert.InDelta(t, 1.0/3.0, keywordStrength(terms, "raft only appears here"), 0.001)
	})

	t.Run("no coverage", func(t *testing.T) {
		assert.Zero(t, keywordStrength(terms, "completely unrelated text"))
	})

	t.Run("no terms", func(t *testing.T) {
		assert.Zero(t, keywordStrength(nil, "anything"))
	})
}
