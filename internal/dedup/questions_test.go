package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"interview-harvester/internal/models"
)

func TestQuestionIndexCaseInsensitive(t *testing.T) {
	idx := NewQuestionIndex([]models.QuestionRecord{{Question: "What is a Closure?"}})

	assert.True(t, idx.Contains("what is a closure?"))
	assert.True(t, idx.Contains("WHAT IS A CLOSURE?"))
	assert.False(t, idx.Add("What is a closure?"))
	assert.Equal(t, 1, idx.Len())
}

func TestQuestionIndexDoesNotFuzzyMatch(t *testing.T) {
	idx := NewQuestionIndex(nil)
	assert.True(t, idx.Add("What is a closure?"))
	assert.True(t, idx.Add("What is a closure ?"))
	assert.True(t, idx.Add("What's a closure?"))
	assert.Equal(t, 3, idx.Len())
}
