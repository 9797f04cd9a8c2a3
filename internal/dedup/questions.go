package dedup

import "interview-harvester/internal/models"

// QuestionIndex is a case-insensitive set of question text.
// Matching is exact after case folding; near-duplicate phrasing is not detected.
type QuestionIndex struct {
	keys map[string]struct{}
}

// NewQuestionIndex seeds an index from already stored records.
func NewQuestionIndex(records []models.QuestionRecord) *QuestionIndex {
	idx := &QuestionIndex{keys: make(map[string]struct{}, len(records))}
	for _, r := range records {
		idx.keys[r.Key()] = struct{}{}
	}
	return idx
}

// Contains reports whether question is already indexed.
func (i *QuestionIndex) Contains(question string) bool {
	_, ok := i.keys[models.QuestionKey(question)]
	return ok
}

// Add indexes question and reports whether it was new.
func (i *QuestionIndex) Add(question string) bool {
	key := models.QuestionKey(question)
	if _, ok := i.keys[key]; ok {
		return false
	}
	i.keys[key] = struct{}{}
	return true
}

// Len returns the number of distinct questions.
func (i *QuestionIndex) Len() int {
	return len(i.keys)
}
