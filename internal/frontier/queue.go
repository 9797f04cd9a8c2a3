package frontier

// Queue is the FIFO of URLs awaiting a visit. It may hold duplicates; the
// visited set filters them when they reach the front. Not safe for
// concurrent use.
type Queue struct {
	items []string
	head  int
}

// NewQueue returns a queue holding urls in order.
func NewQueue(urls ...string) *Queue {
	q := &Queue{}
	q.Push(urls...)
	return q
}

// Push appends urls to the back.
func (q *Queue) Push(urls ...string) {
	q.items = append(q.items, urls...)
}

// Pop removes and returns the front URL.
func (q *Queue) Pop() (string, bool) {
	if q.head >= len(q.items) {
		return "", false
	}
	u := q.items[q.head]
	q.items[q.head] = ""
	q.head++
	if q.head > 64 && q.head*2 >= len(q.items) {
		q.items = append([]string(nil), q.items[q.head:]...)
		q.head = 0
	}
	return u, true
}

// Len returns the number of queued URLs.
func (q *Queue) Len() int {
	return len(q.items) - q.head
}
