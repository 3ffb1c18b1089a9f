package signals

import (
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Counter tallies keys and remembers the order they were first seen in,
// which is what every "most common" tie-break in the aggregators relies on
type Counter struct {
	counts *orderedmap.OrderedMap[string, float64]
	total  float64
}

// KeyCount is a single Counter row
type KeyCount struct {
	Key   string
	Count float64
}

// NewCounter creates an empty counter
func NewCounter() *Counter {
	return &Counter{counts: orderedmap.New[string, float64]()}
}

// Add increments key by n
func (c *Counter) Add(key string, n float64) {
	current, _ := c.counts.Get(key)
	c.counts.Set(key, current+n)
	c.total += n
}

// Get returns the count for key
func (c *Counter) Get(key string) float64 {
	v, _ := c.counts.Get(key)
	return v
}

// Len returns the number of distinct keys
func (c *Counter) Len() int {
	return c.counts.Len()
}

// Total returns the sum of all counts
func (c *Counter) Total() float64 {
	return c.total
}

// Rows returns every key in first-seen order
func (c *Counter) Rows() []KeyCount {
	rows := make([]KeyCount, 0, c.counts.Len())
	for pair := c.counts.Oldest(); pair != nil; pair = pair.Next() {
		rows = append(rows, KeyCount{Key: pair.Key, Count: pair.Value})
	}
	return rows
}

// MostCommon returns up to n rows by descending count; equal counts keep
// first-seen order. n <= 0 returns every row.
func (c *Counter) MostCommon(n int) []KeyCount {
	rows := c.Rows()
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// Top returns the most common key, or "" when empty
func (c *Counter) Top() (string, float64) {
	var best KeyCount
	found := false
	for pair := c.counts.Oldest(); pair != nil; pair = pair.Next() {
		if !found || pair.Value > best.Count {
			best = KeyCount{Key: pair.Key, Count: pair.Value}
			found = true
		}
	}
	return best.Key, best.Count
}

// Ints converts the counter to a plain map of integer counts
func (c *Counter) Ints() map[string]int {
	out := make(map[string]int, c.counts.Len())
	for pair := c.counts.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = int(pair.Value)
	}
	return out
}
