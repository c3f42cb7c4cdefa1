package schema

// StatusCount is one line of a status distribution.
type StatusCount struct {
	Status string `json:"status" yaml:"status"`
	Count  int    `json:"count" yaml:"count"`
}

// Tally counts status values in the order they were first seen.
type Tally struct {
	order  []string
	counts map[string]int
}

// TallyStatuses counts the status of every record.
func TallyStatuses(records []Record) *Tally {
	t := &Tally{counts: make(map[string]int)}
	for _, r := range records {
		t.Add(r.Status())
	}
	return t
}

func (t *Tally) Add(status string) {
	if _, seen := t.counts[status]; !seen {
		t.order = append(t.order, status)
	}
	t.counts[status]++
}

// Counts returns a copy of the distribution.
func (t *Tally) Counts() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// Entries returns the distribution in first-seen order.
func (t *Tally) Entries() []StatusCount {
	out := make([]StatusCount, 0, len(t.order))
	for _, s := range t.order {
		out = append(out, StatusCount{Status: s, Count: t.counts[s]})
	}
	return out
}

func (t *Tally) Total() int {
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}
