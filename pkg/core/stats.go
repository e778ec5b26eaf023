package core

import (
	"context"
	"sort"
	"strings"
)

// Stats summarizes a dataset.
type Stats struct {
	Entries int `json:"entries"`
	Tokens  int `json:"tokens"`
	// Misaligned counts entries whose CAT length differs from their token
	// count. Only data written by older tools can contain such entries.
	Misaligned int            `json:"misaligned"`
	Tags       map[string]int `json:"tags"`
}

// TagCount is one row of a tag frequency table.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TopTags returns the tag frequencies sorted by descending count, then tag.
// n <= 0 returns all of them.
func (s Stats) TopTags(n int) []TagCount {
	out := make([]TagCount, 0, len(s.Tags))
	for tag, count := range s.Tags {
		out = append(out, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ComputeStats summarizes entries.
func ComputeStats(entries []Entry) Stats {
	s := Stats{Entries: len(entries), Tags: make(map[string]int)}
	for _, e := range entries {
		tokens := len(strings.Fields(e.Code))
		s.Tokens += tokens
		if tokens != len(e.CAT) {
			s.Misaligned++
		}
		for _, tag := range e.CAT {
			s.Tags[tag]++
		}
	}
	return s
}

// Stats reads dataset id and summarizes it.
func (a *Aggregator) Stats(ctx context.Context, id DocumentID) (Stats, error) {
	entries, err := a.Entries(ctx, id)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(entries), nil
}
