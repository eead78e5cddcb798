package validation

import (
	"fmt"
	"sort"
	"time"

	"github.com/yungbote/lectureplanner-backend/internal/domain"
)

const (
	StatusPass = "pass"
	StatusFail = "fail"
	StatusWarn = "warn"
)

const sampleLimit = 5

// CheckDuplicateIDs names the check that fails when two topics share an id.
const CheckDuplicateIDs = "duplicate_ids"

type InvariantCheck struct {
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Count  int      `json:"count"`
	Sample []string `json:"sample,omitempty"`
}

type InvariantReport struct {
	Status    string           `json:"status"`
	Reason    string           `json:"reason,omitempty"`
	CheckedAt time.Time        `json:"checked_at"`
	Checks    []InvariantCheck `json:"checks"`
}

// Failed returns the names of checks that did not pass. Warnings are excluded.
func (r InvariantReport) Failed() []string {
	var out []string
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			out = append(out, c.Name)
		}
	}
	return out
}

func (r InvariantReport) failed(name string) bool {
	for _, c := range r.Checks {
		if c.Name == name && c.Status == StatusFail {
			return true
		}
	}
	return false
}

// CheckTree verifies the topic set forms a forest: unique ids, resolvable
// parents, roots at depth 1, child depth = parent depth + 1 and no cycles.
// Dangling relatedTopics references only warn.
func CheckTree(topics []domain.Topic) InvariantReport {
	byID := make(map[string]domain.Topic, len(topics))
	dupes := newCheck(CheckDuplicateIDs)
	for _, t := range topics {
		if _, seen := byID[t.ID]; seen {
			dupes.add(StatusFail, t.ID)
			continue
		}
		byID[t.ID] = t
	}

	orphans := newCheck("orphan_parents")
	roots := newCheck("root_shape")
	depths := newCheck("depth_consistency")
	related := newCheck("related_topics")
	for _, t := range topics {
		switch {
		case t.ParentID == nil && t.Depth != 1:
			roots.add(StatusFail, fmt.Sprintf("%s: depth %d without parent", t.ID, t.Depth))
		case t.ParentID != nil && t.Depth == 1:
			roots.add(StatusFail, fmt.Sprintf("%s: root with parent %s", t.ID, *t.ParentID))
		}
		if t.ParentID != nil {
			p, ok := byID[*t.ParentID]
			if !ok {
				orphans.add(StatusFail, fmt.Sprintf("%s -> %s", t.ID, *t.ParentID))
			} else if t.Depth != p.Depth+1 {
				depths.add(StatusFail, fmt.Sprintf("%s: depth %d under %s at depth %d", t.ID, t.Depth, p.ID, p.Depth))
			}
		}
		for _, r := range t.RelatedTopics {
			if _, ok := byID[r]; !ok || r == t.ID {
				related.add(StatusWarn, fmt.Sprintf("%s -> %s", t.ID, r))
			}
		}
	}

	cycles := newCheck("cycles")
	for _, id := range cycleMembers(byID) {
		cycles.add(StatusFail, id)
	}

	report := InvariantReport{
		Status:    StatusPass,
		CheckedAt: time.Now().UTC(),
		Checks:    []InvariantCheck{dupes.InvariantCheck, orphans.InvariantCheck, roots.InvariantCheck, depths.InvariantCheck, cycles.InvariantCheck, related.InvariantCheck},
	}
	for _, c := range report.Checks {
		if c.Status == StatusFail {
			report.Status = StatusFail
			report.Reason = c.Name
			break
		}
	}
	return report
}

type check struct{ InvariantCheck }

func newCheck(name string) *check {
	return &check{InvariantCheck{Name: name, Status: StatusPass}}
}

func (c *check) add(status, sample string) {
	c.Count++
	if c.Status != StatusFail {
		c.Status = status
	}
	if len(c.Sample) < sampleLimit {
		c.Sample = append(c.Sample, sample)
	}
}

// cycleMembers follows parent links from every node and returns, sorted,
// the ids that sit on a parent cycle.
func cycleMembers(byID map[string]domain.Topic) []string {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[string]int, len(byID))
	onCycle := map[string]bool{}
	for start := range byID {
		if state[start] != unvisited {
			continue
		}
		var path []string
		cur := start
		for {
			if state[cur] == active {
				for i := len(path) - 1; i >= 0; i-- {
					onCycle[path[i]] = true
					if path[i] == cur {
						break
					}
				}
				break
			}
			if state[cur] == done {
				break
			}
			state[cur] = active
			path = append(path, cur)
			t := byID[cur]
			if t.ParentID == nil {
				break
			}
			if _, ok := byID[*t.ParentID]; !ok {
				break
			}
			cur = *t.ParentID
		}
		for _, id := range path {
			state[id] = done
		}
	}
	out := make([]string, 0, len(onCycle))
	for id := range onCycle {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
