package validation

import (
	"testing"

	"github.com/yungbote/lectureplanner-backend/internal/domain"
)

func checkByName(r InvariantReport, name string) InvariantCheck {
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	return InvariantCheck{}
}

func TestCheckTree(t *testing.T) {
	p := domain.StringPtr
	cases := []struct {
		name   string
		topics []domain.Topic
		failed string
	}{
		{
			name: "valid forest",
			topics: []domain.Topic{
				{ID: "a", Depth: 1},
				{ID: "b", Depth: 2, ParentID: p("a")},
				{ID: "c", Depth: 1},
			},
		},
		{
			name:   "duplicate id",
			topics: []domain.Topic{{ID: "a", Depth: 1}, {ID: "a", Depth: 1}},
			failed: "duplicate_ids",
		},
		{
			name:   "orphan",
			topics: []domain.Topic{{ID: "a", Depth: 1}, {ID: "b", Depth: 2, ParentID: p("zzz")}},
			failed: "orphan_parents",
		},
		{
			name:   "depth skip",
			topics: []domain.Topic{{ID: "a", Depth: 1}, {ID: "b", Depth: 3, ParentID: p("a")}},
			failed: "depth_consistency",
		},
		{
			name:   "root with parent",
			topics: []domain.Topic{{ID: "a", Depth: 1}, {ID: "b", Depth: 1, ParentID: p("a")}},
			failed: "root_shape",
		},
		{
			name:   "deep node without parent",
			topics: []domain.Topic{{ID: "a", Depth: 1}, {ID: "b", Depth: 2}},
			failed: "root_shape",
		},
		{
			name: "cycle",
			topics: []domain.Topic{
				{ID: "r", Depth: 1},
				{ID: "a", Depth: 2, ParentID: p("b")},
				{ID: "b", Depth: 3, ParentID: p("a")},
			},
			failed: "cycles",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := CheckTree(tc.topics)
			if tc.failed == "" {
				if r.Status != StatusPass {
					t.Fatalf("expected pass, got %+v", r)
				}
				return
			}
			if r.Status != StatusFail {
				t.Fatalf("expected fail, got %+v", r)
			}
			if c := checkByName(r, tc.failed); c.Status != StatusFail || c.Count == 0 {
				t.Fatalf("expected %s to fail: %+v", tc.failed, r.Checks)
			}
		})
	}
}

func TestCheckTreeCycleMembers(t *testing.T) {
	p := domain.StringPtr
	r := CheckTree([]domain.Topic{
		{ID: "r", Depth: 1},
		{ID: "a", Depth: 2, ParentID: p("b")},
		{ID: "b", Depth: 3, ParentID: p("a")},
		{ID: "c", Depth: 4, ParentID: p("b")},
	})
	c := checkByName(r, "cycles")
	if c.Count != 2 || c.Sample[0] != "a" || c.Sample[1] != "b" {
		t.Fatalf("unexpected cycle members: %+v", c)
	}
}

func TestRelatedTopicsOnlyWarn(t *testing.T) {
	r := CheckTree([]domain.Topic{{ID: "a", Depth: 1, RelatedTopics: []string{"missing"}}})
	if r.Status != StatusPass {
		t.Fatalf("dangling related topics should not fail: %+v", r)
	}
	if c := checkByName(r, "related_topics"); c.Status != StatusWarn || c.Count != 1 {
		t.Fatalf("expected warning: %+v", c)
	}
	if len(r.Failed()) != 0 {
		t.Fatalf("Failed() should ignore warnings: %v", r.Failed())
	}
}
