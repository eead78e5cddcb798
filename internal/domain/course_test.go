package domain

import (
	"errors"
	"testing"
)

func f(v float64) *float64 { return &v }

func sample() *Course {
	return &Course{
		Title: "Biology",
		Topics: []Topic{
			{ID: "t1", Title: "Cells", Depth: 1},
			{ID: "t1.1", Title: "Membranes", Depth: 2, ParentID: StringPtr("t1"), Duration: f(45), Difficulty: f(3)},
			{ID: "t1.1.1", Title: "Lipids", Depth: 3, ParentID: StringPtr("t1.1"), RelatedTopics: []string{"t2"}},
			{ID: "t2", Title: "Genetics", Depth: 1, RelatedTopics: []string{"t1.1"}, Difficulty: f(4)},
		},
	}
}

func TestAddTopicDerivesDepth(t *testing.T) {
	c := sample()
	got, err := c.AddTopic(Topic{Title: "Proteins", ParentID: StringPtr("t1.1"), Depth: 9})
	if err != nil {
		t.Fatalf("AddTopic: %v", err)
	}
	if got.Depth != 3 {
		t.Fatalf("depth: got %d want 3", got.Depth)
	}
	if got.ID == "" {
		t.Fatalf("expected generated id")
	}
	root, err := c.AddTopic(Topic{ID: "t3", Title: "Ecology", ParentID: StringPtr("")})
	if err != nil {
		t.Fatalf("AddTopic root: %v", err)
	}
	if root.Depth != 1 || root.ParentID != nil {
		t.Fatalf("root placement wrong: %+v", root)
	}
}

func TestAddTopicErrors(t *testing.T) {
	c := sample()
	cases := []struct {
		name string
		in   Topic
		want error
	}{
		{"missing parent", Topic{Title: "x", ParentID: StringPtr("nope")}, ErrParentNotFound},
		{"duplicate", Topic{ID: "t1", Title: "x"}, ErrDuplicateTopic},
		{"empty title", Topic{Title: "  "}, ErrInvalidTopic},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.AddTopic(tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("got %v want %v", err, tc.want)
			}
		})
	}
}

func TestUpdateTopic(t *testing.T) {
	c := sample()
	title := "Cell Biology"
	notes := "intro"
	got, err := c.UpdateTopic("t1", TopicPatch{Title: &title, Notes: &notes, Difficulty: f(2)})
	if err != nil {
		t.Fatalf("UpdateTopic: %v", err)
	}
	if got.Title != title || got.Notes != notes || *got.Difficulty != 2 || got.Depth != 1 {
		t.Fatalf("unexpected topic: %+v", got)
	}
	empty := " "
	if _, err := c.UpdateTopic("t1", TopicPatch{Title: &empty}); !errors.Is(err, ErrInvalidTopic) {
		t.Fatalf("expected invalid topic, got %v", err)
	}
	if _, err := c.UpdateTopic("zzz", TopicPatch{}); !errors.Is(err, ErrTopicNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	bad := []string{"ghost"}
	if _, err := c.UpdateTopic("t1", TopicPatch{RelatedTopics: &bad}); !errors.Is(err, ErrInvalidTopic) {
		t.Fatalf("expected invalid related topic, got %v", err)
	}
}

func TestRemoveTopicRemovesSubtree(t *testing.T) {
	c := sample()
	removed, err := c.RemoveTopic("t1")
	if err != nil {
		t.Fatalf("RemoveTopic: %v", err)
	}
	if len(removed) != 3 {
		t.Fatalf("removed %v", removed)
	}
	if len(c.Topics) != 1 || c.Topics[0].ID != "t2" {
		t.Fatalf("unexpected remaining topics: %+v", c.Topics)
	}
	if len(c.Topics[0].RelatedTopics) != 0 {
		t.Fatalf("dangling related topics kept: %v", c.Topics[0].RelatedTopics)
	}
	if _, err := c.RemoveTopic("t1"); !errors.Is(err, ErrTopicNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStats(t *testing.T) {
	c := sample()
	s := c.Stats()
	if s.TopicCount != 4 || s.RootCount != 2 || s.MaxDepth != 3 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	// 30 + 45 + 30 + 30
	if s.TotalMinutes != 135 {
		t.Fatalf("total minutes: got %v", s.TotalMinutes)
	}
	// (1 + 3 + 1 + 4) / 4 = 2.25
	if s.AverageDifficulty != 2 {
		t.Fatalf("average difficulty: got %v", s.AverageDifficulty)
	}
	if (&Course{}).Stats().AverageDifficulty != 0 {
		t.Fatalf("empty course should have zero average")
	}
}

func TestRootsAndChildren(t *testing.T) {
	c := sample()
	if len(c.Roots()) != 2 {
		t.Fatalf("roots: %v", c.Roots())
	}
	kids := c.Children("t1")
	if len(kids) != 1 || kids[0].ID != "t1.1" {
		t.Fatalf("children: %v", kids)
	}
}
