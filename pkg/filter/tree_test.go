package filter

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/kanvas/pkg/model"
)

func intPtr(v int) *int { return &v }

func TestBuildDerivesParents(t *testing.T) {
	tree := sampleTree(t)

	if tree.Root() != 0 {
		t.Errorf("expected root 0, got %d", tree.Root())
	}
	if tree.Len() != 6 {
		t.Errorf("expected 6 nodes, got %d", tree.Len())
	}
	if p, ok := tree.Parent(1); !ok || p != 10 {
		t.Errorf("expected parent of leaf1 to be 10, got %d (%v)", p, ok)
	}
	if _, ok := tree.Parent(0); ok {
		t.Error("root must not have a parent")
	}
	if got := tree.Ancestors(3); !reflect.DeepEqual(got, []int{20, 0}) {
		t.Errorf("expected ancestors [20 0], got %v", got)
	}
	if got := tree.Ancestors(0); len(got) != 0 {
		t.Errorf("expected no ancestors for root, got %v", got)
	}
	if tree.Depth(2) != 2 {
		t.Errorf("expected depth 2, got %d", tree.Depth(2))
	}
	if !tree.IsLeaf(2) || tree.IsLeaf(10) {
		t.Error("leaf detection is wrong")
	}
}

func TestBuildChildrenAreCopies(t *testing.T) {
	tree := sampleTree(t)
	kids := tree.Children(10)
	kids[0] = 999
	if tree.Children(10)[0] != 1 {
		t.Error("Children must return a copy")
	}
}

func TestBuildWalkPreorder(t *testing.T) {
	tree := sampleTree(t)
	var ids, depths []int
	tree.Walk(func(id, depth int) {
		ids = append(ids, id)
		depths = append(depths, depth)
	})
	if !reflect.DeepEqual(ids, []int{0, 10, 1, 2, 20, 3}) {
		t.Errorf("unexpected preorder %v", ids)
	}
	if !reflect.DeepEqual(depths, []int{0, 1, 2, 2, 1, 2}) {
		t.Errorf("unexpected depths %v", depths)
	}
}

func TestBuildMalformed(t *testing.T) {
	shared := &Node{ID: 5, Name: "shared"}
	loop := &Node{ID: 1, Name: "loop"}
	loop.Children = []*Node{{ID: 2, Name: "inner", Children: []*Node{loop}}}

	tests := []struct {
		name string
		root *Node
	}{
		{"nil root", nil},
		{"nil child", &Node{ID: 1, Children: []*Node{nil}}},
		{"duplicate id", &Node{ID: 1, Children: []*Node{{ID: 2}, {ID: 2}}}},
		{"shared subtree", &Node{ID: 1, Children: []*Node{shared, shared}}},
		{"cycle", loop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.root)
			var malformed *MalformedTreeError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedTreeError, got %v", err)
			}
		})
	}
}

func TestBuildFromCategories(t *testing.T) {
	cats := []model.Category{
		{ID: 1, Name: "Art"},
		{ID: 2, Name: "Painting", ParentID: intPtr(1)},
		{ID: 3, Name: "Photo", ParentID: intPtr(1)},
		{ID: 4, Name: "Music"},
		{ID: 5, Name: "Orphan", ParentID: intPtr(404)},
	}

	tree, err := BuildFromCategories(cats)
	if err != nil {
		t.Fatalf("BuildFromCategories failed: %v", err)
	}
	if tree.Root() != RootID || tree.Name(RootID) != RootName {
		t.Errorf("expected synthetic root, got %d %q", tree.Root(), tree.Name(RootID))
	}
	if got := tree.Children(RootID); !reflect.DeepEqual(got, []int{1, 4, 5}) {
		t.Errorf("expected top-level [1 4 5] (orphan attached to root), got %v", got)
	}
	if got := tree.Children(1); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("expected Art children [2 3], got %v", got)
	}
	if tree.LeafCount(RootID) != 4 {
		t.Errorf("expected 4 leaves, got %d", tree.LeafCount(RootID))
	}
}

func TestBuildFromCategoriesEmpty(t *testing.T) {
	tree, err := BuildFromCategories(nil)
	if err != nil {
		t.Fatalf("BuildFromCategories failed: %v", err)
	}
	if tree.Len() != 1 || !tree.IsLeaf(RootID) {
		t.Errorf("expected a lone root, got %d nodes", tree.Len())
	}
}

func TestBuildFromCategoriesMalformed(t *testing.T) {
	tests := []struct {
		name   string
		cats   []model.Category
		reason string
	}{
		{
			name:   "reserved id",
			cats:   []model.Category{{ID: 0, Name: "zero"}},
			reason: "positive",
		},
		{
			name:   "duplicate",
			cats:   []model.Category{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}},
			reason: "duplicate",
		},
		{
			name: "parent cycle",
			cats: []model.Category{
				{ID: 1, Name: "root-level"},
				{ID: 2, Name: "a", ParentID: intPtr(3)},
				{ID: 3, Name: "b", ParentID: intPtr(2)},
			},
			reason: "2, 3",
		},
		{
			name:   "self parent",
			cats:   []model.Category{{ID: 7, Name: "self", ParentID: intPtr(7)}},
			reason: "cycle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildFromCategories(tt.cats)
			var malformed *MalformedTreeError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedTreeError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("expected error to mention %q, got %q", tt.reason, err.Error())
			}
		})
	}
}
