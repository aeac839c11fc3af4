package analysis

import (
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/kanvas/pkg/model"
)

func cat(id int, parent ...int) model.Category {
	c := model.Category{ID: id, Name: "c"}
	if len(parent) > 0 {
		p := parent[0]
		c.ParentID = &p
	}
	return c
}

func TestAnalyzeCategoriesEmpty(t *testing.T) {
	r := AnalyzeCategories(nil, 0)
	if r.Categories != 0 || r.Leaves != 0 || r.MaxDepth != 0 {
		t.Errorf("unexpected report for empty input: %+v", r)
	}
	if !r.Healthy() {
		t.Error("empty hierarchy should be healthy")
	}
}

func TestAnalyzeCategoriesHealthy(t *testing.T) {
	cats := []model.Category{
		cat(1),
		cat(2, 1),
		cat(3, 1),
		cat(4, 2),
		cat(5),
	}
	r := AnalyzeCategories(cats, 0)

	if !r.Healthy() {
		t.Fatalf("expected healthy report, got %+v", r)
	}
	if !reflect.DeepEqual(r.TopLevel, []int{1, 5}) {
		t.Errorf("TopLevel = %v, want [1 5]", r.TopLevel)
	}
	if r.Leaves != 3 {
		t.Errorf("Leaves = %d, want 3", r.Leaves)
	}
	if r.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, want 3", r.MaxDepth)
	}
	if !reflect.DeepEqual(r.DepthHistogram, []int{0, 2, 2, 1}) {
		t.Errorf("DepthHistogram = %v, want [0 2 2 1]", r.DepthHistogram)
	}
	if r.Cycles != nil || r.CycleBreaks != nil {
		t.Errorf("expected no cycles, got %v / %v", r.Cycles, r.CycleBreaks)
	}
	if !strings.Contains(r.Summary(), "5 categories") {
		t.Errorf("unexpected summary %q", r.Summary())
	}
}

func TestAnalyzeCategoriesCycle(t *testing.T) {
	cats := []model.Category{
		cat(1),
		cat(2, 4),
		cat(3, 2),
		cat(4, 3),
		cat(5, 4),
	}
	r := AnalyzeCategories(cats, 0)

	if r.Healthy() {
		t.Fatal("expected unhealthy report")
	}
	if !reflect.DeepEqual(r.Cycles, [][]int{{2, 4, 3}}) {
		t.Errorf("Cycles = %v, want [[2 4 3]]", r.Cycles)
	}
	if len(r.CycleBreaks) != 3 {
		t.Fatalf("expected 3 cycle breaks, got %d", len(r.CycleBreaks))
	}
	// 3 has one child, 2 has one child, 4 has two; ties break on the smaller
	// collateral, then on the id.
	first := r.CycleBreaks[0]
	if first.Category != 2 || first.Parent != 4 || first.Collateral != 1 {
		t.Errorf("unexpected first suggestion %+v", first)
	}
	last := r.CycleBreaks[2]
	if last.Category != 4 || last.Collateral != 2 {
		t.Errorf("unexpected last suggestion %+v", last)
	}
	if r.MaxDepth != 1 {
		t.Errorf("categories on or below a cycle must not count toward depth, got MaxDepth %d", r.MaxDepth)
	}
	if !strings.Contains(r.Summary(), "1 cycles") {
		t.Errorf("unexpected summary %q", r.Summary())
	}
}

func TestAnalyzeCategoriesCycleBreakLimit(t *testing.T) {
	cats := []model.Category{
		cat(1, 2), cat(2, 1),
		cat(3, 4), cat(4, 3),
		cat(5, 6), cat(6, 5),
	}
	r := AnalyzeCategories(cats, 2)
	if len(r.Cycles) != 3 {
		t.Fatalf("expected 3 cycles, got %v", r.Cycles)
	}
	if len(r.CycleBreaks) != 2 {
		t.Errorf("expected suggestions capped at 2, got %d", len(r.CycleBreaks))
	}
}

func TestAnalyzeCategoriesDefects(t *testing.T) {
	cats := []model.Category{
		cat(1),
		cat(1),
		cat(2, 2),
		cat(3, 99),
	}
	r := AnalyzeCategories(cats, 0)

	if !reflect.DeepEqual(r.Duplicates, []int{1}) {
		t.Errorf("Duplicates = %v, want [1]", r.Duplicates)
	}
	if !reflect.DeepEqual(r.SelfParents, []int{2}) {
		t.Errorf("SelfParents = %v, want [2]", r.SelfParents)
	}
	if !reflect.DeepEqual(r.DanglingParents, []int{3}) {
		t.Errorf("DanglingParents = %v, want [3]", r.DanglingParents)
	}
	if !reflect.DeepEqual(r.TopLevel, []int{1, 3}) {
		t.Errorf("TopLevel = %v, want [1 3]", r.TopLevel)
	}
	if r.Healthy() {
		t.Error("duplicates and self-parents make the hierarchy unhealthy")
	}
}
