package model

import (
	"strings"
	"testing"
)

func TestRole_IsValid(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want bool
	}{
		{"Admin", RoleAdmin, true},
		{"Moderator", RoleModerator, true},
		{"Creator", RoleCreator, true},
		{"Collector", RoleCollector, true},
		{"Zero", 0, false},
		{"Unknown", 99, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.IsValid(); got != tt.want {
				t.Errorf("Role.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllRolesValid(t *testing.T) {
	if !AllRolesValid(nil) {
		t.Error("empty role list should be valid")
	}
	if !AllRolesValid(AllRoles()) {
		t.Error("every known role should be valid")
	}
	if AllRolesValid([]Role{RoleAdmin, 42}) {
		t.Error("a partially invalid list must be rejected")
	}
}

func TestRole_String(t *testing.T) {
	if RoleCreator.String() != "creator" {
		t.Errorf("unexpected name %q", RoleCreator.String())
	}
	if Role(9).String() != "role(9)" {
		t.Errorf("unexpected name %q", Role(9).String())
	}
}

func TestCategory_Validate(t *testing.T) {
	self := 3
	tests := []struct {
		name    string
		cat     Category
		wantErr string
	}{
		{"Valid", Category{ID: 1, Name: "Art"}, ""},
		{"ZeroID", Category{ID: 0, Name: "Art"}, "positive"},
		{"EmptyName", Category{ID: 1, Name: "  "}, "name"},
		{"SelfParent", Category{ID: 3, Name: "Loop", ParentID: &self}, "own parent"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cat.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNFT_Validate(t *testing.T) {
	valid := NFT{ID: 1, Name: "Sunset", Price: 12.5, CategoryID: 2}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	negative := valid
	negative.Price = -1
	if err := negative.Validate(); err == nil {
		t.Error("expected error for negative price")
	}

	noCategory := valid
	noCategory.CategoryID = 0
	if err := noCategory.Validate(); err == nil {
		t.Error("expected error for missing category")
	}
}

func TestNewUser_Validate(t *testing.T) {
	u := NewUser{Email: "a@b.io", UserName: "alice", Address: "tz1abc"}
	if err := u.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	u.Email = "nope"
	if err := u.Validate(); err == nil {
		t.Error("expected error for invalid email")
	}
}

func TestUserFilter_Normalize(t *testing.T) {
	f := UserFilter{}
	if err := f.Normalize(); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if f.OrderBy != "id" || f.OrderDirection != SortAsc || f.PageSize != 20 {
		t.Errorf("unexpected defaults: %+v", f)
	}

	f = UserFilter{OrderBy: "email", OrderDirection: "desc"}
	if err := f.Normalize(); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if f.OrderDirection != SortDesc {
		t.Errorf("expected direction to be upper-cased, got %q", f.OrderDirection)
	}

	bad := []UserFilter{
		{OrderBy: "password"},
		{OrderBy: "id; DROP TABLE kanvas_user"},
		{OrderDirection: "sideways"},
		{PageOffset: -1},
	}
	for _, f := range bad {
		if err := f.Normalize(); err == nil {
			t.Errorf("expected error for %+v", f)
		}
	}
}

func TestListingQuery_Normalize(t *testing.T) {
	q := ListingQuery{}
	if err := q.Normalize(); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if q.Sort != SortNewest || q.Page != 1 || q.PageSize != DefaultPageSize {
		t.Errorf("unexpected defaults: %+v", q)
	}
	if q.Offset() != 0 {
		t.Errorf("expected offset 0, got %d", q.Offset())
	}

	q = ListingQuery{Page: 3, PageSize: 12}
	if err := q.Normalize(); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if q.Offset() != 24 {
		t.Errorf("expected offset 24, got %d", q.Offset())
	}

	lo, hi := 10.0, 5.0
	q = ListingQuery{MinPrice: &lo, MaxPrice: &hi}
	if err := q.Normalize(); err == nil {
		t.Error("expected error for inverted price range")
	}

	q = ListingQuery{Sort: "random"}
	if err := q.Normalize(); err == nil {
		t.Error("expected error for unknown sort")
	}
}

func TestListingPage_PageCount(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 12, 0},
		{1, 12, 1},
		{12, 12, 1},
		{13, 12, 2},
		{25, 12, 3},
		{5, 0, 0},
	}
	for _, tt := range tests {
		p := ListingPage{Total: tt.total, PageSize: tt.size}
		if got := p.PageCount(); got != tt.want {
			t.Errorf("PageCount(total=%d, size=%d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestParseRoles(t *testing.T) {
	tests := []struct {
		in      string
		want    []Role
		wantErr bool
	}{
		{"admin", []Role{RoleAdmin}, false},
		{"Creator, 4", []Role{RoleCreator, RoleCollector}, false},
		{" ,2,, ", []Role{RoleModerator}, false},
		{"", nil, false},
		{"owner", nil, true},
		{"9", nil, true},
		{"2x", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseRoles(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRoles(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseRoles(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseRoles(%q) = %v, want %v", tt.in, got, tt.want)
				break
			}
		}
	}
}
