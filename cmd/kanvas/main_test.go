package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/kanvas/pkg/model"
	"github.com/vanderheijden86/kanvas/pkg/store"
)

func intPtr(v int) *int { return &v }

func openSeeded(t *testing.T, cats []model.Category) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "kanvas.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	seed := &store.Seed{
		Categories: cats,
		NFTs: []model.NFT{
			{ID: 1, Name: "Sunset", Price: 10, CategoryID: 2, OwnerAddress: "tz1alice", CreatedAt: base},
			{ID: 2, Name: "Portrait", Price: 5, CategoryID: 3, OwnerAddress: "tz1alice", CreatedAt: base.Add(time.Hour)},
			{ID: 3, Name: "Anthem", Price: 40, CategoryID: 4, CreatedAt: base.Add(2 * time.Hour)},
		},
		Users: []model.NewUser{
			{Email: "alice@example.com", UserName: "alice", Address: "tz1alice", Roles: []model.Role{model.RoleCreator}},
		},
	}
	if err := st.ApplySeed(context.Background(), seed); err != nil {
		t.Fatalf("ApplySeed failed: %v", err)
	}
	return st
}

func healthyCategories() []model.Category {
	return []model.Category{
		{ID: 1, Name: "Art"},
		{ID: 2, Name: "Painting", ParentID: intPtr(1)},
		{ID: 3, Name: "Photography", ParentID: intPtr(1)},
		{ID: 4, Name: "Music"},
	}
}

func TestListingsCmd_ParentExpandsToLeaves(t *testing.T) {
	st := openSeeded(t, healthyCategories())

	var buf bytes.Buffer
	q := model.ListingQuery{Sort: model.SortPriceAsc, Page: 1, PageSize: 12}
	if err := listingsCmd(context.Background(), &buf, st, []int{1}, q); err != nil {
		t.Fatalf("listingsCmd failed: %v", err)
	}

	var out struct {
		NFTs  []model.NFT `json:"nfts"`
		Total int         `json:"total"`
		Pages int         `json:"pages"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Total != 2 || out.Pages != 1 {
		t.Errorf("expected 2 NFTs on 1 page, got total=%d pages=%d", out.Total, out.Pages)
	}
	if len(out.NFTs) != 2 || out.NFTs[0].Name != "Portrait" || out.NFTs[1].Name != "Sunset" {
		t.Errorf("unexpected listings %+v", out.NFTs)
	}
}

func TestListingsCmd_DuplicateAndCoveredIDs(t *testing.T) {
	st := openSeeded(t, healthyCategories())

	var buf bytes.Buffer
	q := model.ListingQuery{Page: 1, PageSize: 12}
	// 2 is already covered by 1; listing it again must not deselect it.
	if err := listingsCmd(context.Background(), &buf, st, []int{1, 2, 2}, q); err != nil {
		t.Fatalf("listingsCmd failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"total": 2`) {
		t.Errorf("expected both Art NFTs, got %s", buf.String())
	}
}

func TestListingsCmd_UnknownCategory(t *testing.T) {
	st := openSeeded(t, healthyCategories())

	err := listingsCmd(context.Background(), &bytes.Buffer{}, st, []int{99}, model.ListingQuery{})
	if err == nil || !strings.Contains(err.Error(), "unknown category node 99") {
		t.Errorf("expected unknown node error, got %v", err)
	}
}

func TestCheckCategoriesCmd(t *testing.T) {
	st := openSeeded(t, healthyCategories())
	var buf bytes.Buffer
	healthy, err := checkCategoriesCmd(context.Background(), &buf, st)
	if err != nil || !healthy {
		t.Fatalf("expected a healthy report, got %v %v", healthy, err)
	}
	if !strings.Contains(buf.String(), `"leaves": 3`) {
		t.Errorf("unexpected report %s", buf.String())
	}

	cyclic := openSeeded(t, []model.Category{
		{ID: 1, Name: "Art"},
		{ID: 2, Name: "Painting", ParentID: intPtr(3)},
		{ID: 3, Name: "Photography", ParentID: intPtr(2)},
		{ID: 4, Name: "Music"},
	})
	buf.Reset()
	healthy, err = checkCategoriesCmd(context.Background(), &buf, cyclic)
	if err != nil || healthy {
		t.Fatalf("expected an unhealthy report, got %v %v", healthy, err)
	}
	if !strings.Contains(buf.String(), `"cycles"`) {
		t.Errorf("report should list the cycle: %s", buf.String())
	}
}

func TestUserCommands(t *testing.T) {
	st := openSeeded(t, healthyCategories())
	ctx := context.Background()

	var buf bytes.Buffer
	payload := `{"email":"bob@example.com","user_name":"bob","address":"tz1bob","roles":[4]}`
	if err := addUserCmd(ctx, &buf, st, []byte(payload)); err != nil {
		t.Fatalf("addUserCmd failed: %v", err)
	}
	var created model.User
	if err := json.Unmarshal(buf.Bytes(), &created); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if created.ID == 0 || created.UserName != "bob" {
		t.Fatalf("unexpected user %+v", created)
	}

	buf.Reset()
	if err := setRolesCmd(ctx, &buf, st, created.ID, []model.Role{model.RoleAdmin, model.RoleCollector}); err != nil {
		t.Fatalf("setRolesCmd failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"roles": [`) {
		t.Errorf("unexpected output %s", buf.String())
	}

	buf.Reset()
	if err := listUsersCmd(ctx, &buf, st, model.UserFilter{RoleIDs: []model.Role{model.RoleAdmin}}); err != nil {
		t.Fatalf("listUsersCmd failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"total": 1`) || !strings.Contains(buf.String(), "bob") {
		t.Errorf("expected only bob as admin, got %s", buf.String())
	}

	if err := disableUserCmd(ctx, &bytes.Buffer{}, st, created.ID); err != nil {
		t.Fatalf("disableUserCmd failed: %v", err)
	}
	if err := disableUserCmd(ctx, &bytes.Buffer{}, st, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("disabling twice should be ErrNotFound, got %v", err)
	}
}

func TestAddUserCmd_Invalid(t *testing.T) {
	st := openSeeded(t, healthyCategories())
	ctx := context.Background()

	if err := addUserCmd(ctx, &bytes.Buffer{}, st, []byte("{")); err == nil {
		t.Error("expected a parse error")
	}
	payload := `{"email":"eve@example.com","user_name":"eve","address":"tz1eve","roles":[9]}`
	if err := addUserCmd(ctx, &bytes.Buffer{}, st, []byte(payload)); !errors.Is(err, store.ErrInvalidRoles) {
		t.Errorf("expected ErrInvalidRoles, got %v", err)
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs(" 3, 7,,12 ")
	if err != nil || len(ids) != 3 || ids[0] != 3 || ids[2] != 12 {
		t.Errorf("parseIDs = %v, %v", ids, err)
	}
	if ids, err := parseIDs(""); err != nil || ids != nil {
		t.Errorf("empty input should give no ids, got %v %v", ids, err)
	}
	if _, err := parseIDs("3,x"); err == nil {
		t.Error("expected error for a non-numeric id")
	}
}

func TestParseRoleAssignment(t *testing.T) {
	tests := []struct {
		in      string
		id      int
		roles   int
		wantErr bool
	}{
		{"5=admin,creator", 5, 2, false},
		{"5=1", 5, 1, false},
		{"5=", 5, 0, false},
		{"admin", 0, 0, true},
		{"0=admin", 0, 0, true},
		{"x=admin", 0, 0, true},
		{"5=owner", 0, 0, true},
	}
	for _, tt := range tests {
		id, roles, err := parseRoleAssignment(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRoleAssignment(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && (id != tt.id || len(roles) != tt.roles) {
			t.Errorf("parseRoleAssignment(%q) = %d, %v", tt.in, id, roles)
		}
	}
}
