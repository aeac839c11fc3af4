package model

import (
	"fmt"
	"strings"
	"time"
)

// Category is one node of the NFT category hierarchy as stored. A nil
// ParentID marks a top-level category.
type Category struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	ParentID *int   `json:"parent_id,omitempty"`
}

// Validate checks if the category data is logically valid
func (c *Category) Validate() error {
	if c.ID <= 0 {
		return fmt.Errorf("category id must be positive, got %d", c.ID)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("category %d: name cannot be empty", c.ID)
	}
	if c.ParentID != nil && *c.ParentID == c.ID {
		return fmt.Errorf("category %d cannot be its own parent", c.ID)
	}
	return nil
}

// NFT is a listed token.
type NFT struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Price        float64   `json:"price"`
	CategoryID   int       `json:"category_id"`
	OwnerAddress string    `json:"owner_address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks if the NFT data is logically valid
func (n *NFT) Validate() error {
	if n.ID <= 0 {
		return fmt.Errorf("nft id must be positive, got %d", n.ID)
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("nft %d: name cannot be empty", n.ID)
	}
	if n.Price < 0 {
		return fmt.Errorf("nft %d: price (%v) cannot be negative", n.ID, n.Price)
	}
	if n.CategoryID <= 0 {
		return fmt.Errorf("nft %d: category id is required", n.ID)
	}
	return nil
}

// Role is a user role in the admin backend.
type Role int

const (
	RoleAdmin     Role = 1
	RoleModerator Role = 2
	RoleCreator   Role = 3
	RoleCollector Role = 4
)

// AllRoles returns every known role in id order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleModerator, RoleCreator, RoleCollector}
}

// IsValid returns true if the role is a recognized value
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleCreator, RoleCollector:
		return true
	}
	return false
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleModerator:
		return "moderator"
	case RoleCreator:
		return "creator"
	case RoleCollector:
		return "collector"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// AllRolesValid reports whether every role in roles is known.
func AllRolesValid(roles []Role) bool {
	for _, r := range roles {
		if !r.IsValid() {
			return false
		}
	}
	return true
}

// ParseRoles parses a comma separated list of role names or ids, e.g.
// "admin,3". Unknown entries are an error.
func ParseRoles(s string) ([]Role, error) {
	var roles []Role
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		role, ok := roleByName(part)
		if !ok {
			var id int
			if _, err := fmt.Sscanf(part, "%d", &id); err != nil || fmt.Sprint(id) != part {
				return nil, fmt.Errorf("unknown role %q", part)
			}
			role = Role(id)
			if !role.IsValid() {
				return nil, fmt.Errorf("unknown role id %d", id)
			}
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func roleByName(name string) (Role, bool) {
	for _, r := range AllRoles() {
		if strings.EqualFold(r.String(), name) {
			return r, true
		}
	}
	return 0, false
}

// User is an account of the admin backend. Disabled users are soft-deleted.
type User struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	UserName string `json:"user_name"`
	Address  string `json:"address"`
	Roles    []Role `json:"roles"`
	Disabled bool   `json:"disabled,omitempty"`
}

// NewUser is the payload for creating a user.
type NewUser struct {
	Email    string `json:"email"`
	UserName string `json:"user_name"`
	Address  string `json:"address"`
	Roles    []Role `json:"roles"`
}

// Validate checks the payload before it reaches the store
func (u *NewUser) Validate() error {
	if !strings.Contains(u.Email, "@") {
		return fmt.Errorf("invalid email %q", u.Email)
	}
	if strings.TrimSpace(u.UserName) == "" {
		return fmt.Errorf("user name cannot be empty")
	}
	if strings.TrimSpace(u.Address) == "" {
		return fmt.Errorf("address cannot be empty")
	}
	return nil
}

// SortDirection is ASC or DESC.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// IsValid returns true if the direction is a recognized value
func (d SortDirection) IsValid() bool {
	return d == SortAsc || d == SortDesc
}

// UserFilter selects users for the admin listing. Nil slices mean "no filter".
type UserFilter struct {
	IDs            []int         `json:"id,omitempty"`
	Addresses      []string      `json:"address,omitempty"`
	UserNames      []string      `json:"user_name,omitempty"`
	RoleIDs        []Role        `json:"role_ids,omitempty"`
	OrderBy        string        `json:"order_by,omitempty"`
	OrderDirection SortDirection `json:"order_direction,omitempty"`
	PageOffset     int           `json:"page_offset,omitempty"`
	PageSize       int           `json:"page_size,omitempty"`
}

// UserOrderColumns lists the columns a user listing may be ordered by.
var UserOrderColumns = []string{"id", "email", "user_name", "address"}

// Normalize applies defaults and validates ordering and paging.
func (f *UserFilter) Normalize() error {
	if f.OrderBy == "" {
		f.OrderBy = "id"
	}
	known := false
	for _, c := range UserOrderColumns {
		if c == f.OrderBy {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("cannot order users by %q", f.OrderBy)
	}
	if f.OrderDirection == "" {
		f.OrderDirection = SortAsc
	}
	f.OrderDirection = SortDirection(strings.ToUpper(string(f.OrderDirection)))
	if !f.OrderDirection.IsValid() {
		return fmt.Errorf("invalid order direction %q", f.OrderDirection)
	}
	if f.PageOffset < 0 {
		return fmt.Errorf("page offset (%d) cannot be negative", f.PageOffset)
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	return nil
}

// ListingSort orders NFT listings.
type ListingSort string

const (
	SortNewest    ListingSort = "newest"
	SortPriceAsc  ListingSort = "price_asc"
	SortPriceDesc ListingSort = "price_desc"
	SortName      ListingSort = "name"
)

// ListingSorts returns every listing sort in display order.
func ListingSorts() []ListingSort {
	return []ListingSort{SortNewest, SortPriceAsc, SortPriceDesc, SortName}
}

// IsValid returns true if the sort is a recognized value
func (s ListingSort) IsValid() bool {
	switch s {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortName:
		return true
	}
	return false
}

// DefaultPageSize is the number of NFTs per listing page.
const DefaultPageSize = 12

// ListingQuery filters and pages NFT listings. CategoryIDs are leaf category
// ids; an empty slice means every category.
type ListingQuery struct {
	CategoryIDs  []int       `json:"categories,omitempty"`
	OwnerAddress string      `json:"address,omitempty"`
	MinPrice     *float64    `json:"min_price,omitempty"`
	MaxPrice     *float64    `json:"max_price,omitempty"`
	Sort         ListingSort `json:"sort,omitempty"`
	Page         int         `json:"page"`
	PageSize     int         `json:"page_size"`
}

// Normalize applies defaults and validates the query.
func (q *ListingQuery) Normalize() error {
	if q.Sort == "" {
		q.Sort = SortNewest
	}
	if !q.Sort.IsValid() {
		return fmt.Errorf("invalid listing sort %q", q.Sort)
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MaxPrice < *q.MinPrice {
		return fmt.Errorf("max price (%v) cannot be below min price (%v)", *q.MaxPrice, *q.MinPrice)
	}
	return nil
}

// Offset returns the row offset of the query's page.
func (q ListingQuery) Offset() int {
	if q.Page <= 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// ListingPage is one page of NFT listings.
type ListingPage struct {
	NFTs     []NFT `json:"nfts"`
	Total    int   `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// PageCount returns the number of pages needed for Total items.
func (p ListingPage) PageCount() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
