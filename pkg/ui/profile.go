package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vanderheijden86/kanvas/pkg/model"
	"github.com/vanderheijden86/kanvas/pkg/store"
)

// ProfileModel is the storefront page of one wallet address: the owning
// user, when known, and the NFTs held by the address.
type ProfileModel struct {
	address  string
	user     *model.User
	notFound bool
	err      error
	listings ListingsModel
	theme    Theme
}

// NewProfileModel creates the page for address.
func NewProfileModel(theme Theme, address string, pageSize int) ProfileModel {
	return ProfileModel{
		address:  address,
		listings: NewListingsModel(theme, pageSize),
		theme:    theme,
	}
}

// Address returns the wallet address on display.
func (p *ProfileModel) Address() string {
	return p.address
}

// Query returns the listing query for page of the profile.
func (p *ProfileModel) Query(page, pageSize int, sort model.ListingSort) model.ListingQuery {
	return model.ListingQuery{
		OwnerAddress: p.address,
		Sort:         sort,
		Page:         page,
		PageSize:     pageSize,
	}
}

// SetUser records the user owning the address.
func (p *ProfileModel) SetUser(u model.User) {
	p.user = &u
	p.notFound = false
	p.err = nil
}

// SetUserError records a failed lookup. A missing user is not an error:
// unregistered addresses still hold NFTs.
func (p *ProfileModel) SetUserError(err error) {
	if errors.Is(err, store.ErrNotFound) {
		p.notFound = true
		return
	}
	p.err = err
}

// NotFound reports whether no user owns the address.
func (p *ProfileModel) NotFound() bool {
	return p.notFound
}

// Listings exposes the NFT pane of the profile.
func (p *ProfileModel) Listings() *ListingsModel {
	return &p.listings
}

// SetSize updates the page dimensions.
func (p *ProfileModel) SetSize(width, height int) {
	p.listings.SetSize(width, height-3)
}

// View renders the header and the address's NFTs.
func (p *ProfileModel) View() string {
	t := p.theme
	r := t.Renderer
	title := r.NewStyle().Foreground(t.Primary).Bold(true)
	muted := r.NewStyle().Foreground(t.Muted)

	var header string
	switch {
	case p.err != nil:
		header = r.NewStyle().Foreground(t.Danger).Render("Error: " + p.err.Error())
	case p.notFound:
		header = title.Render(p.address) + "  " + muted.Render("profile not found")
	case p.user != nil:
		header = title.Render("@"+p.user.UserName) + "  " + muted.Render(p.address)
		if roles := roleNames(p.user.Roles); roles != "" {
			header += "  " + r.NewStyle().Foreground(t.Secondary).Render(roles)
		}
	default:
		header = title.Render(p.address) + "  " + muted.Render("loading profile…")
	}

	return strings.Join([]string{header, "", p.listings.View()}, "\n")
}

func roleNames(roles []model.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.String()
	}
	return strings.Join(names, ", ")
}

// profileTitle is the status bar label of the page.
func profileTitle(address string) string {
	return fmt.Sprintf("Profile %s", address)
}
