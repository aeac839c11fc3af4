package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/kanvas/pkg/model"
)

// NewUserForm builds the interactive form for creating an admin user. The
// answers are written into u when the form completes.
func NewUserForm(u *model.NewUser) *huh.Form {
	options := make([]huh.Option[model.Role], 0, len(model.AllRoles()))
	for _, r := range model.AllRoles() {
		options = append(options, huh.NewOption(r.String(), r))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&u.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("User name").
				Value(&u.UserName).
				Validate(required("user name")),
			huh.NewInput().
				Title("Wallet address").
				Value(&u.Address).
				Validate(required("address")),
			huh.NewMultiSelect[model.Role]().
				Title("Roles").
				Options(options...).
				Value(&u.Roles).
				Validate(func(roles []model.Role) error {
					if len(roles) == 0 {
						return errors.New("pick at least one role")
					}
					return nil
				}),
		),
	)
}

func validateEmail(s string) error {
	if !strings.Contains(s, "@") {
		return errors.New("not an email address")
	}
	return nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}
