package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/vanderheijden86/kanvas/pkg/model"
)

// CreateUser inserts a user and its role links in one transaction and
// returns the stored user.
func (s *Store) CreateUser(ctx context.Context, u model.NewUser) (model.User, error) {
	if !model.AllRolesValid(u.Roles) {
		return model.User{}, ErrInvalidRoles
	}
	if err := u.Validate(); err != nil {
		return model.User{}, err
	}

	var id int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = createUserTx(ctx, tx, u)
		return err
	})
	if err != nil {
		log.Printf("failed to create new user (email=%s user_name=%s roles=%v): %v", u.Email, u.UserName, u.Roles, err)
		return model.User{}, fmt.Errorf("unable to create new user: %w", err)
	}

	return model.User{
		ID:       id,
		Email:    u.Email,
		UserName: u.UserName,
		Address:  u.Address,
		Roles:    sortedRoles(u.Roles),
	}, nil
}

func createUserTx(ctx context.Context, tx *sql.Tx, u model.NewUser) (int, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO kanvas_user (email, user_name, address) VALUES (?, ?, ?)`,
		u.Email, u.UserName, u.Address)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id64, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	id := int(id64)
	if err := insertRoles(ctx, tx, id, u.Roles); err != nil {
		return 0, err
	}
	return id, nil
}

func insertRoles(ctx context.Context, tx *sql.Tx, userID int, roles []model.Role) error {
	for _, r := range roles {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO mtm_kanvas_user_user_role (kanvas_user_id, user_role_id) VALUES (?, ?)`,
			userID, int(r)); err != nil {
			return fmt.Errorf("link role %d: %w", r, err)
		}
	}
	return nil
}

// FindUsers returns the enabled users matching f and the total number of
// matches ignoring paging.
func (s *Store) FindUsers(ctx context.Context, f model.UserFilter) ([]model.User, int, error) {
	if err := f.Normalize(); err != nil {
		return nil, 0, err
	}

	clauses := []string{"NOT u.disabled"}
	var args []any
	if len(f.IDs) > 0 {
		clauses = append(clauses, "u.id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if len(f.Addresses) > 0 {
		clauses = append(clauses, "u.address IN ("+placeholders(len(f.Addresses))+")")
		for _, a := range f.Addresses {
			args = append(args, a)
		}
	}
	if len(f.UserNames) > 0 {
		clauses = append(clauses, "u.user_name IN ("+placeholders(len(f.UserNames))+")")
		for _, n := range f.UserNames {
			args = append(args, n)
		}
	}
	if len(f.RoleIDs) > 0 {
		clauses = append(clauses, `EXISTS (
			SELECT 1 FROM mtm_kanvas_user_user_role m
			WHERE m.kanvas_user_id = u.id AND m.user_role_id IN (`+placeholders(len(f.RoleIDs))+`))`)
		for _, r := range f.RoleIDs {
			args = append(args, int(r))
		}
	}

	// OrderBy and OrderDirection are whitelisted by Normalize.
	query := `
SELECT
	u.id, u.email, u.user_name, u.address,
	COALESCE((SELECT GROUP_CONCAT(m.user_role_id) FROM mtm_kanvas_user_user_role m WHERE m.kanvas_user_id = u.id), ''),
	COUNT(1) OVER ()
FROM kanvas_user u
WHERE ` + strings.Join(clauses, " AND ") + `
ORDER BY u.` + f.OrderBy + ` ` + string(f.OrderDirection) + `
LIMIT ? OFFSET ?`
	args = append(args, f.PageSize, f.PageOffset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var (
		users []model.User
		total int
	)
	for rows.Next() {
		var (
			u     model.User
			roles string
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.UserName, &u.Address, &roles, &total); err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		u.Roles, err = parseRoles(roles)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// FindUser returns the enabled user with the given id.
func (s *Store) FindUser(ctx context.Context, id int) (model.User, error) {
	users, _, err := s.FindUsers(ctx, model.UserFilter{IDs: []int{id}})
	if err != nil {
		return model.User{}, err
	}
	if len(users) == 0 {
		return model.User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return users[0], nil
}

// FindUserByAddress returns the enabled user owning address; the profile
// page is keyed by it.
func (s *Store) FindUserByAddress(ctx context.Context, address string) (model.User, error) {
	users, _, err := s.FindUsers(ctx, model.UserFilter{Addresses: []string{address}})
	if err != nil {
		return model.User{}, err
	}
	if len(users) == 0 {
		return model.User{}, fmt.Errorf("user with address %s: %w", address, ErrNotFound)
	}
	return users[0], nil
}

// UpdateUserRoles replaces the roles of a user, removing and adding only the
// difference, in one transaction.
func (s *Store) UpdateUserRoles(ctx context.Context, id int, roles []model.Role) (model.User, error) {
	if !model.AllRolesValid(roles) {
		return model.User{}, ErrInvalidRoles
	}

	current, err := s.FindUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	want := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		want[r] = true
	}
	have := make(map[model.Role]bool, len(current.Roles))
	for _, r := range current.Roles {
		have[r] = true
	}

	var remove, add []model.Role
	for r := range have {
		if !want[r] {
			remove = append(remove, r)
		}
	}
	for r := range want {
		if !have[r] {
			add = append(add, r)
		}
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range remove {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM mtm_kanvas_user_user_role WHERE kanvas_user_id = ? AND user_role_id = ?`,
				id, int(r)); err != nil {
				return fmt.Errorf("unlink role %d: %w", r, err)
			}
		}
		return insertRoles(ctx, tx, id, add)
	})
	if err != nil {
		log.Printf("unable to update the user %d: %v", id, err)
		return model.User{}, fmt.Errorf("unable to update the user: %w", err)
	}

	current.Roles = sortedRoles(roles)
	return current, nil
}

// RemoveUser soft-deletes a user.
func (s *Store) RemoveUser(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE kanvas_user SET disabled = 1 WHERE id = ? AND NOT disabled`, id)
	if err != nil {
		return fmt.Errorf("disable user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

func parseRoles(s string) ([]model.Role, error) {
	roles := []model.Role{}
	if s == "" {
		return roles, nil
	}
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("parse role list %q: %w", s, err)
		}
		roles = append(roles, model.Role(v))
	}
	return sortedRoles(roles), nil
}

func sortedRoles(roles []model.Role) []model.Role {
	seen := make(map[model.Role]bool, len(roles))
	out := make([]model.Role, 0, len(roles))
	for _, r := range roles {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
