package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/kanvas/pkg/model"
)

// Seed is the JSON document accepted by --seed.
type Seed struct {
	Categories []model.Category `json:"categories"`
	NFTs       []model.NFT      `json:"nfts"`
	Users      []model.NewUser  `json:"users"`
}

// LoadSeedFile reads and validates a seed document.
func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return &seed, nil
}

// Validate checks every row of the seed on its own; cross-row problems such
// as parent cycles are left to the category diagnostics.
func (s *Seed) Validate() error {
	for i := range s.Categories {
		if err := s.Categories[i].Validate(); err != nil {
			return err
		}
	}
	for i := range s.NFTs {
		if err := s.NFTs[i].Validate(); err != nil {
			return err
		}
	}
	for i := range s.Users {
		if !model.AllRolesValid(s.Users[i].Roles) {
			return fmt.Errorf("user %s: %w", s.Users[i].Email, ErrInvalidRoles)
		}
		if err := s.Users[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplySeed upserts the categories and NFTs of seed and creates its users, all
// in one transaction. NFTs without a creation time are stamped with now.
func (s *Store) ApplySeed(ctx context.Context, seed *Seed) error {
	now := time.Now().UTC()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range seed.Categories {
			var parent any
			if c.ParentID != nil {
				parent = *c.ParentID
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO nft_category (id, name, parent) VALUES (?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET name = excluded.name, parent = excluded.parent`,
				c.ID, c.Name, parent); err != nil {
				return fmt.Errorf("seed category %d: %w", c.ID, err)
			}
		}

		for _, n := range seed.NFTs {
			created := n.CreatedAt
			if created.IsZero() {
				created = now
			}
			var owner any
			if n.OwnerAddress != "" {
				owner = n.OwnerAddress
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO nft (id, name, description, price, category_id, owner_address, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					description = excluded.description,
					price = excluded.price,
					category_id = excluded.category_id,
					owner_address = excluded.owner_address,
					created_at = excluded.created_at`,
				n.ID, n.Name, n.Description, n.Price, n.CategoryID, owner, created.Unix()); err != nil {
				return fmt.Errorf("seed nft %d: %w", n.ID, err)
			}
		}

		for _, u := range seed.Users {
			if _, err := createUserTx(ctx, tx, u); err != nil {
				return fmt.Errorf("seed user %s: %w", u.Email, err)
			}
		}
		return nil
	})
}
