package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vanderheijden86/kanvas/pkg/model"
	"golang.org/x/sync/errgroup"
)

// Categories returns every category ordered by id.
func (s *Store) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, parent FROM nft_category ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var cats []model.Category
	for rows.Next() {
		var (
			c      model.Category
			parent sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.Name, &parent); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if parent.Valid {
			p := int(parent.Int64)
			c.ParentID = &p
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// listingOrder maps a sort to a fixed ORDER BY clause. Only these strings
// are ever interpolated into SQL.
var listingOrder = map[model.ListingSort]string{
	model.SortNewest:    "created_at DESC, id DESC",
	model.SortPriceAsc:  "price ASC, id ASC",
	model.SortPriceDesc: "price DESC, id ASC",
	model.SortName:      "name ASC, id ASC",
}

// FilterNFTs returns one page of NFTs matching q together with the total
// number of matches. The count and the page are queried concurrently.
func (s *Store) FilterNFTs(ctx context.Context, q model.ListingQuery) (model.ListingPage, error) {
	if err := q.Normalize(); err != nil {
		return model.ListingPage{}, err
	}

	where, args := listingWhere(q)
	page := model.ListingPage{Page: q.Page, PageSize: q.PageSize, NFTs: []model.NFT{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		row := s.db.QueryRowContext(gctx, `SELECT COUNT(*) FROM nft`+where, args...)
		if err := row.Scan(&page.Total); err != nil {
			return fmt.Errorf("count nfts: %w", err)
		}
		return nil
	})

	var nfts []model.NFT
	g.Go(func() error {
		query := `SELECT id, name, description, price, category_id, COALESCE(owner_address, ''), created_at FROM nft` +
			where + ` ORDER BY ` + listingOrder[q.Sort] + ` LIMIT ? OFFSET ?`
		pageArgs := append(append([]any{}, args...), q.PageSize, q.Offset())

		rows, err := s.db.QueryContext(gctx, query, pageArgs...)
		if err != nil {
			return fmt.Errorf("query nfts: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			n, err := scanNFT(rows)
			if err != nil {
				return err
			}
			nfts = append(nfts, n)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return model.ListingPage{}, err
	}
	if nfts != nil {
		page.NFTs = nfts
	}
	return page, nil
}

func listingWhere(q model.ListingQuery) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(q.CategoryIDs) > 0 {
		clauses = append(clauses, "category_id IN ("+placeholders(len(q.CategoryIDs))+")")
		for _, id := range q.CategoryIDs {
			args = append(args, id)
		}
	}
	if q.OwnerAddress != "" {
		clauses = append(clauses, "owner_address = ?")
		args = append(args, q.OwnerAddress)
	}
	if q.MinPrice != nil {
		clauses = append(clauses, "price >= ?")
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		clauses = append(clauses, "price <= ?")
		args = append(args, *q.MaxPrice)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNFT(r rowScanner) (model.NFT, error) {
	var (
		n       model.NFT
		created int64
	)
	if err := r.Scan(&n.ID, &n.Name, &n.Description, &n.Price, &n.CategoryID, &n.OwnerAddress, &created); err != nil {
		return model.NFT{}, fmt.Errorf("scan nft: %w", err)
	}
	n.CreatedAt = time.Unix(created, 0).UTC()
	return n, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
