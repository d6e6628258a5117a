package repo

import (
	"context"
	"database/sql"

	"github.com/crucial707/blog/internal/models"
	"github.com/lib/pq"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TagRepo reads the tag table. Tag writes happen inside PostRepo transactions.
type TagRepo struct {
	DB *sql.DB
}

// NewTagRepo returns a new TagRepo.
func NewTagRepo(db *sql.DB) *TagRepo {
	return &TagRepo{DB: db}
}

// List returns every tag with the number of posts that use it, ordered by name.
// Orphaned tags are included with a zero count.
func (r *TagRepo) List(ctx context.Context) ([]models.Tag, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(pt.post_id)
		FROM tags t
		LEFT JOIN post_tags pt ON pt.tag_id = t.id
		GROUP BY t.id, t.name
		ORDER BY t.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.PostCount); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ensureTag returns the id of the tag called name, creating it when missing.
// The no-op update makes RETURNING yield the id on conflict too.
func ensureTag(ctx context.Context, q querier, name string) (int, error) {
	var id int
	err := q.QueryRowContext(ctx, `
		INSERT INTO tags (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, name).Scan(&id)
	return id, err
}

// linkTags associates postID with every distinct name in names.
func linkTags(ctx context.Context, q querier, postID int, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		tagID, err := ensureTag(ctx, q, name)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			postID, tagID,
		); err != nil {
			return err
		}
	}
	return nil
}

// tagsForPosts loads tag names for the given posts in a single query, keyed by post id.
func tagsForPosts(ctx context.Context, q querier, postIDs []int) (map[int][]string, error) {
	out := make(map[int][]string, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT pt.post_id, t.name
		FROM post_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1)
		ORDER BY pt.post_id, t.name
	`, pq.Array(postIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var postID int
		var name string
		if err := rows.Scan(&postID, &name); err != nil {
			return nil, err
		}
		out[postID] = append(out[postID], name)
	}
	return out, rows.Err()
}
