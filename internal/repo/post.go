package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/crucial707/blog/internal/models"
)

// ========================
// REPOSITORY STRUCT
// ========================

type PostRepo struct {
	DB *sql.DB
}

func NewPostRepo(db *sql.DB) *PostRepo {
	return &PostRepo{DB: db}
}

// PostFilter narrows List. Zero value lists every post.
type PostFilter struct {
	// Query matches title, content or owner username as a case-insensitive substring.
	Query string
	// Tag matches posts linked to a tag with exactly this name.
	Tag string
}

const postColumns = `p.id, p.title, p.content, COALESCE(p.image, ''), p.user_id, u.username, p.created_at`

// ========================
// CREATE POST
// ========================

// Create inserts the post and links its tags in one transaction, then
// returns the stored post fully materialized.
func (r *PostRepo) Create(ctx context.Context, post *models.Post, tags []string) (*models.Post, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO posts (title, content, image, user_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		post.Title, post.Content, nullString(post.Image), post.OwnerID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}

	if err := linkTags(ctx, tx, id, tags); err != nil {
		return nil, fmt.Errorf("link tags: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// ========================
// GET POST BY ID
// ========================

func (r *PostRepo) GetByID(ctx context.Context, id int) (*models.Post, error) {
	post := &models.Post{}
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+postColumns+`
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.id = $1`,
		id,
	).Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.Image,
		&post.OwnerID,
		&post.OwnerUsername,
		&post.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	tags, err := tagsForPosts(ctx, r.DB, []int{post.ID})
	if err != nil {
		return nil, err
	}
	post.Tags = tagsOrEmpty(tags[post.ID])

	return post, nil
}

// ========================
// UPDATE POST
// ========================

// Update overwrites title, content and image and replaces the whole tag set.
func (r *PostRepo) Update(ctx context.Context, post *models.Post, tags []string) (*models.Post, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE posts
		 SET title = $1, content = $2, image = $3
		 WHERE id = $4`,
		post.Title, post.Content, nullString(post.Image), post.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if rows == 0 {
		return nil, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = $1`, post.ID); err != nil {
		return nil, fmt.Errorf("clear tags: %w", err)
	}
	if err := linkTags(ctx, tx, post.ID, tags); err != nil {
		return nil, fmt.Errorf("link tags: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, post.ID)
}

// ========================
// DELETE POST
// ========================

// Delete removes the post and its tag associations. Tags themselves are kept.
func (r *PostRepo) Delete(ctx context.Context, id int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = $1`, id); err != nil {
		return fmt.Errorf("delete post tags: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// ========================
// LIST / SEARCH POSTS
// ========================

// List returns posts matching filter, newest first. Query and Tag combine with AND.
func (r *PostRepo) List(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	var conds []string
	var args []interface{}

	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(p.title ILIKE $%d OR p.content ILIKE $%d OR u.username ILIKE $%d)", n, n, n))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM post_tags pt JOIN tags t ON t.id = pt.tag_id WHERE pt.post_id = p.id AND t.name = $%d)",
			len(args)))
	}

	query := `SELECT ` + postColumns + ` FROM posts p JOIN users u ON u.id = p.user_id`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	var ids []int
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Content, &p.Image, &p.OwnerID, &p.OwnerUsername, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags, err := tagsForPosts(ctx, r.DB, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Tags = tagsOrEmpty(tags[posts[i].ID])
	}

	return posts, nil
}

// ========================
// REFERENCED IMAGES
// ========================

// ImageNames returns every image filename currently referenced by a post.
func (r *PostRepo) ImageNames(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT image FROM posts WHERE image IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
