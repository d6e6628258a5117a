package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/crucial707/blog/internal/forms"
	"github.com/crucial707/blog/internal/metrics"
	"github.com/crucial707/blog/internal/models"
	"github.com/crucial707/blog/internal/repo"
	"github.com/crucial707/blog/internal/upload"
)

// PostStore is the post persistence used by PostService.
type PostStore interface {
	Create(ctx context.Context, post *models.Post, tags []string) (*models.Post, error)
	GetByID(ctx context.Context, id int) (*models.Post, error)
	Update(ctx context.Context, post *models.Post, tags []string) (*models.Post, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context, filter repo.PostFilter) ([]models.Post, error)
}

// TagLister lists tags with usage counts.
type TagLister interface {
	List(ctx context.Context) ([]models.Tag, error)
}

// ImageStore stores uploaded images. Remove is best-effort and never fails.
type ImageStore interface {
	Validate(filename string, size int64) error
	Save(img *upload.Image) (string, error)
	Remove(name string)
	AllowedExtensions() []string
	Limit() int64
}

// PostService implements creating, editing, deleting, viewing and listing posts.
type PostService struct {
	Posts  PostStore
	Tags   TagLister
	Images ImageStore
}

func NewPostService(posts PostStore, tags TagLister, images ImageStore) *PostService {
	return &PostService{Posts: posts, Tags: tags, Images: images}
}

// MaxTagLen is the longest tag name the tags table stores, in characters.
const MaxTagLen = 50

// ParseTags splits a comma-separated tag list, trims each name, drops empty
// names and keeps only the first occurrence of a repeated name.
func ParseTags(csv string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(csv, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tags = append(tags, name)
	}
	return tags
}

// validate checks the form and, when present, the image. Nothing is written.
func (s *PostService) validate(f *forms.Post, img *upload.Image) error {
	f.Normalize()
	fields := forms.Validate(*f)
	if _, ok := fields["tags"]; !ok {
		for _, tag := range ParseTags(f.Tags) {
			if utf8.RuneCountInString(tag) > MaxTagLen {
				fields["tags"] = fmt.Sprintf("each tag must be at most %d characters", MaxTagLen)
				break
			}
		}
	}
	if img != nil {
		if err := s.Images.Validate(img.Filename, img.Size); err != nil {
			fields["image"] = s.imageMessage(err)
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (s *PostService) imageMessage(err error) string {
	switch {
	case errors.Is(err, upload.ErrDisallowedType):
		return "invalid file type, allowed types: " + strings.Join(s.Images.AllowedExtensions(), ", ")
	case errors.Is(err, upload.ErrTooLarge):
		return fmt.Sprintf("file too large, max %d MB", s.Images.Limit()/(1024*1024))
	default:
		return err.Error()
	}
}

// saveImage stores img and maps upload rejections to *ValidationError.
func (s *PostService) saveImage(img *upload.Image) (string, error) {
	name, err := s.Images.Save(img)
	if errors.Is(err, upload.ErrDisallowedType) || errors.Is(err, upload.ErrTooLarge) {
		return "", &ValidationError{Fields: map[string]string{"image": s.imageMessage(err)}}
	}
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return name, nil
}

// Create stores a new post owned by actor. Invalid input or image stores nothing.
func (s *PostService) Create(ctx context.Context, actor Actor, f forms.Post, img *upload.Image) (*models.Post, error) {
	if !actor.Authenticated() {
		return nil, ErrAuthRequired
	}
	if err := s.validate(&f, img); err != nil {
		return nil, err
	}

	var image string
	if img != nil {
		name, err := s.saveImage(img)
		if err != nil {
			return nil, err
		}
		image = name
	}

	post, err := s.Posts.Create(ctx, &models.Post{
		Title:   f.Title,
		Content: f.Content,
		Image:   image,
		OwnerID: actor.UserID,
	}, ParseTags(f.Tags))
	if err != nil {
		s.Images.Remove(image)
		return nil, fmt.Errorf("create post: %w", err)
	}

	metrics.IncPostsCreated()
	slog.Info("post created", "post_id", post.ID, "user_id", actor.UserID, "tags", len(post.Tags))
	return post, nil
}

// authorize loads post id and checks that actor owns it. Existence is
// checked before ownership.
func (s *PostService) authorize(ctx context.Context, actor Actor, id int) (*models.Post, error) {
	if !actor.Authenticated() {
		return nil, ErrAuthRequired
	}
	post, err := s.Posts.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load post: %w", err)
	}
	if !post.OwnedBy(actor.UserID) {
		return nil, ErrForbidden
	}
	return post, nil
}

// ForEdit returns the post for the edit form, enforcing the same rules as Edit.
func (s *PostService) ForEdit(ctx context.Context, actor Actor, id int) (*models.Post, error) {
	return s.authorize(ctx, actor, id)
}

// Edit updates title, content and optionally the image of a post owned by
// actor, and replaces its whole tag set. A new image is validated before
// anything changes; the previous image is removed before the new one is saved.
func (s *PostService) Edit(ctx context.Context, actor Actor, id int, f forms.Post, img *upload.Image) (*models.Post, error) {
	post, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(&f, img); err != nil {
		return nil, err
	}

	newImage := ""
	if img != nil {
		s.Images.Remove(post.Image)
		name, err := s.saveImage(img)
		if err != nil {
			return nil, err
		}
		newImage = name
		post.Image = name
	}
	post.Title = f.Title
	post.Content = f.Content

	updated, err := s.Posts.Update(ctx, post, ParseTags(f.Tags))
	if err != nil {
		s.Images.Remove(newImage)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}

	slog.Info("post updated", "post_id", id, "user_id", actor.UserID, "image_replaced", img != nil)
	return updated, nil
}

// Delete removes a post owned by actor together with its tag links and image.
func (s *PostService) Delete(ctx context.Context, actor Actor, id int) error {
	post, err := s.authorize(ctx, actor, id)
	if err != nil {
		return err
	}

	s.Images.Remove(post.Image)

	if err := s.Posts.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete post: %w", err)
	}

	metrics.IncPostsDeleted()
	slog.Info("post deleted", "post_id", id, "user_id", actor.UserID)
	return nil
}

// View returns any post by id. No session is needed.
func (s *PostService) View(ctx context.Context, id int) (*models.Post, error) {
	post, err := s.Posts.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load post: %w", err)
	}
	return post, nil
}

// List returns posts newest first, filtered by a free-text query (title,
// content or author, case-insensitive) and an exact tag name. Empty filters
// are ignored; both together must match.
func (s *PostService) List(ctx context.Context, query, tag string) ([]models.Post, error) {
	return s.Posts.List(ctx, repo.PostFilter{
		Query: strings.TrimSpace(query),
		Tag:   strings.TrimSpace(tag),
	})
}

// AllTags returns every tag with its post count.
func (s *PostService) AllTags(ctx context.Context) ([]models.Tag, error) {
	return s.Tags.List(ctx)
}
