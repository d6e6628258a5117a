package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/crucial707/blog/internal/models"
	"github.com/crucial707/blog/internal/repo"
	"github.com/crucial707/blog/internal/upload"
)

// memUsers is an in-memory UserStore enforcing unique username and email.
type memUsers struct {
	users []models.User
}

func (m *memUsers) Create(ctx context.Context, username, email, hash string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return nil, repo.ErrConflict
		}
	}
	u := models.User{ID: len(m.users) + 1, Username: username, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	m.users = append(m.users, u)
	return &u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memUsers) List(ctx context.Context) ([]models.User, error) {
	return append([]models.User(nil), m.users...), nil
}

func (m *memUsers) countEmail(email string) int {
	n := 0
	for _, u := range m.users {
		if u.Email == email {
			n++
		}
	}
	return n
}

// memPosts is an in-memory PostStore with set-like tag links.
type memPosts struct {
	users  *memUsers
	nextID int
	posts  map[int]models.Post
	links  map[int]map[string]bool
	failOn string
}

func newMemPosts(users *memUsers) *memPosts {
	return &memPosts{users: users, posts: map[int]models.Post{}, links: map[int]map[string]bool{}}
}

func (m *memPosts) materialize(p models.Post) *models.Post {
	for _, u := range m.users.users {
		if u.ID == p.OwnerID {
			p.OwnerUsername = u.Username
		}
	}
	p.Tags = []string{}
	for name := range m.links[p.ID] {
		p.Tags = append(p.Tags, name)
	}
	sort.Strings(p.Tags)
	return &p
}

func (m *memPosts) link(id int, tags []string) {
	m.links[id] = map[string]bool{}
	for _, t := range tags {
		m.links[id][t] = true
	}
}

func (m *memPosts) Create(ctx context.Context, post *models.Post, tags []string) (*models.Post, error) {
	if m.failOn == "create" {
		return nil, io.ErrUnexpectedEOF
	}
	m.nextID++
	p := *post
	p.ID = m.nextID
	p.CreatedAt = time.Now().Add(time.Duration(m.nextID) * time.Second)
	m.posts[p.ID] = p
	m.link(p.ID, tags)
	return m.materialize(p), nil
}

func (m *memPosts) GetByID(ctx context.Context, id int) (*models.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return m.materialize(p), nil
}

func (m *memPosts) Update(ctx context.Context, post *models.Post, tags []string) (*models.Post, error) {
	if _, ok := m.posts[post.ID]; !ok {
		return nil, repo.ErrNotFound
	}
	p := *post
	p.Tags = nil
	m.posts[p.ID] = p
	m.link(p.ID, tags)
	return m.materialize(p), nil
}

func (m *memPosts) Delete(ctx context.Context, id int) error {
	if _, ok := m.posts[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.posts, id)
	delete(m.links, id)
	return nil
}

func (m *memPosts) List(ctx context.Context, f repo.PostFilter) ([]models.Post, error) {
	out := []models.Post{}
	q := strings.ToLower(f.Query)
	for _, p := range m.posts {
		mp := m.materialize(p)
		if q != "" && !strings.Contains(strings.ToLower(mp.Title), q) &&
			!strings.Contains(strings.ToLower(mp.Content), q) &&
			!strings.Contains(strings.ToLower(mp.OwnerUsername), q) {
			continue
		}
		if f.Tag != "" && !m.links[p.ID][f.Tag] {
			continue
		}
		out = append(out, *mp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memPosts) tagNames() []string {
	seen := map[string]bool{}
	for _, l := range m.links {
		for name := range l {
			seen[name] = true
		}
	}
	var names []string
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type memTags struct{ posts *memPosts }

func (m memTags) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	for i, name := range m.posts.tagNames() {
		tags = append(tags, models.Tag{ID: i + 1, Name: name})
	}
	return tags, nil
}

// memImages wraps a real upload.Store in a temp dir and records removals.
type memImages struct {
	*upload.Store
	removed []string
}

func (m *memImages) Remove(name string) {
	if name != "" {
		m.removed = append(m.removed, name)
	}
	m.Store.Remove(name)
}
