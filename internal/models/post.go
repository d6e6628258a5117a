package models

import "time"

// Post is always returned fully materialized: owner username and tags are
// loaded by the repository in the same call that loads the row.
type Post struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Image         string    `json:"image,omitempty"` // stored filename, empty when the post has no image
	OwnerID       int       `json:"owner_id"`
	OwnerUsername string    `json:"owner_username"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"created_at"`
}

// OwnedBy reports whether userID owns the post.
func (p *Post) OwnedBy(userID int) bool {
	return p.OwnerID == userID
}
