package models

// Tag is a unique, case-sensitive label shared by posts.
type Tag struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	PostCount int    `json:"post_count"`
}
