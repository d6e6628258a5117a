package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/crucial707/blog/internal/models"
	"github.com/crucial707/blog/internal/service"
)

// ==========================
// Post Handler
// ==========================
type PostHandler struct {
	Posts *service.PostService
	// MaxImageBytes is reported when an upload exceeds the request body limit.
	MaxImageBytes int64
}

// ==========================
// Home (list and search)
// ==========================
func (h *PostHandler) Home(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	tag := r.URL.Query().Get("tag")

	posts, err := h.Posts.List(r.Context(), query, tag)
	if err != nil {
		respondError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"posts":   posts,
		"query":   query,
		"tag":     tag,
		"flashes": takeFlashes(w, r),
	})
}

// ==========================
// New post form (session required)
// ==========================
func (h *PostHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).Authenticated() {
		respondError(w, r, service.ErrAuthRequired, nil)
		return
	}
	writeJSON(w, http.StatusOK, formView{
		Form:    "post",
		Legend:  "New Post",
		Fields:  []string{"title", "content", "tags", "image"},
		Flashes: takeFlashes(w, r),
	})
}

// ==========================
// Create post
// ==========================
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if !actor.Authenticated() {
		respondError(w, r, service.ErrAuthRequired, nil)
		return
	}

	f, err := bindPost(r)
	if err != nil {
		respondError(w, r, h.uploadError(err), nil)
		return
	}
	img, release, err := formImage(r)
	if err != nil {
		respondError(w, r, err, f.Input())
		return
	}
	defer release()

	post, err := h.Posts.Create(r.Context(), actor, f, img)
	if err != nil {
		respondError(w, r, err, f.Input())
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, post)
		return
	}
	addFlash(w, r, flashSuccess, "Post created successfully!")
	redirect(w, r, "/")
}

// ==========================
// View post
// ==========================
func (h *PostHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		JSONError(w, "invalid post id", http.StatusBadRequest)
		return
	}

	post, err := h.Posts.View(r.Context(), id)
	if err != nil {
		respondError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"post":    post,
		"flashes": takeFlashes(w, r),
	})
}

// ==========================
// Edit form (owner only, prefilled)
// ==========================
func (h *PostHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		JSONError(w, "invalid post id", http.StatusBadRequest)
		return
	}

	post, err := h.Posts.ForEdit(r.Context(), actorFrom(r), id)
	if err != nil {
		respondError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, formView{
		Form:    "post",
		Legend:  "Update Post",
		Fields:  []string{"title", "content", "tags", "image"},
		Input:   editInput(post),
		Flashes: takeFlashes(w, r),
	})
}

func editInput(p *models.Post) map[string]string {
	return map[string]string{
		"title":   p.Title,
		"content": p.Content,
		"tags":    strings.Join(p.Tags, ", "),
	}
}

// ==========================
// Update post
// ==========================
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		JSONError(w, "invalid post id", http.StatusBadRequest)
		return
	}
	actor := actorFrom(r)
	if !actor.Authenticated() {
		respondError(w, r, service.ErrAuthRequired, nil)
		return
	}

	f, err := bindPost(r)
	if err != nil {
		respondError(w, r, h.uploadError(err), nil)
		return
	}
	img, release, err := formImage(r)
	if err != nil {
		respondError(w, r, err, f.Input())
		return
	}
	defer release()

	post, err := h.Posts.Edit(r.Context(), actor, id, f, img)
	if err != nil {
		respondError(w, r, err, f.Input())
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, post)
		return
	}
	addFlash(w, r, flashSuccess, "Post updated successfully!")
	redirect(w, r, "/post/"+strconv.Itoa(post.ID))
}

// ==========================
// Delete post (always JSON)
// ==========================
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		deleteResult(w, http.StatusBadRequest, false, "Invalid post id")
		return
	}

	err := h.Posts.Delete(r.Context(), actorFrom(r), id)
	switch {
	case err == nil:
		deleteResult(w, http.StatusOK, true, "Post deleted successfully")
	case errors.Is(err, service.ErrAuthRequired):
		deleteResult(w, http.StatusForbidden, false, msgLoginFirst)
	case errors.Is(err, service.ErrForbidden):
		deleteResult(w, http.StatusForbidden, false, "You can only delete your own posts")
	case errors.Is(err, service.ErrNotFound):
		deleteResult(w, http.StatusNotFound, false, "Post not found")
	default:
		respondError(w, r, err, nil)
	}
}

func deleteResult(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": success,
		"message": message,
	})
}

// ==========================
// Tags with post counts
// ==========================
func (h *PostHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Posts.AllTags(r.Context())
	if err != nil {
		respondError(w, r, err, nil)
		return
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// uploadError reports a body over the upload limit as an image validation failure.
func (h *PostHandler) uploadError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return &service.ValidationError{Fields: map[string]string{
			"image": fmt.Sprintf("file too large, max %d MB", h.MaxImageBytes/(1024*1024)),
		}}
	}
	return err
}
