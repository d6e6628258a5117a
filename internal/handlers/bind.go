package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/crucial707/blog/internal/forms"
	"github.com/crucial707/blog/internal/upload"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a multipart body is kept in memory before
// parts spill to temporary files.
const multipartMemory = 8 << 20

var errBadBody = errors.New("malformed request body")

// parseBody reads a JSON, urlencoded or multipart body. JSON is decoded into
// dst; for the form encodings fill is called with the submitted values.
func parseBody(r *http.Request, dst interface{}, fill func(url.Values)) error {
	if isJSONBody(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return bodyError(err)
		}
		return nil
	}

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return bodyError(err)
	}
	fill(r.PostForm)
	return nil
}

func bodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return err
	}
	return fmt.Errorf("%w: %v", errBadBody, err)
}

func bindRegistration(r *http.Request) (forms.Registration, error) {
	var f forms.Registration
	err := parseBody(r, &f, func(v url.Values) {
		f.Username = v.Get("username")
		f.Email = v.Get("email")
		f.Password = v.Get("password")
		f.ConfirmPassword = v.Get("confirm_password")
	})
	return f, err
}

func bindLogin(r *http.Request) (forms.Login, error) {
	var f forms.Login
	err := parseBody(r, &f, func(v url.Values) {
		f.Email = v.Get("email")
		f.Password = v.Get("password")
		f.Remember = checkbox(v.Get("remember"))
	})
	return f, err
}

func bindPost(r *http.Request) (forms.Post, error) {
	var f forms.Post
	err := parseBody(r, &f, func(v url.Values) {
		f.Title = v.Get("title")
		f.Content = v.Get("content")
		f.Tags = v.Get("tags")
	})
	return f, err
}

// checkbox interprets an HTML checkbox value.
func checkbox(v string) bool {
	switch strings.ToLower(v) {
	case "on", "yes", "y":
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

// formImage returns the uploaded "image" part, or nil when none was sent.
// The returned func releases the file and any temporary multipart storage.
func formImage(r *http.Request) (*upload.Image, func(), error) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	cleanup := func() { r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, cleanup, nil
	}
	if err != nil {
		return nil, cleanup, fmt.Errorf("%w: %v", errBadBody, err)
	}
	if header.Filename == "" {
		file.Close()
		return nil, cleanup, nil
	}
	return &upload.Image{Filename: header.Filename, Size: header.Size, Content: file}, func() {
		file.Close()
		cleanup()
	}, nil
}

// postID parses the {id} route parameter.
func postID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}
