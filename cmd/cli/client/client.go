package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/crucial707/blog/cmd/cli/config"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	var out struct {
		Error   string            `json:"error"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	}
	if json.Unmarshal([]byte(e.Body), &out) == nil {
		msg := out.Error
		if msg == "" {
			msg = out.Message
		}
		if len(out.Fields) > 0 {
			return fmt.Sprintf("status %d: %s %v", e.Status, msg, out.Fields)
		}
		if msg != "" {
			return fmt.Sprintf("status %d: %s", e.Status, msg)
		}
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Body)
}

// JSON sends payload (when non-nil) as JSON and decodes the answer into out.
// The stored token is sent as a Bearer token when present.
func JSON(method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	return do(method, path, body, "application/json", out)
}

// Multipart sends fields and, when imagePath is set, the file as "image".
func Multipart(method, path string, fields map[string]string, imagePath string, out interface{}) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return err
		}
		defer f.Close()
		fw, err := mw.CreateFormFile("image", filepath.Base(imagePath))
		if err != nil {
			return err
		}
		if _, err := io.Copy(fw, f); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	return do(method, path, &buf, mw.FormDataContentType(), out)
}

func do(method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequest(method, config.APIURL()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if token := config.LoadToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{Status: resp.StatusCode, Body: string(data)}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return err
		}
	}
	return nil
}
