package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes is the body limit for JSON and plain form routes (1 MiB).
const DefaultMaxBodyBytes = 1 << 20

// UploadBodyBytes is the body limit for routes accepting an image of at most
// maxImageBytes: the image plus 1 MiB for the other multipart fields.
func UploadBodyBytes(maxImageBytes int64) int64 {
	return maxImageBytes + DefaultMaxBodyBytes
}

// MaxBytes limits the request body size. Reads past the limit fail with
// *http.MaxBytesError, which handlers turn into a validation error.
func MaxBytes(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
