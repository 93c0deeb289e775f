package feed

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"
)

// CacheControl is sent with every feed response so intermediaries can keep
// serving a cached copy while revalidating in the background.
const CacheControl = "public, max-age=600, s-maxage=3600, stale-while-revalidate=7200"

// Validation carries the conditional-request decision for one feed body.
type Validation struct {
	Status       int
	ETag         string
	LastModified time.Time
}

// ComputeETag derives the cache validator for a serialized body. The same
// body always yields the same quoted tag.
func ComputeETag(body []byte) string {
	sum := md5.Sum(body)
	return fmt.Sprintf("%q", hex.EncodeToString(sum[:]))
}

// Validate decides between a full response and a 304. The If-None-Match
// comparison takes precedence over If-Modified-Since; a malformed
// If-Modified-Since value is treated as absent.
func Validate(body []byte, lastModified time.Time, ifNoneMatch, ifModifiedSince string) Validation {
	etag := ComputeETag(body)
	lastModified = lastModified.UTC().Truncate(time.Second)

	v := Validation{
		Status:       http.StatusOK,
		ETag:         etag,
		LastModified: lastModified,
	}

	if ifNoneMatch != "" {
		if ifNoneMatch == etag {
			v.Status = http.StatusNotModified
		}
		return v
	}

	if ifModifiedSince != "" {
		since, err := http.ParseTime(ifModifiedSince)
		if err != nil {
			return v
		}
		if !lastModified.After(since) {
			v.Status = http.StatusNotModified
		}
	}

	return v
}
