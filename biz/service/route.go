package service

import (
	"strings"
)

// Branch names the two request families served by the edge function.
type Branch string

const (
	BranchImage Branch = "image"
	BranchFiles Branch = "files"
)

const (
	filesPrefix  = "files/"
	imagesPrefix = "images"
)

// Route is a request path decomposed into its storage coordinates.
type Route struct {
	Branch Branch
	UserID string
	// ObjectPath is the folder path of an image or the file path of a file,
	// relative to the user's category root.
	ObjectPath string
	// Operations is the raw trailing segment of an image path.
	Operations string
	// RawPath is the request path without its leading slash.
	RawPath string
	// Legacy is set for file paths too short to carry a user id.
	Legacy bool
}

// ParseRoute classifies a request path. Paths under /files/ take the file
// branch; every other path is an image request whose last segment is the
// operations string, even when that segment is empty.
func ParseRoute(path string) Route {
	raw := strings.TrimPrefix(path, "/")

	if strings.HasPrefix(raw, filesPrefix) {
		rest := strings.TrimPrefix(raw, filesPrefix)
		userID, filePath, found := strings.Cut(rest, "/")
		if !found {
			return Route{Branch: BranchFiles, RawPath: raw, Legacy: true}
		}
		return Route{Branch: BranchFiles, UserID: userID, ObjectPath: filePath, RawPath: raw}
	}

	segments := strings.Split(raw, "/")
	ops := segments[len(segments)-1]
	segments = segments[:len(segments)-1]
	if len(segments) > 0 && segments[0] == imagesPrefix {
		segments = segments[1:]
	}

	r := Route{Branch: BranchImage, Operations: ops, RawPath: raw}
	if len(segments) > 0 {
		r.UserID = segments[0]
		r.ObjectPath = strings.Join(segments[1:], "/")
	}
	return r
}

// StorageKey is the current-layout key of the requested object. An image
// stored directly at the user's image root has no trailing slash.
func (r Route) StorageKey() string {
	category := "images"
	if r.Branch == BranchFiles {
		category = "files"
	}
	key := "users/" + r.UserID + "/" + category
	if r.ObjectPath == "" && r.Branch == BranchImage {
		return key
	}
	return key + "/" + r.ObjectPath
}

// DerivativeKey is where the transformed image is cached. The operations
// string is used verbatim, so reordered operations are distinct entries.
func (r Route) DerivativeKey() string {
	return r.StorageKey() + "/" + r.Operations
}

// PublicPath is the CDN-style path of the image, without the operations.
func (r Route) PublicPath() string {
	p := "/" + imagesPrefix + "/" + r.UserID
	if r.ObjectPath != "" {
		p += "/" + r.ObjectPath
	}
	return p
}
