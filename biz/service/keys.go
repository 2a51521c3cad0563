package service

import (
	"strings"

	"github.com/yi-nology/mediaedge/pkg/storage"
)

// fileLayouts lists where a user's file may live, newest layout first.
var fileLayouts = []storage.KeyFunc[Route]{
	func(r Route) string { return "users/" + r.UserID + "/files/" + r.ObjectPath },
	func(r Route) string { return r.RawPath },
	func(r Route) string { return strings.TrimPrefix(r.RawPath, filesPrefix) },
}

// legacyFileLayouts serves paths that predate per-user prefixes.
var legacyFileLayouts = []storage.KeyFunc[Route]{
	func(r Route) string { return r.RawPath },
	func(r Route) string { return strings.TrimPrefix(r.RawPath, filesPrefix) },
}

func layoutsFor(r Route) []storage.KeyFunc[Route] {
	if r.Legacy {
		return legacyFileLayouts
	}
	return fileLayouts
}
