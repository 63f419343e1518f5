// Package directory answers whether a user, identified by hashed id, holds
// a named permission such as "labmanager".
package directory

import (
	"context"
	"strings"
)

const LabManager = "labmanager"

type Directory interface {
	HasPermission(ctx context.Context, hashedID, permission string) (bool, error)
}

// Static is a read-only directory loaded from configuration. Ids and
// permissions compare case-insensitively.
type Static struct {
	permissions map[string]map[string]struct{}
}

func NewStatic(entries map[string][]string) *Static {
	permissions := make(map[string]map[string]struct{}, len(entries))
	for id, perms := range entries {
		key := normalize(id)
		if _, ok := permissions[key]; !ok {
			permissions[key] = make(map[string]struct{}, len(perms))
		}
		for _, p := range perms {
			permissions[key][normalize(p)] = struct{}{}
		}
	}
	return &Static{permissions: permissions}
}

func (s *Static) HasPermission(_ context.Context, hashedID, permission string) (bool, error) {
	perms, ok := s.permissions[normalize(hashedID)]
	if !ok {
		return false, nil
	}
	_, ok = perms[normalize(permission)]
	return ok, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
