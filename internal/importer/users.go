package importer

import "github.com/lherron/guildq/internal/domain"

// userIndex resolves an identifier against a batch of users by id first,
// then by handle.
type userIndex struct {
	byID     map[string]*domain.User
	byHandle map[string]*domain.User
}

func newUserIndex(users []domain.User) userIndex {
	ix := userIndex{
		byID:     make(map[string]*domain.User, len(users)),
		byHandle: make(map[string]*domain.User, len(users)),
	}
	for i := range users {
		u := &users[i]
		ix.byID[u.ID] = u
		ix.byHandle[u.Handle] = u
	}
	return ix
}

func (ix userIndex) lookup(identifier string) (*domain.User, bool) {
	if u, ok := ix.byID[identifier]; ok {
		return u, true
	}
	u, ok := ix.byHandle[identifier]
	return u, ok
}

// missing returns the identifiers with no match, in request order and
// without repeats.
func (ix userIndex) missing(identifiers []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, identifier := range identifiers {
		if _, ok := ix.lookup(identifier); ok || seen[identifier] {
			continue
		}
		seen[identifier] = true
		out = append(out, identifier)
	}
	return out
}
