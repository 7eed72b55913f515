// Package directory is the read-only lookup collaborator for display
// data owned by the catalog and profile services. Only names pass
// through here; none of it is dealroom state.
package directory

// Lookup resolves display names for notification notes and API
// responses. Implementations must fall back to the raw id rather than
// fail; display data is never load-bearing.
type Lookup interface {
	ItemName(itemID string) string
	DisplayName(userID string) string
}

// Static is a map-backed Lookup for tests and single-node deployments.
type Static struct {
	Items map[string]string
	Users map[string]string
}

func (s Static) ItemName(itemID string) string {
	if name, ok := s.Items[itemID]; ok {
		return name
	}
	return itemID
}

func (s Static) DisplayName(userID string) string {
	if name, ok := s.Users[userID]; ok {
		return name
	}
	return userID
}
