package service

import (
	"path/filepath"
	"strings"

	"github.com/xxxsen/docchat/internal/model"
)

// ResolveDocument decides which document a query should be scoped to.
// Precedence: an explicitly requested document, then the first document
// whose name appears in the query text, then the user's active document.
// An empty result means retrieval runs across all of the user's chunks.
func ResolveDocument(query string, explicit string, docs []model.UserDocument, active string) string {
	if explicit != "" {
		return explicit
	}
	lowered := strings.ToLower(query)
	for _, doc := range docs {
		name := strings.ToLower(doc.Filename)
		base := strings.TrimSuffix(name, filepath.Ext(name))
		// Extension-only names like ".txt" have an empty base, which
		// would match every query.
		if base != "" && strings.Contains(lowered, base) {
			return doc.Filename
		}
		if strings.Contains(lowered, name) {
			return doc.Filename
		}
	}
	if active != "" {
		return active
	}
	return ""
}
