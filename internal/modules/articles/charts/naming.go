package charts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

const disambiguatorLen = 10

// SanitizeID lower-cases id and replaces anything outside [a-z0-9_-] with '_'.
func SanitizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "chart"
	}
	return b.String()
}

// DescriptorHash is a content hash over everything that affects the
// rendered output. Equal hashes mean byte-identical artifacts.
func DescriptorHash(vd ValidatedDescriptor, theme Theme, format Format) string {
	raw, _ := json.Marshal(struct {
		ID          string
		Name        string
		Type        ChartType
		Description string
		Points      []Point
		Theme       Theme
		Format      Format
	}{
		ID:          vd.ID,
		Name:        vd.Name,
		Type:        vd.Type,
		Description: vd.Description,
		Points:      vd.Points,
		Theme:       theme,
		Format:      format,
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ArtifactName builds "<sanitizedId>_<disambiguator>.<ext>".
func ArtifactName(id, hash, ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if len(hash) > disambiguatorLen {
		hash = hash[:disambiguatorLen]
	}
	return SanitizeID(id) + "_" + hash + "." + ext
}
