package figures

import (
	"path"
	"regexp"
	"strings"
)

// Candidate is one available file, pre-normalized for matching.
type Candidate struct {
	// RawName is the listing entry exactly as supplied; it is what gets embedded.
	RawName string
	// NormalizedName is the base name, lower-cased, without a leading timestamp prefix.
	NormalizedName string
	// Stem is NormalizedName without its extension.
	Stem string
	// Compact is Stem with separators removed.
	Compact   string
	Extension string
}

// Index is an ordered, read-only view over candidates. Order follows the
// listing it was built from and decides ties during resolution.
type Index struct {
	candidates []Candidate
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".svg":  true,
	".bmp":  true,
}

var timestampPrefixRE = regexp.MustCompile(`^[0-9]+[_-]`)

// IsImageName reports whether name carries a recognized image extension.
func IsImageName(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(strings.TrimSpace(name)))]
}

// BuildIndex keeps the image entries of fileNames, in order.
func BuildIndex(fileNames []string) Index {
	out := make([]Candidate, 0, len(fileNames))
	for _, raw := range fileNames {
		if strings.TrimSpace(raw) == "" || !IsImageName(raw) {
			continue
		}
		out = append(out, newCandidate(raw))
	}
	return Index{candidates: out}
}

func newCandidate(raw string) Candidate {
	base := strings.ToLower(path.Base(strings.ReplaceAll(strings.TrimSpace(raw), "\\", "/")))
	normalized := timestampPrefixRE.ReplaceAllString(base, "")
	if normalized == "" || normalized == path.Ext(base) {
		// "123_.png" would otherwise normalize to an extension only
		normalized = base
	}
	ext := path.Ext(normalized)
	stem := strings.TrimSuffix(normalized, ext)
	return Candidate{
		RawName:        raw,
		NormalizedName: normalized,
		Stem:           stem,
		Compact:        compact(stem),
		Extension:      ext,
	}
}

func (idx Index) Len() int { return len(idx.candidates) }

// Candidates returns a copy of the indexed candidates.
func (idx Index) Candidates() []Candidate {
	out := make([]Candidate, len(idx.candidates))
	copy(out, idx.candidates)
	return out
}

// With returns a new index with extra names appended after the existing ones.
func (idx Index) With(fileNames ...string) Index {
	extra := BuildIndex(fileNames)
	merged := make([]Candidate, 0, len(idx.candidates)+len(extra.candidates))
	merged = append(merged, idx.candidates...)
	merged = append(merged, extra.candidates...)
	return Index{candidates: merged}
}

func compact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isSeparator(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isSeparator(r rune) bool {
	switch r {
	case '_', '-', '.', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
