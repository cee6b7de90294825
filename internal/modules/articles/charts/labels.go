package charts

import (
	"regexp"
	"strings"
)

// Generic labels the model emits when it has no real data, in Portuguese
// and English: "Categoria 1", "Series 2", "Valor 3", ...
var placeholderLabelRE = regexp.MustCompile(`(?i)^(categorias?|category|categories|categoría|item|itens|items|label|rótulo|rotulo|série|serie|series|grupo|group|valor|value|dado|dados|data|exemplo|example|opção|opcao|option|elemento|element|variável|variavel|variable|ponto|point)\s*[-_#:]?\s*[0-9]+$`)

// A trailing letter only marks filler after these words. "Série A" and
// "Grupo B" are real names.
var placeholderLetterRE = regexp.MustCompile(`(?i)^(categorias?|category|categoría|item|items|opção|opcao|option|elemento|element)(\s+|\s*[-_#:]\s*)[a-z]$`)

var placeholderLabels = map[string]bool{
	"placeholder": true,
	"lorem ipsum": true,
	"lorem":       true,
	"n/a":         true,
	"na":          true,
	"tbd":         true,
	"todo":        true,
	"xxx":         true,
	"...":         true,
	"?":           true,
	"-":           true,
	"label":       true,
	"categoria":   true,
	"category":    true,
	"item":        true,
	"sem dados":   true,
	"no data":     true,
}

// IsPlaceholderLabel reports whether label looks like filler rather than data.
func IsPlaceholderLabel(label string) bool {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return true
	}
	if placeholderLabels[s] {
		return true
	}
	return placeholderLabelRE.MatchString(s) || placeholderLetterRE.MatchString(s)
}
