package tags

import "strings"

type Kind int

const (
	KindChart Kind = iota + 1
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindChart:
		return "chart"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

const (
	chartOpen = "[CHART:"
	imageOpen = "[Imagem:"
)

// Token is one tag occurrence. Start and End are byte offsets into the
// scanned content; Text is content[Start:End]. An unterminated tag runs
// to the next tag opener or to the end of the content.
type Token struct {
	Kind       Kind
	Start      int
	End        int
	Text       string
	Payload    string
	Terminated bool
}

// Scan returns every tag in content in order of appearance. Keywords are
// matched case-sensitively; tags never nest.
func Scan(content string) []Token {
	var out []Token
	i := 0
	for i < len(content) {
		rel := strings.IndexByte(content[i:], '[')
		if rel < 0 {
			break
		}
		start := i + rel
		kind, open := openerAt(content, start)
		if kind == 0 {
			i = start + 1
			continue
		}
		bodyStart := start + len(open)
		end, terminated := bodyEnd(content, bodyStart)
		tok := Token{
			Kind:       kind,
			Start:      start,
			Text:       content[start:end],
			Terminated: terminated,
		}
		body := content[bodyStart:end]
		if terminated {
			body = body[:len(body)-1]
		}
		tok.Payload = strings.TrimSpace(body)
		tok.End = end
		out = append(out, tok)
		i = end
	}
	return out
}

func openerAt(content string, at int) (Kind, string) {
	switch {
	case strings.HasPrefix(content[at:], chartOpen):
		return KindChart, chartOpen
	case strings.HasPrefix(content[at:], imageOpen):
		return KindImage, imageOpen
	default:
		return 0, ""
	}
}

// bodyEnd finds the end offset (exclusive) of a tag body starting at from.
// A closing ']' terminates the tag. Reaching another tag opener first
// leaves the current tag unterminated so the next one can still be read.
func bodyEnd(content string, from int) (int, bool) {
	for j := from; j < len(content); j++ {
		switch content[j] {
		case ']':
			return j + 1, true
		case '[':
			if k, _ := openerAt(content, j); k != 0 {
				return j, false
			}
		}
	}
	return len(content), false
}
