package detect

import (
	"fmt"
	"path"
	"strings"
	"unicode"
)

const maxSlugLen = 40

// slugify lowercases s and joins runs of letters and digits with '-'.
func slugify(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			dash = false
			sb.WriteRune(r)
			continue
		}
		dash = true
	}
	out := sb.String()
	if r := []rune(out); len(r) > maxSlugLen {
		out = string(r[:maxSlugLen])
		if i := strings.LastIndexByte(out, '-'); i > maxSlugLen/2 {
			out = out[:i]
		}
		out = strings.TrimRight(out, "-")
	}
	return out
}

// baseID picks the slug source: visible text, then alt, src or href for
// textless elements, then the semantic type.
func baseID(m Match) string {
	if s := slugify(m.Node.Text()); s != "" {
		return s
	}
	if s := slugify(m.Node.Attr("alt")); s != "" {
		return s
	}
	if src := m.Node.Attr("src"); src != "" {
		name := path.Base(strings.SplitN(src, "?", 2)[0])
		if s := slugify(strings.TrimSuffix(name, path.Ext(name))); s != "" {
			return s
		}
	}
	if s := slugify(m.Node.Attr("href")); s != "" {
		return s
	}
	return string(m.Class.SemanticType())
}

// idAllocator hands out unique ids, suffixing collisions with -1, -2, ...
type idAllocator struct {
	used map[string]int
}

func newIDAllocator() *idAllocator { return &idAllocator{used: map[string]int{}} }

func (a *idAllocator) next(base string) string {
	id := base
	for {
		if _, taken := a.used[id]; !taken {
			break
		}
		a.used[base]++
		id = fmt.Sprintf("%s-%d", base, a.used[base])
	}
	a.used[id] = 0
	return id
}

// labeler numbers headings per tier and content blocks separately; other
// labels are derived from the id.
type labeler struct {
	counts map[string]int
}

func newLabeler() *labeler { return &labeler{counts: map[string]int{}} }

func (l *labeler) label(m Match, id string) string {
	var tier string
	switch m.Class.Kind {
	case KindHeading:
		switch {
		case m.Class.Level == 1:
			tier = "Primary Headline"
		case m.Class.Level == 2:
			tier = "Subheadline"
		case m.Class.Level == 3:
			tier = "Section Header"
		default:
			tier = "Minor Header"
		}
	case KindContentBlock:
		tier = "Content Block"
	default:
		return labelFromID(id)
	}
	l.counts[tier]++
	return fmt.Sprintf("%s %d", tier, l.counts[tier])
}

func labelFromID(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "-", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
