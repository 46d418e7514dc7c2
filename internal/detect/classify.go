package detect

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"pagecopy/internal/types"
)

// Kind is the classification variant of an element.
type Kind int

const (
	// KindNone: not a slot; traversal descends into it.
	KindNone Kind = iota
	// KindExcluded: structural or non-content; the subtree is skipped.
	KindExcluded
	KindHeading
	KindParagraph
	KindList
	KindImage
	KindLink
	KindContentBlock
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindExcluded:
		return "excluded"
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindList:
		return "list"
	case KindImage:
		return "image"
	case KindLink:
		return "link"
	case KindContentBlock:
		return "content_block"
	}
	return "unknown"
}

// Class is a tagged classification. Level is set for headings only.
type Class struct {
	Kind  Kind
	Level int
}

// Slot reports whether the class is accepted as a slot.
func (c Class) Slot() bool { return c.Kind > KindExcluded }

// SemanticType maps the class onto the slot type vocabulary.
func (c Class) SemanticType() types.SemanticType {
	switch c.Kind {
	case KindHeading:
		if c.Level == 1 {
			return types.Headline
		}
		return types.Subheadline
	case KindList:
		return types.List
	case KindImage:
		return types.Image
	case KindLink:
		return types.CTA
	default:
		return types.Paragraph
	}
}

var (
	excludedTags = map[string]bool{
		"nav": true, "header": true, "footer": true,
		"script": true, "style": true, "noscript": true, "template": true,
	}
	containerTags = map[string]bool{"div": true, "section": true, "article": true}

	reExcludedName = regexp.MustCompile(`(?i)(?:^|[^a-z0-9])(?:nav|navbar|navigation|menu|breadcrumbs?|ads?|advert[a-z0-9]*|sponsor[a-z0-9]*|tracking|tracker|analytics|pixel|pop-?up|modal|overlay|cookie[a-z0-9]*)(?:$|[^a-z0-9])`)
)

// Classifier holds the tunable heuristics.
type Classifier struct {
	// MinParagraph is the minimum visible text length, in runes, of a paragraph slot.
	MinParagraph int
	// MaxChildren bounds the element children of a content block.
	MaxChildren int
	// MinDirectText is the untagged direct text, in runes, that makes a container a block.
	MinDirectText int
}

func DefaultClassifier() Classifier {
	return Classifier{MinParagraph: 10, MaxChildren: 10, MinDirectText: 40}
}

// Classify is a pure function of the node and its ancestors.
func (c Classifier) Classify(n Node) Class {
	if Excluded(n) {
		return Class{Kind: KindExcluded}
	}
	tag := n.Tag()
	if lvl := headingLevel(tag); lvl > 0 {
		if n.Text() == "" {
			return Class{}
		}
		return Class{Kind: KindHeading, Level: lvl}
	}
	switch tag {
	case "p":
		if utf8.RuneCountInString(n.Text()) >= c.MinParagraph {
			return Class{Kind: KindParagraph}
		}
	case "ul", "ol":
		if n.Text() != "" {
			return Class{Kind: KindList}
		}
	case "img":
		return Class{Kind: KindImage}
	case "a":
		if strings.TrimSpace(n.Attr("href")) != "" && n.Text() != "" {
			return Class{Kind: KindLink}
		}
	default:
		if c.isBlock(n) {
			return Class{Kind: KindContentBlock}
		}
	}
	return Class{}
}

// Excluded reports whether n or any ancestor is structural or matches a
// navigation, advertising, tracking or popup name.
func Excluded(n Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if excludedTags[cur.Tag()] {
			return true
		}
		if reExcludedName.MatchString(cur.Attr("class")) || reExcludedName.MatchString(cur.Attr("id")) {
			return true
		}
	}
	return false
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// isBlock: a bounded container showing a block pattern, with no descendant
// container that shows one itself. The innermost matching container wins.
func (c Classifier) isBlock(n Node) bool {
	if !containerTags[n.Tag()] || n.Parent() == nil {
		return false
	}
	if !c.blockPattern(n) {
		return false
	}
	return !c.hasBlockDescendant(n)
}

func (c Classifier) hasBlockDescendant(n Node) bool {
	for _, ch := range n.Children() {
		if containerTags[ch.Tag()] && !Excluded(ch) && c.blockPattern(ch) {
			return true
		}
		if c.hasBlockDescendant(ch) {
			return true
		}
	}
	return false
}

// blockPattern: a heading followed by 1 to 3 paragraphs, two or more
// standalone paragraphs, or a substantial run of direct text.
func (c Classifier) blockPattern(n Node) bool {
	children := n.Children()
	if len(children) > c.MaxChildren {
		return false
	}
	if utf8.RuneCountInString(n.DirectText()) >= c.MinDirectText {
		return true
	}
	if len(children) >= 2 && headingLevel(children[0].Tag()) > 0 {
		rest := children[1:]
		if len(rest) <= 3 && allTag(rest, "p") {
			return true
		}
	}
	return len(children) >= 2 && allTag(children, "p")
}

func allTag(nodes []Node, tag string) bool {
	for _, n := range nodes {
		if n.Tag() != tag {
			return false
		}
	}
	return true
}
