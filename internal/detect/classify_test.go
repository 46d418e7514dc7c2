package detect

import (
	"strings"
	"testing"

	"pagecopy/internal/tester"
	"pagecopy/internal/types"
)

// fakeNode is an in-memory tree for exercising the classifier without a parser.
type fakeNode struct {
	tag    string
	attrs  map[string]string
	text   string
	parent *fakeNode
	kids   []*fakeNode
}

func el(tag, text string, kids ...*fakeNode) *fakeNode {
	n := &fakeNode{tag: tag, text: text, attrs: map[string]string{}}
	for _, k := range kids {
		k.parent = n
	}
	n.kids = kids
	return n
}

func (f *fakeNode) with(k, v string) *fakeNode {
	f.attrs[k] = v
	return f
}

func (f *fakeNode) Tag() string             { return f.tag }
func (f *fakeNode) Attr(name string) string { return f.attrs[name] }
func (f *fakeNode) DirectText() string      { return f.text }

func (f *fakeNode) Parent() Node {
	if f.parent == nil {
		return nil
	}
	return f.parent
}

func (f *fakeNode) Children() []Node {
	out := make([]Node, 0, len(f.kids))
	for _, k := range f.kids {
		out = append(out, k)
	}
	return out
}

func (f *fakeNode) Text() string {
	parts := []string{f.text}
	for _, k := range f.kids {
		parts = append(parts, k.Text())
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func classifyIn(n *fakeNode) Class {
	el("body", "", n)
	return DefaultClassifier().Classify(n)
}

func TestClassify_Headings(t *testing.T) {
	for lvl, tag := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		got := classifyIn(el(tag, "Title"))
		tester.Eq(t, got, Class{Kind: KindHeading, Level: lvl + 1}, tag)
	}
	tester.Eq(t, classifyIn(el("h2", "  ")).Kind, KindNone, "empty heading")
	tester.Eq(t, Class{Kind: KindHeading, Level: 1}.SemanticType(), types.Headline)
	tester.Eq(t, Class{Kind: KindHeading, Level: 5}.SemanticType(), types.Subheadline)
}

func TestClassify_ParagraphLength(t *testing.T) {
	tester.Eq(t, classifyIn(el("p", "123456789")).Kind, KindNone)
	tester.Eq(t, classifyIn(el("p", "1234567890")).Kind, KindParagraph)
}

func TestClassify_ListsImagesLinks(t *testing.T) {
	tester.Eq(t, classifyIn(el("ul", "", el("li", "One"))).Kind, KindList)
	tester.Eq(t, classifyIn(el("ol", "", el("li", ""))).Kind, KindNone, "list without text")
	tester.Eq(t, classifyIn(el("img", "")).Kind, KindImage, "image without alt still qualifies")
	tester.Eq(t, classifyIn(el("a", "Buy").with("href", "/buy")).Kind, KindLink)
	tester.Eq(t, classifyIn(el("a", "Buy")).Kind, KindNone, "anchor without href")
	tester.Eq(t, classifyIn(el("a", "").with("href", "/buy")).Kind, KindNone, "anchor without text")
	tester.Eq(t, Class{Kind: KindLink}.SemanticType(), types.CTA)
}

func TestClassify_ExcludedByAncestorOrName(t *testing.T) {
	p := el("p", "Long enough paragraph text")
	el("body", "", el("nav", "", el("div", "", p)))
	tester.Eq(t, DefaultClassifier().Classify(p).Kind, KindExcluded)

	for _, name := range []string{"ad-banner", "main-nav", "cookie-consent", "pop-up", "tracking pixel", "sponsored"} {
		q := el("p", "Long enough paragraph text")
		el("body", "", el("div", "", q).with("class", name))
		tester.Eq(t, DefaultClassifier().Classify(q).Kind, KindExcluded, name)
	}
	for _, name := range []string{"hero", "loading", "adventure", "canvas", "header-copy"} {
		q := el("p", "Long enough paragraph text")
		el("body", "", el("div", "", q).with("class", name))
		tester.Eq(t, DefaultClassifier().Classify(q).Kind, KindParagraph, name)
	}
}

func TestClassify_ContentBlocks(t *testing.T) {
	card := el("div", "", el("h3", "Plans"), el("p", "One"), el("p", "Two"))
	tester.Eq(t, classifyIn(card).Kind, KindContentBlock, "heading then paragraphs")

	twoP := el("section", "", el("p", "One"), el("p", "Two"))
	tester.Eq(t, classifyIn(twoP).Kind, KindContentBlock, "standalone paragraphs")

	text := el("article", strings.Repeat("word ", 10))
	tester.Eq(t, classifyIn(text).Kind, KindContentBlock, "direct text")

	tooMany := el("div", "", el("h3", "T"), el("p", "1"), el("p", "2"), el("p", "3"), el("p", "4"))
	tester.Eq(t, classifyIn(tooMany).Kind, KindNone, "heading followed by too many paragraphs")

	var kids []*fakeNode
	for i := 0; i < 11; i++ {
		kids = append(kids, el("p", "x"))
	}
	tester.Eq(t, classifyIn(el("div", "", kids...)).Kind, KindNone, "child count bound")

	inner := el("div", "", el("h2", "Card"), el("p", "Body"))
	outer := el("div", strings.Repeat("aside text ", 5), inner)
	el("body", "", outer)
	tester.Eq(t, DefaultClassifier().Classify(outer).Kind, KindNone, "inner container wins")
	tester.Eq(t, DefaultClassifier().Classify(inner).Kind, KindContentBlock)

	root := el("div", "", el("p", "One"), el("p", "Two"))
	tester.Eq(t, DefaultClassifier().Classify(root).Kind, KindNone, "content root is never a block")
}

func TestWalk_ConsumesAcceptedSubtrees(t *testing.T) {
	block := el("div", "", el("h2", "Card"), el("p", "Paragraph long enough"))
	root := el("body", "", block, el("p", "Another paragraph"))

	got := Walk(root, DefaultClassifier())
	tester.Eq(t, len(got), 2)
	tester.Eq(t, got[0].Class.Kind, KindContentBlock)
	tester.Eq(t, got[1].Class.Kind, KindParagraph)
}
