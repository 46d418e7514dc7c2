package detect

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node is the read-only view of a document element the classifier works on.
type Node interface {
	// Tag is the lowercase element name.
	Tag() string
	Attr(name string) string
	// Parent is nil above the content root.
	Parent() Node
	// Children are element children in document order.
	Children() []Node
	// DirectText is the whitespace-collapsed text of direct text children.
	DirectText() string
	// Text is the whitespace-collapsed visible text of the subtree.
	Text() string
}

// htmlNode adapts *html.Node. root bounds Parent so ancestor walks stop at
// the content root.
type htmlNode struct {
	n    *html.Node
	root *html.Node
}

func wrap(n, root *html.Node) *htmlNode { return &htmlNode{n: n, root: root} }

func (h *htmlNode) Tag() string { return h.n.Data }

func (h *htmlNode) Attr(name string) string {
	for _, a := range h.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val
		}
	}
	return ""
}

func (h *htmlNode) Parent() Node {
	if h.n == h.root || h.n.Parent == nil || h.n.Parent.Type != html.ElementNode {
		return nil
	}
	return wrap(h.n.Parent, h.root)
}

func (h *htmlNode) Children() []Node {
	var out []Node
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, wrap(c, h.root))
		}
	}
	return out
}

func (h *htmlNode) DirectText() string {
	var sb strings.Builder
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteByte(' ')
		}
	}
	return collapse(sb.String())
}

func (h *htmlNode) Text() string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(h.n)
	return collapse(sb.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func clearAttrs(root *html.Node, keys ...string) {
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && len(n.Attr) > 0 {
			kept := n.Attr[:0]
			for _, a := range n.Attr {
				drop := false
				for _, k := range keys {
					if a.Namespace == "" && a.Key == k {
						drop = true
						break
					}
				}
				if !drop {
					kept = append(kept, a)
				}
			}
			n.Attr = kept
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
}
