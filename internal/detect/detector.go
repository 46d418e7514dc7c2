// Package detect finds editable content regions in an HTML template and
// marks each one with a slot id attribute.
package detect

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagecopy/internal/metrics"
	"pagecopy/internal/types"
)

const (
	// AttrSlot carries the slot id on a marked element.
	AttrSlot = "data-slot"
	// AttrSlotType carries the slot semantic type.
	AttrSlotType = "data-slot-type"
)

var reDocument = regexp.MustCompile(`(?i)<(?:!doctype|html|head|body)[\s>]`)

// ErrEmptyDocument is returned for blank input.
var ErrEmptyDocument = errors.New("detect: empty document")

type Detector struct {
	cls Classifier
}

func New(cls Classifier) *Detector {
	def := DefaultClassifier()
	if cls.MinParagraph <= 0 {
		cls.MinParagraph = def.MinParagraph
	}
	if cls.MaxChildren <= 0 {
		cls.MaxChildren = def.MaxChildren
	}
	if cls.MinDirectText <= 0 {
		cls.MinDirectText = def.MinDirectText
	}
	return &Detector{cls: cls}
}

// Detect clears existing markers, classifies the document and marks every
// accepted element. A fragment in gives a fragment out; a full document
// (one with a doctype, <html>, <head> or <body> tag) is rendered whole.
func (d *Detector) Detect(src string) (*types.DetectionResult, error) {
	if strings.TrimSpace(src) == "" {
		return nil, ErrEmptyDocument
	}
	document := reDocument.MatchString(src)
	root, body, err := parse(src, document)
	if err != nil {
		return nil, err
	}
	clearAttrs(root, AttrSlot, AttrSlotType)

	matches := Walk(wrap(body, body), d.cls)

	ids := newIDAllocator()
	labels := newLabeler()
	slots := make([]types.ContentRegion, 0, len(matches))
	for _, m := range matches {
		id := ids.next(baseID(m))
		st := m.Class.SemanticType()
		n := m.Node.(*htmlNode).n
		setAttr(n, AttrSlot, id)
		setAttr(n, AttrSlotType, string(st))
		slots = append(slots, types.ContentRegion{ID: id, SemanticType: st, Label: labels.label(m, id)})
	}
	metrics.SlotsDetected.Observe(float64(len(slots)))

	var buf bytes.Buffer
	if document {
		err = html.Render(&buf, root)
	} else {
		for c := body.FirstChild; c != nil && err == nil; c = c.NextSibling {
			err = html.Render(&buf, c)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("detect: render html: %w", err)
	}
	return &types.DetectionResult{MarkedHTML: buf.String(), Slots: slots}, nil
}

// parse returns the tree root and the element to walk. A fragment is parsed
// in a body context and hung under a detached body element, so head-bound
// tags like <style> or <link> stay where they were.
func parse(src string, document bool) (root, body *html.Node, err error) {
	if document {
		var doc *html.Node
		if doc, err = html.Parse(strings.NewReader(src)); err != nil {
			return nil, nil, fmt.Errorf("detect: parse html: %w", err)
		}
		body = findBody(doc)
		if body == nil {
			return nil, nil, errors.New("detect: document has no body")
		}
		return doc, body, nil
	}
	body = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	ctxNode := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), ctxNode)
	if err != nil {
		return nil, nil, fmt.Errorf("detect: parse html: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return body, body, nil
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
