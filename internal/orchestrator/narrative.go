package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"pagecopy/internal/llm"
	llmclient "pagecopy/internal/llm/client"
	"pagecopy/internal/prompt"
	"pagecopy/internal/types"
)

// Narrative is a synthesized master narrative.
type Narrative struct {
	Text string         `json:"narrative"`
	ID   string         `json:"narrativeId"`
	Tier llmclient.Tier `json:"tier"`
}

// GenerateNarrative synthesizes the narrative on the quality tier. Any
// failure there is retried once on the fast tier; a fast tier failure is
// returned.
func (o *Orchestrator) GenerateNarrative(ctx context.Context, brief types.Brief) (*Narrative, error) {
	if strings.TrimSpace(brief.ProductName) == "" && strings.TrimSpace(brief.Description) == "" {
		return nil, invalid("brief needs a product name or description")
	}
	p, err := prompt.Build(prompt.NarrativeRequest{Brief: brief})
	if err != nil {
		return nil, invalid("%v", err)
	}

	tier := llmclient.TierQuality
	raw, err := o.gen.GenerateText(ctx, p, tier, llm.NewOperationID("narrative"))
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		o.log.Warn("quality tier failed, retrying narrative on fast tier",
			"kind", llmclient.KindOf(err).String(), "error", err)
		tier = llmclient.TierFast
		raw, err = o.gen.GenerateText(ctx, p, tier, llm.NewOperationID("narrative"))
		if err != nil {
			return nil, fmt.Errorf("narrative: %w", err)
		}
	}

	out := FlattenNarrative(raw)
	if out == "" {
		return nil, fmt.Errorf("narrative: %w", llmclient.ErrEmptyResponse)
	}
	id := o.narratives.Put(out)
	o.log.Info("narrative generated", "narrative_id", id, "tier", tier, "words", len(strings.Fields(out)))
	return &Narrative{Text: out, ID: id, Tier: tier}, nil
}

// FlattenNarrative reduces markdown to plain prose: headings, code blocks
// and raw HTML are dropped, inline markers removed, and paragraphs joined
// by blank lines.
func FlattenNarrative(src string) string {
	source := []byte(strings.TrimSpace(src))
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	var paras []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading, ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock, ast.KindThematicBreak:
			return ast.WalkSkipChildren, nil
		case ast.KindParagraph, ast.KindTextBlock:
			if s := inlineText(n, source); s != "" {
				paras = append(paras, s)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(paras, "\n\n")
}

func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.AutoLink:
			sb.Write(t.Label(source))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
