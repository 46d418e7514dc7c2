package prompt

import (
	"fmt"
	"strings"

	"pagecopy/internal/types"
)

// TypeInstruction is the semantic-type-specific shape rule for one slot.
func TypeInstruction(t types.SemanticType) string {
	switch t {
	case types.Headline:
		return "A single line headline. No line breaks, no trailing period, at most 12 words."
	case types.Subheadline:
		return "A single line supporting headline of one sentence. No line breaks."
	case types.Paragraph:
		return "A multi-sentence paragraph of 3 to 5 complete sentences."
	case types.List:
		return "3 to 6 newline-delimited items, one item per line, without bullets or numbering."
	case types.CTA:
		return "A short call to action of 2 to 5 words, on a single line."
	case types.Image:
		return "A single line of descriptive alt text for an image."
	default:
		return "Plain text."
	}
}

func writeField(sb *strings.Builder, f types.SlotField) {
	fmt.Fprintf(sb, "SLOT: %s", strings.TrimSpace(f.ID))
	if l := strings.TrimSpace(f.Label); l != "" {
		fmt.Fprintf(sb, " (%s)", l)
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "FORMAT: %s\n", TypeInstruction(f.SemanticType))
	if f.MaxLength > 0 {
		fmt.Fprintf(sb, "MAX LENGTH: %d characters. Stay within it.\n", f.MaxLength)
	}
	if in := strings.TrimSpace(f.Instructions); in != "" {
		fmt.Fprintf(sb, "EXTRA INSTRUCTIONS: %s\n", in)
	}
}

// SingleSlot builds the prompt extracting one slot from the narrative.
func SingleSlot(r SingleSlotRequest) string {
	var sb strings.Builder
	sb.WriteString("You write landing page copy by distilling an existing narrative.\n\n")
	writeSource(&sb, r.Narrative)
	fmt.Fprintf(&sb, "TONE: %s\n\n", ToneDirective(r.Audience.Tone))
	writeField(&sb, r.Field)
	sb.WriteString("\nReturn only the text for this slot. No quotes, no labels, no markdown, no HTML.\n")
	return sb.String()
}

// Regenerate builds the prompt producing a fresh alternative for one slot.
func Regenerate(r RegenerateRequest) string {
	var sb strings.Builder
	sb.WriteString("You rewrite one piece of landing page copy, producing a fresh alternative drawn from the narrative.\n\n")
	writeSource(&sb, r.Narrative)
	fmt.Fprintf(&sb, "TONE: %s\n\n", ToneDirective(r.Audience.Tone))
	writeField(&sb, r.Field)
	if prev := strings.TrimSpace(r.Previous); prev != "" {
		fmt.Fprintf(&sb, "\nCURRENT VERSION (write something clearly different):\n%s\n", prev)
	}
	if fb := strings.TrimSpace(r.Feedback); fb != "" {
		fmt.Fprintf(&sb, "\nEDITOR FEEDBACK: %s\n", fb)
	}
	sb.WriteString("\nReturn only the new text. No quotes, no labels, no markdown, no HTML.\n")
	return sb.String()
}
