package prompt

import (
	"fmt"
	"strings"
)

const (
	NarrativeMinWords = 800
	NarrativeMaxWords = 1200
)

// Narrative builds the master narrative synthesis prompt.
func Narrative(r NarrativeRequest) string {
	b := r.Brief
	var sb strings.Builder
	sb.WriteString("You are a senior direct-response copywriter. Write one continuous master narrative that will be the single source of truth for every piece of copy on a landing page.\n\n")

	sb.WriteString("PRODUCT BRIEF:\n")
	if name := strings.TrimSpace(b.ProductName); name != "" {
		fmt.Fprintf(&sb, "- Product: %s\n", name)
	}
	if d := strings.TrimSpace(b.Description); d != "" {
		fmt.Fprintf(&sb, "- Description: %s\n", d)
	}
	if o := strings.TrimSpace(b.Offer); o != "" {
		fmt.Fprintf(&sb, "- Offer: %s\n", o)
	}
	writeBullets(&sb, "Key benefits", b.Benefits)
	writeBullets(&sb, "Pain points to resolve", b.PainPoints)
	sb.WriteString("\n")

	writeAudience(&sb, b.Audience)
	writeRegional(&sb, b.Audience)

	sb.WriteString("\nCOVER, IN A NATURAL FLOW:\n")
	sb.WriteString("- The reader's problem and how it feels.\n")
	sb.WriteString("- The product as the answer, with its mechanism explained simply.\n")
	sb.WriteString("- Concrete benefits and the outcomes they lead to.\n")
	sb.WriteString("- Objections and reassurance.\n")
	sb.WriteString("- The offer and a clear reason to act.\n")

	sb.WriteString("\nOUTPUT RULES:\n")
	fmt.Fprintf(&sb, "- Length: %d to %d words.\n", NarrativeMinWords, NarrativeMaxWords)
	sb.WriteString("- Plain prose paragraphs only. No headings, no section titles, no lists.\n")
	sb.WriteString("- No markdown, no HTML, no emojis.\n")
	sb.WriteString("- Do not address these instructions; output only the narrative.\n")
	return sb.String()
}

func writeBullets(sb *strings.Builder, label string, items []string) {
	items = nonEmpty(items...)
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "- %s:\n", label)
	for _, it := range items {
		fmt.Fprintf(sb, "  - %s\n", it)
	}
}

func writeSource(sb *strings.Builder, narrative string) {
	sb.WriteString("SOURCE NARRATIVE (the only source of truth; do not invent facts beyond it):\n\"\"\"\n")
	sb.WriteString(strings.TrimSpace(narrative))
	sb.WriteString("\n\"\"\"\n\n")
}
