package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"pagecopy/internal/types"
)

// RequiredKeysPrefix starts the manifest line of the bulk-map prompt.
const RequiredKeysPrefix = "REQUIRED_KEYS:"

var (
	reHeadingLevel = regexp.MustCompile(`(?i)\b(?:h|heading\s*|level\s*)([1-6])\b`)
	reBlockLabel   = regexp.MustCompile(`(?i)\b(content\s*block|block|section\s*body|card)\b`)
)

// StructuralHint derives a shape rule for a field from its label and type.
func StructuralHint(f types.SlotField) string {
	if m := reHeadingLevel.FindStringSubmatch(f.Label); m != nil {
		n, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("heading level %d: exactly one line", n)
	}
	switch f.SemanticType {
	case types.Headline, types.Subheadline:
		return "heading: exactly one line"
	case types.List:
		return "REQUIRED, multi-line: one list item per line separated by \\n"
	case types.CTA:
		return "call to action: one short line"
	case types.Paragraph:
		if reBlockLabel.MatchString(f.Label) || reBlockLabel.MatchString(f.ID) {
			return "REQUIRED, multi-line content block: 2 to 4 short paragraphs separated by \\n"
		}
		return "paragraph: full multi-sentence text"
	default:
		return "plain text"
	}
}

// BulkMap builds the prompt that maps the narrative onto many slots as one
// flat JSON object.
func BulkMap(r BulkMapRequest) string {
	var sb strings.Builder
	sb.WriteString("You map a master narrative onto the editable slots of a landing page.\n\n")
	writeSource(&sb, r.Narrative)
	fmt.Fprintf(&sb, "TONE: %s\n\n", ToneDirective(r.Audience.Tone))

	sb.WriteString("FIELDS:\n")
	for i, f := range r.Fields {
		fmt.Fprintf(&sb, "%d. \"%s\"", i+1, f.ID)
		if l := strings.TrimSpace(f.Label); l != "" {
			fmt.Fprintf(&sb, " [%s]", l)
		}
		fmt.Fprintf(&sb, " (%s) -> %s", f.SemanticType, StructuralHint(f))
		if f.MaxLength > 0 {
			fmt.Fprintf(&sb, "; max %d characters", f.MaxLength)
		}
		if in := strings.TrimSpace(f.Instructions); in != "" {
			fmt.Fprintf(&sb, "; %s", in)
		}
		sb.WriteString("\n")
	}

	ids := r.Fields.IDs()
	fmt.Fprintf(&sb, "\n%s %s\n", RequiredKeysPrefix, strings.Join(ids, ", "))

	sb.WriteString("\nOUTPUT FORMAT:\n")
	sb.WriteString("- One flat JSON object. Keys are the slot ids above; values are strings.\n")
	sb.WriteString("- Values are plain text only: no HTML tags, no markdown, no bullet characters.\n")
	sb.WriteString("- For multi-line values use \\n inside the JSON string.\n")
	sb.WriteString("- No commentary before or after the JSON.\n")

	sb.WriteString("\nVERIFY BEFORE ANSWERING:\n")
	fmt.Fprintf(&sb, "- The object has exactly %d keys, one per id in %s, spelled exactly.\n", len(ids), strings.TrimSuffix(RequiredKeysPrefix, ":"))
	sb.WriteString("- No id is missing, duplicated or invented.\n")
	sb.WriteString("- No value contains markup.\n")
	return sb.String()
}
