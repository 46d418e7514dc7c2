package prompt

import (
	"fmt"
	"strings"

	"pagecopy/internal/types"
)

var toneDirectives = map[types.Tone]string{
	types.ToneProfessional: "Write with calm authority: precise, credible, free of hype.",
	types.ToneFriendly:     "Write warmly and conversationally, as a helpful friend would speak.",
	types.ToneUrgent:       "Write with momentum and urgency: short sentences, clear stakes, a reason to act now.",
	types.ToneInspiring:    "Write to uplift: paint the better future the reader can step into.",
	types.ToneLuxury:       "Write with understated elegance: refined vocabulary, unhurried rhythm, exclusivity without boasting.",
}

// ToneDirective returns the instruction for tone, defaulting to professional.
func ToneDirective(tone types.Tone) string {
	return toneDirectives[types.NormalizeTone(string(tone))]
}

func writeAudience(sb *strings.Builder, a types.Audience) {
	sb.WriteString("TARGET AUDIENCE:\n")
	line := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(sb, "- %s: %s\n", label, v)
		}
	}
	line("Age range", a.AgeRange)
	line("Gender", a.Gender)
	line("Country", a.Country)
	line("Region", a.Region)
	if strings.TrimSpace(a.AgeRange+a.Gender+a.Country+a.Region) == "" {
		sb.WriteString("- General adult audience\n")
	}
	fmt.Fprintf(sb, "\nTONE: %s\n%s\n", types.NormalizeTone(string(a.Tone)), ToneDirective(a.Tone))
}

// writeRegional adds the psychographic targeting block when a country or
// region is present.
func writeRegional(sb *strings.Builder, a types.Audience) {
	if !a.Regional() {
		return
	}
	place := strings.TrimSpace(strings.Join(nonEmpty(a.Region, a.Country), ", "))
	sb.WriteString("\nREGIONAL TARGETING (PSYCHOGRAPHIC, NOT GEOGRAPHIC):\n")
	fmt.Fprintf(sb, "The audience lives in %s. Adapt to the cultural mindset of that audience:\n", place)
	sb.WriteString("- Match their values, aspirations, everyday concerns and attitude toward buying.\n")
	sb.WriteString("- Choose metaphors, examples and emotional register that feel native to that mindset.\n")
	sb.WriteString("- Adjust formality and directness to what that culture finds persuasive.\n")
	sb.WriteString("STRICTLY PROHIBITED:\n")
	sb.WriteString("- Naming the country, region, cities or any other place.\n")
	sb.WriteString("- Landmarks, local institutions, sports teams or weather references.\n")
	sb.WriteString("- Local slang, dialect spellings or stereotypes.\n")
	sb.WriteString("The reader should feel understood without ever being told where they live.\n")
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
