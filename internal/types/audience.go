package types

import "strings"

// Tone is one of a fixed vocabulary of voice directives.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneUrgent       Tone = "urgent"
	ToneInspiring    Tone = "inspiring"
	ToneLuxury       Tone = "luxury"
)

// Tones lists the accepted vocabulary in a stable order.
var Tones = []Tone{ToneProfessional, ToneFriendly, ToneUrgent, ToneInspiring, ToneLuxury}

// NormalizeTone maps free input onto the vocabulary, defaulting to professional.
func NormalizeTone(s string) Tone {
	t := Tone(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Tones {
		if t == known {
			return t
		}
	}
	return ToneProfessional
}

// Audience describes who the copy is for.
type Audience struct {
	AgeRange string `json:"ageRange,omitempty" yaml:"ageRange,omitempty"`
	Gender   string `json:"gender,omitempty" yaml:"gender,omitempty"`
	Country  string `json:"country,omitempty" yaml:"country,omitempty"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Tone     Tone   `json:"tone,omitempty" yaml:"tone,omitempty"`
}

// Regional reports whether a country or region target is present.
func (a Audience) Regional() bool {
	return strings.TrimSpace(a.Country) != "" || strings.TrimSpace(a.Region) != ""
}

// Brief is the product description a narrative is synthesized from.
type Brief struct {
	ProductName string   `json:"productName" yaml:"productName"`
	Description string   `json:"description" yaml:"description"`
	Offer       string   `json:"offer,omitempty" yaml:"offer,omitempty"`
	Benefits    []string `json:"benefits,omitempty" yaml:"benefits,omitempty"`
	PainPoints  []string `json:"painPoints,omitempty" yaml:"painPoints,omitempty"`
	Audience    Audience `json:"audience" yaml:"audience"`
}
