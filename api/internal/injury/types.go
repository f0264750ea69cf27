package injury

import (
	"strconv"
	"strings"
)

// Category is a fixed injury label. Order of AllCategories is the tie-break order.
type Category string

const (
	Bleeding         Category = "Bleeding"
	CutLaceration    Category = "Cut/Laceration"
	HeadInjury       Category = "Head Injury"
	BurnInjury       Category = "Burn Injury"
	Fracture         Category = "Fracture"
	SprainStrain     Category = "Sprain/Strain"
	EyeInjury        Category = "Eye Injury"
	AllergicReaction Category = "Allergic Reaction"
	MinorWound       Category = "Minor Wound"
)

// AllCategories in enumeration order.
var AllCategories = []Category{
	Bleeding,
	CutLaceration,
	HeadInjury,
	BurnInjury,
	Fracture,
	SprainStrain,
	EyeInjury,
	AllergicReaction,
	MinorWound,
}

// ParseCategory accepts the label itself or a loose alias ("cut", "burn", ...).
func ParseCategory(s string) (Category, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	for _, c := range AllCategories {
		if strings.ToLower(string(c)) == k {
			return c, true
		}
	}
	switch k {
	case "bleed", "blood", "hemorrhage":
		return Bleeding, true
	case "cut", "laceration", "cut_laceration", "cut-laceration":
		return CutLaceration, true
	case "head", "head_injury", "concussion":
		return HeadInjury, true
	case "burn", "burn_injury", "scald":
		return BurnInjury, true
	case "broken", "broken bone":
		return Fracture, true
	case "sprain", "strain", "sprain_strain":
		return SprainStrain, true
	case "eye", "eye_injury":
		return EyeInjury, true
	case "allergy", "allergic", "allergic_reaction":
		return AllergicReaction, true
	case "minor", "minor_wound", "wound", "scrape", "abrasion":
		return MinorWound, true
	}
	return "", false
}

// bloodRelated reports the categories the override leaves alone.
func (c Category) bloodRelated() bool {
	return c == Bleeding || c == CutLaceration
}

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

// ParseSeverity returns "" for anything it does not recognise.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "mild", "minor":
		return SeverityLow
	case "medium", "moderate":
		return SeverityMedium
	case "high", "severe", "critical":
		return SeverityHigh
	}
	return ""
}

func maxSeverity(a, b Severity) Severity {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

type BloodLevel string

const (
	BloodNone     BloodLevel = "none"
	BloodMinimal  BloodLevel = "minimal"
	BloodModerate BloodLevel = "moderate"
	BloodSevere   BloodLevel = "severe"
)

func (b BloodLevel) rank() int {
	switch b {
	case BloodMinimal:
		return 1
	case BloodModerate:
		return 2
	case BloodSevere:
		return 3
	}
	return 0
}

// ParseBloodLevel returns "" for anything it does not recognise.
func ParseBloodLevel(s string) BloodLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "no":
		return BloodNone
	case "minimal", "minor", "low", "light":
		return BloodMinimal
	case "moderate", "medium":
		return BloodModerate
	case "severe", "heavy", "high":
		return BloodSevere
	}
	return ""
}

func maxBlood(a, b BloodLevel) BloodLevel {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Likelihood is the ordinal used by image-safety classifiers.
type Likelihood int

const (
	LikelihoodUnknown Likelihood = iota
	VeryUnlikely
	Unlikely
	Possible
	Likely
	VeryLikely
)

var likelihoodNames = [...]string{"UNKNOWN", "VERY_UNLIKELY", "UNLIKELY", "POSSIBLE", "LIKELY", "VERY_LIKELY"}

func (l Likelihood) String() string {
	if l < 0 || int(l) >= len(likelihoodNames) {
		return "UNKNOWN"
	}
	return likelihoodNames[l]
}

// LikelihoodFromPercent maps a 0-100 score onto the ordinal scale.
func LikelihoodFromPercent(p float64) Likelihood {
	switch {
	case p >= 80:
		return VeryLikely
	case p >= 60:
		return Likely
	case p >= 40:
		return Possible
	case p >= 20:
		return Unlikely
	case p > 0:
		return VeryUnlikely
	}
	return LikelihoodUnknown
}

// ParseLikelihood accepts enum names (any case) or a numeric 0-100 string.
func ParseLikelihood(s string) Likelihood {
	k := strings.ToUpper(strings.TrimSpace(s))
	k = strings.ReplaceAll(k, " ", "_")
	for i, n := range likelihoodNames {
		if n == k {
			return Likelihood(i)
		}
	}
	if f, err := strconv.ParseFloat(k, 64); err == nil {
		return LikelihoodFromPercent(f)
	}
	return LikelihoodUnknown
}

func (l Likelihood) MarshalJSON() ([]byte, error) { return []byte(strconv.Quote(l.String())), nil }

// UnmarshalJSON takes either the enum name or a bare 0-100 number.
func (l *Likelihood) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*l = LikelihoodUnknown
		return nil
	}
	if u, err := strconv.Unquote(s); err == nil {
		s = u
	}
	*l = ParseLikelihood(s)
	return nil
}

// Signal is the evidence bag handed to the scorer. Build it with NewSignal.
type Signal struct {
	Tokens            []string   `json:"tokens"`
	RedDominance      bool       `json:"redDominance"`
	BloodMentionCount int        `json:"bloodMentionCount"`
	HasFace           bool       `json:"hasFace"`
	Violence          Likelihood `json:"violenceLikelihood"`

	// Upstream hints, carried through but never scored.
	Location           string     `json:"location,omitempty"`
	ForeignObjects     bool       `json:"foreignObjects,omitempty"`
	UpstreamSeverity   Severity   `json:"upstreamSeverity,omitempty"`
	UpstreamBloodLevel BloodLevel `json:"upstreamBloodLevel,omitempty"`
}

// NewSignal lowercases and deduplicates tokens and counts blood mentions.
func NewSignal(tokens []string, redDominance bool) Signal {
	norm := NormalizeTokens(tokens)
	return Signal{
		Tokens:            norm,
		RedDominance:      redDominance,
		BloodMentionCount: CountBloodMentions(norm),
	}
}

// NormalizeTokens lowercases, trims and drops empty or repeated tokens, keeping first-seen order.
func NormalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// BloodMentioned reports whether the text evidence talks about blood at all.
func (s Signal) BloodMentioned() bool {
	if s.BloodMentionCount > 0 {
		return true
	}
	for _, t := range s.Tokens {
		if strings.Contains(t, "blood") || strings.Contains(t, "bleed") {
			return true
		}
	}
	return false
}

type CategoryScore struct {
	Category Category `json:"category"`
	Score    float64  `json:"score"`
	Matched  []string `json:"matchedKeywords,omitempty"`
}

// Scores holds one entry per category, in AllCategories order.
type Scores []CategoryScore

// Get returns the entry for c, or a zero score.
func (s Scores) Get(c Category) CategoryScore {
	for _, cs := range s {
		if cs.Category == c {
			return cs
		}
	}
	return CategoryScore{Category: c}
}

type Classification struct {
	InjuryType     Category   `json:"injuryType"`
	Confidence     float64    `json:"confidence"`
	Severity       Severity   `json:"severity"`
	BloodLevel     BloodLevel `json:"bloodLevel"`
	Location       string     `json:"location"`
	ForeignObjects bool       `json:"foreignObjects"`
	Matched        []string   `json:"matchedKeywords,omitempty"`
	Overridden     bool       `json:"overridden,omitempty"`
	FailSafe       bool       `json:"failSafe,omitempty"`
}

type Step struct {
	ID        int    `json:"id"`
	Content   string `json:"content"`
	Important bool   `json:"important,omitempty"`
	Duration  string `json:"duration,omitempty"`
	HasVideo  bool   `json:"hasVideo,omitempty"`
	HasAudio  bool   `json:"hasAudio,omitempty"`
}

type Details struct {
	Severity       Severity   `json:"severity"`
	Location       string     `json:"location"`
	BloodLevel     BloodLevel `json:"bloodLevel"`
	ForeignObjects bool       `json:"foreignObjects"`
}

// Bundle is the response shape rendered by clients.
type Bundle struct {
	InjuryType    Category `json:"injuryType"`
	Probability   float64  `json:"probability"`
	Details       Details  `json:"details"`
	Steps         []Step   `json:"steps"`
	Warning       string   `json:"warning"`
	Note          string   `json:"note"`
	Sources       []string `json:"sources"`
	EstimatedTime string   `json:"estimatedTime"`
}
