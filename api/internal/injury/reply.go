package injury

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"first-aid/api/internal/util"
)

// ParsedSignal is what a model reply turned out to be: StructuredReply or FreeTextReply.
type ParsedSignal interface {
	Signal() Signal
	isParsedSignal()
}

// StructuredReply mirrors the JSON the vision prompt asks for.
type StructuredReply struct {
	InjuryType       string           `json:"injuryType"`
	Severity         string           `json:"severity"`
	Location         string           `json:"location"`
	BloodLevel       string           `json:"bloodLevel"`
	Confidence       float64          `json:"confidence"`
	Description      string           `json:"description"`
	DetectionDetails DetectionDetails `json:"detectionDetails"`
}

type DetectionDetails struct {
	DetectedObjects    []string     `json:"detectedObjects"`
	DetectedColors     []ColorEntry `json:"detectedColors"`
	Labels             []string     `json:"labels"`
	ForeignObjects     bool         `json:"foreignObjects"`
	FaceDetected       bool         `json:"faceDetected"`
	ViolenceLikelihood Likelihood   `json:"violenceLikelihood"`
}

// ColorEntry is either a colour name ("dark red") or an RGB sample with pixel share.
type ColorEntry struct {
	Name          string  `json:"name,omitempty"`
	Red           float64 `json:"red"`
	Green         float64 `json:"green"`
	Blue          float64 `json:"blue"`
	PixelFraction float64 `json:"pixelFraction"`
	Score         float64 `json:"score,omitempty"`
	hasRGB        bool
}

func (c *ColorEntry) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = colorFromAny(v)
	return nil
}

// UnmarshalJSON accepts any JSON object. Fields of the wrong type are coerced
// where possible and left zero otherwise.
func (r *StructuredReply) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*r = structuredFromMap(m)
	return nil
}

func structuredFromMap(m map[string]any) StructuredReply {
	d, _ := m["detectionDetails"].(map[string]any)
	r := StructuredReply{
		InjuryType:  anyString(m["injuryType"]),
		Severity:    anyString(m["severity"]),
		Location:    anyString(m["location"]),
		BloodLevel:  anyString(m["bloodLevel"]),
		Confidence:  anyFloat(m["confidence"]),
		Description: anyString(m["description"]),
		DetectionDetails: DetectionDetails{
			DetectedObjects:    anyStrings(d["detectedObjects"]),
			Labels:             anyStrings(d["labels"]),
			ForeignObjects:     anyBool(d["foreignObjects"]),
			FaceDetected:       anyBool(d["faceDetected"]),
			ViolenceLikelihood: anyLikelihood(d["violenceLikelihood"]),
		},
	}
	if cs, ok := d["detectedColors"].([]any); ok {
		for _, c := range cs {
			r.DetectionDetails.DetectedColors = append(r.DetectionDetails.DetectedColors, colorFromAny(c))
		}
	}
	return r
}

func colorFromAny(v any) ColorEntry {
	switch x := v.(type) {
	case string:
		return ColorEntry{Name: x}
	case map[string]any:
		c := ColorEntry{
			Name:          anyString(x["name"]),
			PixelFraction: anyFloat(x["pixelFraction"]),
			Score:         anyFloat(x["score"]),
		}
		rgb := x
		// Vision API shape: {"color": {"red": .., ...}, "pixelFraction": ..}
		if inner, ok := x["color"].(map[string]any); ok {
			rgb = inner
		}
		_, hasR := rgb["red"]
		_, hasG := rgb["green"]
		_, hasB := rgb["blue"]
		if hasR || hasG || hasB {
			c.Red, c.Green, c.Blue = anyFloat(rgb["red"]), anyFloat(rgb["green"]), anyFloat(rgb["blue"])
			c.hasRGB = true
		} else if c.Name == "" {
			c.Name = anyString(x["color"])
		}
		return c
	}
	return ColorEntry{}
}

// anyString reads a scalar as text. Objects yield their name, label or description.
func anyString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any:
		for _, k := range []string{"name", "label", "description", "value"} {
			if s, ok := x[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func anyStrings(v any) []string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil
		}
		return []string{x}
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s := anyString(e); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func anyFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		s := strings.TrimSpace(x)
		pct := strings.HasSuffix(s, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0
		}
		if pct {
			f /= 100
		}
		return f
	}
	return 0
}

func anyBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "1":
			return true
		}
	}
	return false
}

func anyLikelihood(v any) Likelihood {
	switch x := v.(type) {
	case string:
		return ParseLikelihood(x)
	case float64:
		return LikelihoodFromPercent(x)
	}
	return LikelihoodUnknown
}

func (StructuredReply) isParsedSignal() {}

// Signal flattens the reply into tokens and flags.
func (r StructuredReply) Signal() Signal {
	d := r.DetectionDetails
	tokens := []string{r.InjuryType, r.Description, r.Location}
	tokens = append(tokens, d.DetectedObjects...)
	tokens = append(tokens, d.Labels...)

	red := false
	var redShare float64
	for _, c := range d.DetectedColors {
		if c.Name != "" {
			tokens = append(tokens, c.Name)
		}
		if c.hasRGB && IsBloodRed(c.Red, c.Green, c.Blue) {
			share := c.PixelFraction
			if share == 0 {
				share = c.Score
			}
			redShare += share
		} else if !c.hasRGB && isBloodColorName(c.Name) {
			red = true
		}
	}
	if redShare > RedPixelThreshold {
		red = true
	}

	sig := NewSignal(tokens, red)
	sig.HasFace = d.FaceDetected
	sig.Violence = d.ViolenceLikelihood
	sig.Location = normalizeLocation(r.Location)
	sig.ForeignObjects = d.ForeignObjects
	sig.UpstreamSeverity = ParseSeverity(r.Severity)
	sig.UpstreamBloodLevel = ParseBloodLevel(r.BloodLevel)
	return sig
}

// FreeTextReply is a reply that was not valid JSON.
type FreeTextReply struct {
	Text string
}

func (FreeTextReply) isParsedSignal() {}

func (r FreeTextReply) Signal() Signal {
	text := jsonKey.ReplaceAllString(r.Text, " ")
	tokens := splitSentences(text)
	if c, ok := ParseFreeText(text); ok {
		tokens = append(tokens, string(c))
	}
	return NewSignal(tokens, false)
}

// jsonKey matches object keys left in truncated JSON; "bloodLevel" must not
// count as a blood mention.
var jsonKey = regexp.MustCompile(`"[A-Za-z_][A-Za-z0-9_]*"\s*:`)

// ParseReply decides which variant a raw model reply is. Any syntactically
// valid JSON object, bare, fenced or wrapped in prose, is structured.
func ParseReply(raw string) ParsedSignal {
	if obj, ok := jsonObject(util.StripCodeFences(raw)); ok {
		var sr StructuredReply
		if err := json.Unmarshal([]byte(obj), &sr); err == nil {
			return sr
		}
	}
	return FreeTextReply{Text: raw}
}

// jsonObject returns the outermost {...} span when it is valid JSON.
func jsonObject(txt string) (string, bool) {
	start := strings.IndexByte(txt, '{')
	end := strings.LastIndexByte(txt, '}')
	if start < 0 || end <= start {
		return "", false
	}
	obj := txt[start : end+1]
	return obj, json.Valid([]byte(obj))
}

var freeTextPatterns = []struct {
	re  *regexp.Regexp
	cat Category
}{
	{regexp.MustCompile(`(?i)bleed|blood|hemorrhage`), Bleeding},
	{regexp.MustCompile(`(?i)cut|laceration|gash`), CutLaceration},
	{regexp.MustCompile(`(?i)burn|scald`), BurnInjury},
	{regexp.MustCompile(`(?i)fracture|broken`), Fracture},
	{regexp.MustCompile(`(?i)sprain|strain`), SprainStrain},
}

// ParseFreeText applies the priority-ordered patterns. With no match it
// still names Bleeding, but reports ok=false.
func ParseFreeText(text string) (Category, bool) {
	for _, p := range freeTextPatterns {
		if p.re.MatchString(text) {
			return p.cat, true
		}
	}
	return Bleeding, false
}

var sentenceSplit = regexp.MustCompile(`[.!?;\n]+`)

func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeLocation(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "unknown", "undetermined", "n/a", "none":
		return ""
	}
	return s
}
