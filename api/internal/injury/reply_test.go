package injury

import (
	"image"
	"image/color"
	"testing"
)

func TestParseReply_Structured(t *testing.T) {
	raw := "```json\n" + `{
  "injuryType": "Sprain",
  "severity": "medium",
  "location": "left ankle",
  "bloodLevel": "none",
  "confidence": 0.8,
  "description": "Swollen ankle after a twist",
  "detectionDetails": {
    "detectedObjects": ["ankle", "foot"],
    "detectedColors": ["skin tone", {"red": 200, "green": 150, "blue": 130, "pixelFraction": 0.4}],
    "foreignObjects": false,
    "faceDetected": false,
    "violenceLikelihood": "VERY_UNLIKELY"
  }
}` + "\n```"

	ps := ParseReply(raw)
	sr, ok := ps.(StructuredReply)
	if !ok {
		t.Fatalf("expected StructuredReply, got %T", ps)
	}
	sig := sr.Signal()
	if sig.RedDominance {
		t.Fatalf("skin tone must not count as red")
	}
	if sig.Location != "left ankle" {
		t.Fatalf("unexpected location %q", sig.Location)
	}
	if sig.UpstreamSeverity != SeverityMedium {
		t.Fatalf("unexpected severity %q", sig.UpstreamSeverity)
	}
	if sig.Violence != VeryUnlikely {
		t.Fatalf("unexpected violence %s", sig.Violence)
	}
	cl := Classify(sig)
	if cl.InjuryType != SprainStrain {
		t.Fatalf("expected Sprain/Strain, got %s", cl.InjuryType)
	}
	if cl.Location != "left ankle" {
		t.Fatalf("expected upstream location, got %q", cl.Location)
	}
}

func TestParseReply_StructuredRedColors(t *testing.T) {
	raw := `{"injuryType":"abrasion","detectionDetails":{"detectedColors":[
		{"red": 180, "green": 20, "blue": 30, "pixelFraction": 0.04},
		{"red": 150, "green": 10, "blue": 10, "pixelFraction": 0.03}]}}`
	sig := ParseReply(raw).Signal()
	if !sig.RedDominance {
		t.Fatalf("7%% blood-red pixels must count as red dominance")
	}

	raw = `{"injuryType":"abrasion","detectionDetails":{"detectedColors":["dark red"]}}`
	if !ParseReply(raw).Signal().RedDominance {
		t.Fatalf("named red colour must count as red dominance")
	}
}

func TestParseReply_MistypedFieldsStayStructured(t *testing.T) {
	raw := `{"injuryType":"Burn Injury","severity":"medium","location":"forearm",
		"bloodLevel":"none","confidence":"0.9","description":"red blistered skin after touching a stove",
		"detectionDetails":{"detectedObjects":["arm"],"foreignObjects":"no","faceDetected":0,
		"violenceLikelihood":10}}`
	ps := ParseReply(raw)
	sr, ok := ps.(StructuredReply)
	if !ok {
		t.Fatalf("expected StructuredReply, got %T", ps)
	}
	if !almostEqual(sr.Confidence, 0.9) {
		t.Fatalf("string confidence not coerced: %v", sr.Confidence)
	}
	cl := Classify(sr.Signal())
	if cl.InjuryType != BurnInjury || cl.Severity != SeverityMedium || cl.BloodLevel != BloodNone {
		t.Fatalf("expected Burn Injury/medium/none, got %s/%s/%s", cl.InjuryType, cl.Severity, cl.BloodLevel)
	}
	if cl.Overridden {
		t.Fatalf("override must not fire on a reply without blood")
	}
}

const sprainReply = `{"injuryType":"Sprain","severity":"low","location":"left ankle","bloodLevel":"none",
	"confidence":0.8,"description":"swollen ankle after a twist",
	"detectionDetails":{"detectedObjects":[{"name":"ankle","score":0.93},{"name":"swelling","score":0.7}],
	"detectedColors":[{"color":{"red":210,"green":170,"blue":150},"pixelFraction":0.6}]}}`

func TestParseReply_ObjectValuedDetections(t *testing.T) {
	sr, ok := ParseReply(sprainReply).(StructuredReply)
	if !ok {
		t.Fatalf("expected StructuredReply")
	}
	objs := sr.DetectionDetails.DetectedObjects
	if len(objs) != 2 || objs[0] != "ankle" || objs[1] != "swelling" {
		t.Fatalf("object names not extracted: %v", objs)
	}
	sig := sr.Signal()
	if sig.RedDominance || sig.BloodMentionCount != 0 {
		t.Fatalf("no blood evidence expected, got red=%v mentions=%d", sig.RedDominance, sig.BloodMentionCount)
	}
	cl := Classify(sig)
	if cl.InjuryType != SprainStrain || cl.Severity != SeverityLow || cl.Overridden {
		t.Fatalf("expected plain Sprain/Strain low, got %+v", cl)
	}
}

func TestParseReply_JSONInsideProse(t *testing.T) {
	raw := "Here is the result: " + sprainReply + "\nLet me know if you need more."
	ps := ParseReply(raw)
	if _, ok := ps.(StructuredReply); !ok {
		t.Fatalf("expected StructuredReply, got %T", ps)
	}
	if cl := Classify(ps.Signal()); cl.InjuryType != SprainStrain || cl.Severity != SeverityLow {
		t.Fatalf("expected Sprain/Strain low, got %s/%s", cl.InjuryType, cl.Severity)
	}
}

func TestFreeTextReply_IgnoresJSONKeys(t *testing.T) {
	// Truncated JSON is free text, but its keys are not evidence.
	ps := ParseReply(`{"injuryType": "Sprain", "bloodLevel": "none", "severity": `)
	if _, ok := ps.(FreeTextReply); !ok {
		t.Fatalf("expected FreeTextReply, got %T", ps)
	}
	sig := ps.Signal()
	if sig.BloodMentionCount != 0 {
		t.Fatalf("key name counted as blood mention: %v", sig.Tokens)
	}
	if cl := Classify(sig); cl.InjuryType != SprainStrain || cl.Overridden {
		t.Fatalf("expected Sprain/Strain, got %+v", cl)
	}
}

func TestParseReply_FreeText(t *testing.T) {
	ps := ParseReply("I think this is a gash on the hand; it looks deep.")
	ft, ok := ps.(FreeTextReply)
	if !ok {
		t.Fatalf("expected FreeTextReply, got %T", ps)
	}
	cl := Classify(ft.Signal())
	if cl.InjuryType != CutLaceration {
		t.Fatalf("expected Cut/Laceration, got %s", cl.InjuryType)
	}
	if cl.Location != "Hand" {
		t.Fatalf("expected Hand, got %q", cl.Location)
	}
}

func TestParseReply_BrokenJSONFallsBackToText(t *testing.T) {
	ps := ParseReply(`{"injuryType": "Burn", "severity": `)
	if _, ok := ps.(FreeTextReply); !ok {
		t.Fatalf("expected FreeTextReply, got %T", ps)
	}
	if got := Classify(ps.Signal()).InjuryType; got != BurnInjury {
		t.Fatalf("expected Burn Injury, got %s", got)
	}
}

func TestParseReply_NoEvidenceIsMinorWound(t *testing.T) {
	cl := Classify(ParseReply("Sorry, I cannot tell what is in this picture").Signal())
	if cl.InjuryType != MinorWound || !almostEqual(cl.Confidence, 0.6) {
		t.Fatalf("expected Minor Wound 0.6, got %s %v", cl.InjuryType, cl.Confidence)
	}
}

func TestParseFreeText_Priority(t *testing.T) {
	cases := []struct {
		text string
		want Category
		ok   bool
	}{
		{"burn with some bleeding", Bleeding, true},
		{"a laceration near a burn", CutLaceration, true},
		{"scalded forearm", BurnInjury, true},
		{"broken wrist", Fracture, true},
		{"ankle strain", SprainStrain, true},
		{"nothing obvious", Bleeding, false},
	}
	for _, tc := range cases {
		got, ok := ParseFreeText(tc.text)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%q: got %s/%v want %s/%v", tc.text, got, ok, tc.want, tc.ok)
		}
	}
}

func TestRedDominance(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 220, G: 190, B: 170, A: 255})
		}
	}
	if red, _ := RedDominance(img); red {
		t.Fatalf("skin-coloured image must not be red dominant")
	}
	// 10 rows of 100 = 10%
	for y := 0; y < 10; y++ {
		for x := 0; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 160, G: 20, B: 20, A: 255})
		}
	}
	red, share := RedDominance(img)
	if !red {
		t.Fatalf("expected red dominance, share %v", share)
	}
	if !almostEqual(share, 0.10) {
		t.Fatalf("expected share 0.10, got %v", share)
	}
}

func TestDecodeRedDominance_BadBytes(t *testing.T) {
	if _, _, err := DecodeRedDominance([]byte("not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{
		"Burn Injury":    BurnInjury,
		"cut/laceration": CutLaceration,
		"sprain":         SprainStrain,
		" eye ":          EyeInjury,
	} {
		got, ok := ParseCategory(in)
		if !ok || got != want {
			t.Fatalf("%q: got %s/%v", in, got, ok)
		}
	}
	if _, ok := ParseCategory("frostbite"); ok {
		t.Fatalf("unexpected match")
	}
}
