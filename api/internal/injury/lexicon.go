package injury

import "strings"

type keyword struct {
	Word   string
	Weight float64
}

// Matching is plain substring containment on lowercased tokens: "cut" also hits
// "execute". Changing that changes classifications, so it stays.
var lexicon = map[Category][]keyword{
	Bleeding: {
		{"blood", 3},
		{"bleed", 3},
		{"hemorrhage", 3},
		{"haemorrhage", 3},
		{"gore", 2},
		{"puncture", 1.5},
		{"open wound", 2},
	},
	CutLaceration: {
		{"cut", 2.5},
		{"laceration", 3},
		{"gash", 2.5},
		{"slash", 2},
		{"incision", 2},
		{"knife", 1.5},
		{"blade", 1.5},
		{"sliced", 2},
	},
	HeadInjury: {
		{"head", 2},
		{"concussion", 3},
		{"skull", 2.5},
		{"scalp", 2},
		{"dizz", 1.5},
		{"unconscious", 2.5},
		{"forehead", 1},
	},
	BurnInjury: {
		{"burn", 3},
		{"scald", 3},
		{"blister", 2},
		{"fire", 1.5},
		{"flame", 1.5},
		{"char", 1.5},
		{"heat", 1},
		{"sunburn", 1},
	},
	Fracture: {
		{"fracture", 3},
		{"broken", 3},
		{"bone", 2},
		{"deform", 2},
		{"crack", 1.5},
		{"cast", 1},
		{"x-ray", 1},
	},
	SprainStrain: {
		{"sprain", 3},
		{"strain", 3},
		{"twist", 2},
		{"ankle", 1.5},
		{"swelling", 1.5},
		{"swollen", 1.5},
		{"wrist", 1},
		{"ligament", 2},
	},
	EyeInjury: {
		{"eye", 3},
		{"cornea", 3},
		{"pupil", 2},
		{"eyelid", 1.5},
		{"vision", 1.5},
	},
	AllergicReaction: {
		{"allerg", 3},
		{"rash", 2.5},
		{"hives", 2.5},
		{"itch", 1.5},
		{"sting", 1.5},
		{"anaphyla", 3},
		{"welt", 1.5},
	},
	MinorWound: {
		{"scrape", 2},
		{"abrasion", 2.5},
		{"graze", 2},
		{"scratch", 2},
		{"bruise", 1.5},
		{"minor", 1},
	},
}

// Context boosts.
const (
	redDominanceBoost = 3.0
	bloodMentionBoost = 1.5
	violenceBoost     = 2.0
	faceBoost         = 1.5

	// RedPixelThreshold is the share of blood-like pixels that counts as red dominance.
	RedPixelThreshold = 0.05
)

var bloodVocabulary = []string{"blood", "bleed", "hemorrhage", "haemorrhage", "gore"}

// CountBloodMentions counts tokens containing any blood vocabulary word.
func CountBloodMentions(tokens []string) int {
	n := 0
	for _, t := range tokens {
		t = strings.ToLower(t)
		for _, w := range bloodVocabulary {
			if strings.Contains(t, w) {
				n++
				break
			}
		}
	}
	return n
}

// Checked in order; the first hit wins.
var bodyParts = []struct {
	Word  string
	Label string
}{
	{"forehead", "Forehead"},
	{"scalp", "Scalp"},
	{"head", "Head"},
	{"face", "Face"},
	{"eye", "Eye"},
	{"neck", "Neck"},
	{"chest", "Chest"},
	{"abdomen", "Abdomen"},
	{"back", "Back"},
	{"shoulder", "Shoulder"},
	{"elbow", "Elbow"},
	{"forearm", "Forearm"},
	{"arm", "Arm"},
	{"wrist", "Wrist"},
	{"finger", "Finger"},
	{"thumb", "Thumb"},
	{"hand", "Hand"},
	{"hip", "Hip"},
	{"thigh", "Thigh"},
	{"knee", "Knee"},
	{"shin", "Shin"},
	{"ankle", "Ankle"},
	{"heel", "Heel"},
	{"toe", "Toe"},
	{"foot", "Foot"},
	{"leg", "Leg"},
}

// LocationUndetermined is reported when nothing names a body part.
const LocationUndetermined = "Undetermined"

// GuessLocation returns the first body part named by the tokens.
func GuessLocation(tokens []string) string {
	for _, bp := range bodyParts {
		for _, t := range tokens {
			if strings.Contains(t, bp.Word) {
				return bp.Label
			}
		}
	}
	return ""
}

var foreignObjectWords = []string{"glass", "splinter", "shard", "debris", "gravel", "metal", "nail", "thorn", "foreign object", "embedded"}

// MentionsForeignObject reports whether any token names an embedded object.
func MentionsForeignObject(tokens []string) bool {
	for _, t := range tokens {
		for _, w := range foreignObjectWords {
			if strings.Contains(t, w) {
				return true
			}
		}
	}
	return false
}
