package injury

import "math"

const (
	zeroEvidenceConfidence = 0.6
	baseConfidence         = 0.6
	confidencePerPoint     = 0.04
	maxConfidence          = 0.99
	overrideConfidence     = 0.85
	failSafeConfidence     = 0.7
)

var defaultSeverity = map[Category]Severity{
	Bleeding:         SeverityHigh,
	CutLaceration:    SeverityMedium,
	HeadInjury:       SeverityHigh,
	BurnInjury:       SeverityMedium,
	Fracture:         SeverityHigh,
	SprainStrain:     SeverityLow,
	EyeInjury:        SeverityMedium,
	AllergicReaction: SeverityMedium,
	MinorWound:       SeverityLow,
}

// Classify scores the signal and applies the decision rule.
func Classify(sig Signal) Classification {
	return Decide(sig, Score(sig))
}

// Decide turns precomputed scores into a classification.
// The blood override always runs last, so the result never reports blood
// for a category other than Bleeding or Cut/Laceration.
func Decide(sig Signal, scores Scores) Classification {
	best := scores.Best()

	var cl Classification
	if best.Score <= 0 {
		cl = Classification{
			InjuryType: MinorWound,
			Confidence: zeroEvidenceConfidence,
		}
	} else {
		cl = Classification{
			InjuryType: best.Category,
			Confidence: confidenceFor(best.Score),
			Matched:    append([]string(nil), best.Matched...),
		}
	}

	cl.BloodLevel = maxBlood(bloodFromMentions(sig.BloodMentionCount), sig.UpstreamBloodLevel)
	if sig.RedDominance && cl.BloodLevel.rank() == 0 {
		cl.BloodLevel = BloodMinimal
	}

	cl.Severity = maxSeverity(defaultSeverity[cl.InjuryType], sig.UpstreamSeverity)
	if cl.Severity == "" {
		cl.Severity = SeverityLow
	}
	if cl.BloodLevel == BloodSevere {
		cl.Severity = SeverityHigh
	}

	cl.Location = sig.Location
	if cl.Location == "" {
		cl.Location = GuessLocation(sig.Tokens)
	}
	if cl.Location == "" {
		cl.Location = LocationUndetermined
	}
	cl.ForeignObjects = sig.ForeignObjects || MentionsForeignObject(sig.Tokens)

	return ApplyBloodOverride(cl, sig)
}

// ApplyBloodOverride forces a Bleeding verdict when there is blood-like
// evidence but the winner is not blood related. Idempotent.
func ApplyBloodOverride(cl Classification, sig Signal) Classification {
	if cl.BloodLevel == "" {
		cl.BloodLevel = BloodNone
	}
	bloodEvidence := sig.RedDominance || sig.BloodMentioned() || cl.BloodLevel.rank() > 0
	if !bloodEvidence || cl.InjuryType.bloodRelated() {
		return cl
	}
	cl.InjuryType = Bleeding
	cl.BloodLevel = maxBlood(cl.BloodLevel, BloodModerate)
	cl.Severity = SeverityHigh
	cl.Confidence = math.Max(cl.Confidence, overrideConfidence)
	cl.Overridden = true
	return cl
}

// FailSafe is used when the upstream model could not be reached:
// escalate rather than show nothing.
func FailSafe() Classification {
	return Classification{
		InjuryType: Bleeding,
		Confidence: failSafeConfidence,
		Severity:   SeverityHigh,
		BloodLevel: BloodModerate,
		Location:   LocationUndetermined,
		FailSafe:   true,
	}
}

func confidenceFor(score float64) float64 {
	return math.Min(baseConfidence+confidencePerPoint*score, maxConfidence)
}

func bloodFromMentions(n int) BloodLevel {
	switch {
	case n >= 3:
		return BloodSevere
	case n >= 1:
		return BloodModerate
	}
	return BloodNone
}
