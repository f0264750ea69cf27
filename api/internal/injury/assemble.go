package injury

const (
	warningHigh   = "Seek immediate medical attention!"
	warningMedium = "Consult with a healthcare professional as soon as possible."
	warningLow    = "Monitor the condition and seek medical attention if symptoms worsen."

	bundleNote = "This guidance is generated automatically from a photo and is not a medical diagnosis. If in doubt, contact a healthcare professional or emergency services."

	// TODO: derive from step durations once product decides what the field means; clients read it verbatim today.
	estimatedTime = "5-10 minutes"
)

var bundleSources = []string{
	"American Red Cross First Aid/CPR/AED Participant's Manual",
	"St John Ambulance First Aid Guide",
	"Mayo Clinic First Aid",
}

// Warning is derived from severity alone.
func Warning(sev Severity) string {
	switch sev {
	case SeverityHigh:
		return warningHigh
	case SeverityMedium:
		return warningMedium
	default:
		return warningLow
	}
}

// Assemble packs a classification and its steps into the response bundle.
func Assemble(cl Classification, steps []Step) Bundle {
	if steps == nil {
		steps = []Step{}
	}
	return Bundle{
		InjuryType:  cl.InjuryType,
		Probability: cl.Confidence,
		Details: Details{
			Severity:       cl.Severity,
			Location:       cl.Location,
			BloodLevel:     cl.BloodLevel,
			ForeignObjects: cl.ForeignObjects,
		},
		Steps:         steps,
		Warning:       Warning(cl.Severity),
		Note:          bundleNote,
		Sources:       append([]string(nil), bundleSources...),
		EstimatedTime: estimatedTime,
	}
}

// Instructions runs the whole deterministic chain for a signal.
func Instructions(sig Signal) (Classification, Bundle) {
	cl := Classify(sig)
	return cl, Assemble(cl, GenerateSteps(cl.InjuryType, cl.Severity))
}
