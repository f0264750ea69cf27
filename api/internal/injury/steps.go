package injury

// Step text is fixed content; edit it as content, not as logic.
var stepTables = map[Category][]Step{
	Bleeding: {
		{Content: "Apply firm, direct pressure to the wound with a clean cloth or sterile gauze.", Important: true, Duration: "10-15 min", HasVideo: true},
		{Content: "If possible, raise the injured area above the level of the heart while keeping pressure on it."},
		{Content: "Do not remove the cloth if blood soaks through. Add more layers on top and keep pressing.", Important: true},
		{Content: "Once bleeding slows, secure the dressing firmly with a bandage without cutting off circulation.", HasVideo: true},
		{Content: "Keep the person warm and lying down, and watch for pale skin, confusion or rapid breathing.", Important: true},
		{Content: "Call emergency services if bleeding does not stop after 15 minutes or is spurting.", Important: true, HasAudio: true},
	},
	CutLaceration: {
		{Content: "Wash your hands and put on gloves if available before touching the wound."},
		{Content: "Apply gentle pressure with a clean cloth until the bleeding stops.", Important: true, Duration: "5-10 min"},
		{Content: "Rinse the cut under clean running water and remove visible dirt. Do not scrub deep tissue.", Duration: "5 min", HasVideo: true},
		{Content: "Apply a thin layer of antibiotic ointment if available."},
		{Content: "Close small cuts with adhesive strips and cover with a sterile bandage.", HasVideo: true},
		{Content: "Seek medical care if the cut is deep, gaping, longer than 2 cm, or on the face or a joint.", Important: true},
	},
	HeadInjury: {
		{Content: "Keep the person still and do not move their neck if a spinal injury is possible.", Important: true},
		{Content: "Check responsiveness and breathing. Call emergency services if they are unconscious or confused.", Important: true, HasAudio: true},
		{Content: "Control any scalp bleeding with gentle pressure from a clean cloth. Do not press on a suspected skull fracture."},
		{Content: "Apply a cold pack wrapped in cloth to swelling.", Duration: "15-20 min"},
		{Content: "Watch for vomiting, severe headache, unequal pupils or drowsiness over the next 24 hours.", Important: true, Duration: "24 hours"},
	},
	BurnInjury: {
		{Content: "Remove the source of the burn and move the person away from heat, chemicals or electricity.", Important: true},
		{Content: "Cool the burn under cool (not cold) running water.", Important: true, Duration: "20 min", HasVideo: true},
		{Content: "Remove rings, watches or tight clothing near the burn before swelling starts. Leave stuck clothing in place."},
		{Content: "Cover loosely with cling film or a sterile, non-fluffy dressing. Do not apply ice, butter or creams."},
		{Content: "Seek medical care for burns larger than the person's palm, or on the face, hands, feet or genitals.", Important: true},
	},
	Fracture: {
		{Content: "Do not try to straighten the limb or push a protruding bone back in.", Important: true},
		{Content: "Immobilize the injured area in the position found, using a splint or padding.", Important: true, HasVideo: true},
		{Content: "Control any bleeding with pressure around, not on, the wound."},
		{Content: "Apply a cold pack wrapped in cloth to reduce swelling.", Duration: "15-20 min"},
		{Content: "Check circulation beyond the injury: colour, warmth and feeling in fingers or toes."},
		{Content: "Get medical help. Call emergency services for open fractures or injuries to the hip, pelvis or thigh.", Important: true, HasAudio: true},
	},
	SprainStrain: {
		{Content: "Rest the injured joint and avoid putting weight on it.", Important: true},
		{Content: "Apply ice wrapped in a cloth to the area.", Duration: "15-20 min", HasVideo: true},
		{Content: "Compress with an elastic bandage, snug but not tight enough to cause numbness.", HasVideo: true},
		{Content: "Elevate the injured area above the level of the heart when possible."},
		{Content: "Seek medical care if you cannot bear weight or pain and swelling do not improve within 48 hours.", Important: true, Duration: "48 hours"},
	},
	EyeInjury: {
		{Content: "Do not rub the eye or apply pressure to it.", Important: true},
		{Content: "For chemicals or small particles, flush the eye with clean water or saline.", Important: true, Duration: "15 min", HasVideo: true},
		{Content: "Do not try to remove an object stuck in the eye. Shield it with a paper cup taped in place.", Important: true},
		{Content: "Cover both eyes lightly to limit eye movement."},
		{Content: "Seek emergency eye care immediately.", Important: true, HasAudio: true},
	},
	AllergicReaction: {
		{Content: "Check for trouble breathing, swelling of the lips or tongue, or dizziness.", Important: true},
		{Content: "If the person has an epinephrine auto-injector, help them use it and call emergency services.", Important: true, HasVideo: true, HasAudio: true},
		{Content: "Remove the trigger if you can, such as a stinger scraped out sideways."},
		{Content: "Help the person sit up if breathing is hard, or lie down with legs raised if they feel faint."},
		{Content: "For a mild skin reaction, apply a cool compress and consider an oral antihistamine.", Duration: "10 min"},
		{Content: "Monitor closely. A second reaction can occur hours later.", Important: true, Duration: "4-6 hours"},
	},
}

// GenerateSteps returns the fixed instruction list for a category. Categories
// without their own table, including unknown ones, get the generic list.
func GenerateSteps(c Category, sev Severity) []Step {
	if tbl, ok := stepTables[c]; ok {
		return number(tbl)
	}
	return genericSteps(sev)
}

func genericSteps(sev Severity) []Step {
	return number([]Step{
		{Content: "Assess the injury and make sure the area is safe. Wash your hands before giving care.", Important: true},
		{Content: "Clean the wound gently with clean water and remove visible dirt.", Duration: "2-5 min", HasVideo: true},
		{Content: "Treat the wound: stop any minor bleeding with light pressure and apply antiseptic.", Important: sev == SeverityHigh || sev == SeverityMedium},
		{Content: "Cover with a clean bandage or sterile dressing."},
		{Content: "Monitor for redness, warmth, swelling or pus and seek care if they appear.", Duration: "24-48 hours"},
	})
}

func number(tbl []Step) []Step {
	out := make([]Step, len(tbl))
	for i, s := range tbl {
		s.ID = i + 1
		out[i] = s
	}
	return out
}
