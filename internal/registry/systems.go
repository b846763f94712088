package registry

// dndAttributes is the shared table for D&D-like systems that keep hit
// points under attributes.hp.
func dndAttributes() []AttributeSpec {
	return []AttributeSpec{
		{
			Name:            "hp",
			ValuePath:       "attributes.hp.value",
			MinPath:         "attributes.hp.min",
			MaxPath:         "attributes.hp.max",
			OverflowMaxPath: "attributes.hp.tempMax",
		},
		{
			Name:      "temp",
			ValuePath: "attributes.hp.temp",
		},
	}
}

var builtinSystems = map[string][]AttributeSpec{
	"a5e": dndAttributes(),
	"ac2d20": {
		{Name: "fatigue", ValuePath: "fatigue", Invert: true},
		{Name: "fortune", ValuePath: "fortune.value"},
		{Name: "injuries", ValuePath: "injuries.value", Invert: true},
		{Name: "stress", ValuePath: "stress.value", MaxPath: "stress.max", Invert: true},
	},
	"age-of-sigmar-soulbound": {
		{Name: "toughness", ValuePath: "combat.health.toughness.value", MaxPath: "combat.health.toughness.max"},
	},
	"archmage":   dndAttributes(),
	"black-flag": dndAttributes(),
	"CoC7": {
		{Name: "hp", ValuePath: "attribs.hp.value", MaxPath: "attribs.hp.max"},
		{Name: "mp", ValuePath: "attribs.mp.value", MaxPath: "attribs.mp.max"},
		{Name: "lck", ValuePath: "attribs.lck.value", MaxPath: "attribs.lck.max"},
		{Name: "san", ValuePath: "attribs.san.value", MaxPath: "attribs.san.max"},
	},
	"D35E": append(dndAttributes(),
		AttributeSpec{Name: "vigor", ValuePath: "attributes.vigor.value", MinPath: "attributes.vigor.min", MaxPath: "attributes.vigor.max"},
		AttributeSpec{Name: "vigorTemp", ValuePath: "attributes.vigor.temp"},
		AttributeSpec{Name: "wounds", ValuePath: "attributes.wounds.value", MinPath: "attributes.wounds.min", MaxPath: "attributes.wounds.max"},
	),
	"demonlord": {
		{Name: "corruption", ValuePath: "characteristics.corruption.value", MinPath: "characteristics.corruption.min", Invert: true},
		{Name: "damage", ValuePath: "characteristics.health.value", MaxPath: "characteristics.health.max", Invert: true},
		{Name: "insanity", ValuePath: "characteristics.insanity.value", MinPath: "characteristics.insanity.min", MaxPath: "characteristics.insanity.max", Invert: true},
	},
	"dnd5e": dndAttributes(),
	"dragonbane": {
		{Name: "hp", ValuePath: "hitPoints.value", MaxPath: "hitPoints.max"},
	},
	"fallout": {
		{Name: "hp", ValuePath: "health.value", MaxPath: "health.max"},
		{Name: "temp", ValuePath: "health.bonus"},
		{Name: "radiation", ValuePath: "radiation", Invert: true},
	},
	"fantastic-depths": {
		{Name: "hp", ValuePath: "hp.value", MaxPath: "hp.max"},
	},
	"gurps": {
		{Name: "hp", ValuePath: "HP.value", MinPath: "HP.min", MaxPath: "HP.max"},
		{Name: "fp", ValuePath: "FP.value", MinPath: "FP.min", MaxPath: "FP.max"},
	},
	"mosh": {
		{Name: "health", ValuePath: "health.value", MinPath: "health.min", MaxPath: "health.max"},
		{Name: "wounds", ValuePath: "hits.value", MinPath: "hits.min", MaxPath: "hits.max"},
		{Name: "stress", ValuePath: "other.stress.value", MinPath: "other.stress.min", MaxPath: "other.stress.max"},
	},
	"nimble": append(dndAttributes(),
		AttributeSpec{Name: "wounds", ValuePath: "attributes.wounds.value", MaxPath: "attributes.wounds.max", Invert: true},
	),
	"pf1": pf1Attributes(),
	"pf2e": append(dndAttributes(),
		AttributeSpec{Name: "sp", ValuePath: "attributes.sp.value", MaxPath: "attributes.sp.max"},
	),
	"pirateborg": {
		{Name: "hp", ValuePath: "attributes.hp.value", MaxPath: "attributes.hp.max"},
		{Name: "luck", ValuePath: "attributes.luck.value"},
		{Name: "agility", ValuePath: "abilities.agility.value"},
		{Name: "presence", ValuePath: "abilities.presence.value"},
		{Name: "spirit", ValuePath: "abilities.spirit.value"},
		{Name: "strength", ValuePath: "abilities.strength.value"},
		{Name: "toughness", ValuePath: "abilities.toughness.value"},
	},
	"shadowdark": {
		{Name: "hp", ValuePath: "attributes.hp.value", MaxPath: "attributes.hp.max"},
	},
	"shaper": {
		{Name: "hp", ValuePath: "attributes.hp.value", MinPath: "attributes.hp.min", MaxPath: "attributes.hp.max"},
		{Name: "temp", ValuePath: "attributes.hp.temp"},
	},
	"sw5e": dndAttributes(),
	"swade": {
		{Name: "wounds", ValuePath: "wounds.value", MinPath: "wounds.min", MaxPath: "wounds.max", Invert: true},
		{Name: "fatigue", ValuePath: "fatigue.value", MinPath: "fatigue.min", MaxPath: "fatigue.max", Invert: true},
		{Name: "bennies", ValuePath: "bennies.value", MinPath: "bennies.min", MaxPath: "bennies.max"},
	},
	"tormenta20": {
		{Name: "pv", ValuePath: "attributes.pv.value", MinPath: "attributes.pv.min", MaxPath: "attributes.pv.max"},
		{Name: "temp", ValuePath: "attributes.pv.temp"},
	},
	"tresdetv": {
		{Name: "mana", ValuePath: "pontos.mana.value", MaxPath: "pontos.mana.max"},
		{Name: "vida", ValuePath: "pontos.vida.value", MaxPath: "pontos.vida.max"},
	},
	"vaarfeu": dndAttributes(),
	"worldbuilding": {
		{Name: "hp", ValuePath: "health.value", MinPath: "health.min", MaxPath: "health.max"},
	},
}

// pf1Attributes extends the shared hp entry with the offset path that the
// system writes instead of a direct value.
func pf1Attributes() []AttributeSpec {
	attrs := dndAttributes()
	attrs[0].OffsetPath = "attributes.hp.offset"
	return attrs
}
