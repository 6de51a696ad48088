package casestudy

import "github.com/PabloGalante/deltawind/internal/domain"

// PERTFormula is shown in the reference panel.
const PERTFormula = "Expected = (O + 4M + P) / 6"

// Constraint is a labelled hard limit of the case.
type Constraint struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Reference is the material shown next to the transcript for one phase.
type Reference struct {
	Phase        domain.Phase `json:"phase"`
	Objectives   []string     `json:"objectives"`
	Constraints  []Constraint `json:"constraints"`
	Reminders    []string     `json:"reminders"`
	PERTFormula  string       `json:"pert_formula"`
	CrashOptions []string     `json:"crash_options"`
	Dependencies []string     `json:"dependencies"`
}

var objectives = map[domain.Phase][]string{
	domain.PhaseInvestigation: {
		"🔍 Interview all 6 stakeholders",
		"🔗 Identify dependencies (A1-A12)",
		"💰 Understand budget/timeline constraints",
		"📊 Collect three-point estimates",
		"⚠️ Discover A6↔A8 coupling risk",
		"📋 Learn regulatory paperwork gate",
	},
	domain.PhaseAnalysis: {
		"📈 Build network diagram",
		"🧮 Calculate PERT durations",
		"🎯 Identify critical path",
		"🔄 Model A6↔A8 rework loop",
		"📅 Calculate baseline completion",
		"⚡ Evaluate crash options",
	},
	domain.PhaseRecommendation: {
		"✅ Select ONE crash option",
		"📆 Calculate revised completion",
		"💵 Estimate total cost exposure",
		"🛡️ Develop risk mitigation plan",
		"📄 Draft executive memo",
		"🎤 Defend your decision",
	},
}

// Objectives returns the objectives of a phase. Unknown phases have none.
func Objectives(phase domain.Phase) []string {
	return append([]string(nil), objectives[phase]...)
}

// Constraints are the non-negotiable limits of the case.
func Constraints() []Constraint {
	return []Constraint{
		{Label: "Deadline", Value: "June 30 (non-negotiable)"},
		{Label: "Contingency", Value: "$400,000"},
		{Label: "Policy", Value: "Only ONE crash option"},
		{Label: "Penalty", Value: "$3,000/day after June 30"},
	}
}

// Reminders are the quick notes of the advisor view.
func Reminders() []string {
	return []string{
		"Investor milestone due: June 30",
		"One crash option only (S1–S5)",
		"Regulatory paperwork gate can cause +5 day halt",
		"A6↔A8 rework loop exists",
		"Offshore weather window variability",
	}
}

// KeyDependencies spells out the network edges, coupling included.
func KeyDependencies() []string {
	return []string{
		"A1 → A3",
		"A2 → A4",
		"A3 & A2 → A4",
		"A4 & A5 → A6",
		"A6 → A7, A8",
		"A6 ↔ A8 (coupling risk!)",
		"A8 & A9 → A10",
		"A10 → A11 → A12",
	}
}

// ReferenceFor assembles the reference panel of a phase for case c.
func ReferenceFor(c Case, phase domain.Phase) Reference {
	crash := make([]string, 0, len(c.CrashOptions))
	for _, o := range c.CrashOptions {
		crash = append(crash, o.Describe())
	}
	return Reference{
		Phase:        phase,
		Objectives:   Objectives(phase),
		Constraints:  Constraints(),
		Reminders:    Reminders(),
		PERTFormula:  PERTFormula,
		CrashOptions: crash,
		Dependencies: KeyDependencies(),
	}
}
