package prompt

import (
	"fmt"

	"github.com/PabloGalante/deltawind/internal/domain"
)

const insightsTemplate = `
Return concise, high-signal insights (bullets):
- Critical path / gating dependencies
- What June 30 actually constrains (inspection/report)
- Hidden risks (regulatory gate, A6↔A8 loop, weather, customs)
- Implications of "choose ONE crash option"

Use only case facts. No fluff.

CASE:
%s
`

const problemsTemplate = `
Create a clean list:
1) Problems (current issues/slips)
2) Risks (uncertainties)
3) Constraints (policy, milestone, dependencies)

Each item 1 line. Only case facts.

CASE:
%s
`

const roleTemplate = `
You are Sarah Chen (PM). Explain in 8–12 crisp bullet points:
- What your job is in THIS case
- What you're accountable for by June 30
- What decisions you must make (schedule, crash option, compliance)
- What you need from stakeholders (Construction, Procurement, Engineering, Finance, Regulatory, CEO)

Only case facts.

CASE:
%s
`

type briefingPrompt struct {
	system   string
	template string
}

var briefings = map[domain.BriefingKind]briefingPrompt{
	domain.BriefingInsights: {system: "You produce crisp, decision-useful analysis.", template: insightsTemplate},
	domain.BriefingProblems: {system: "You produce crisp, structured lists.", template: problemsTemplate},
	domain.BriefingRole:     {system: "Be concise and specific to the case.", template: roleTemplate},
}

// Briefing builds the two-block prompt of a one-shot briefing.
func Briefing(kind domain.BriefingKind, doc domain.CaseDocument) ([]domain.ChatMessage, error) {
	bp, ok := briefings[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBriefing, kind)
	}
	return []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Text: bp.system},
		{Role: domain.ChatRoleUser, Text: fmt.Sprintf(bp.template, doc.Text)},
	}, nil
}

// BriefingTitle is the heading of a briefing panel.
func BriefingTitle(kind domain.BriefingKind) string {
	switch kind {
	case domain.BriefingInsights:
		return "Insights"
	case domain.BriefingProblems:
		return "Problems & Risks"
	case domain.BriefingRole:
		return "What Sarah Does (in this case)"
	default:
		return string(kind)
	}
}
