package domain

import "time"

type SessionID string
type MessageID string
type PersonaID string

// Role tags the author of a conversation Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// ChatRole tags a block submitted to the completion capability.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// View is the panel the client is currently showing.
type View string

const (
	ViewChat     View = "chat"
	ViewInsights View = "insights"
	ViewProblems View = "problems"
	ViewRole     View = "role"
)

// Views lists every panel.
func Views() []View {
	return []View{ViewChat, ViewInsights, ViewProblems, ViewRole}
}

// ParseView returns the view named by s, and false if s names none.
func ParseView(s string) (View, bool) {
	for _, v := range Views() {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

// Phase is the stage of the case-study investigation.
type Phase string

const (
	PhaseInvestigation  Phase = "investigation"  // Interview stakeholders
	PhaseAnalysis       Phase = "analysis"       // Network, PERT, critical path
	PhaseRecommendation Phase = "recommendation" // Crash option and memo
)

// Phases lists the phases in the order the student goes through them.
func Phases() []Phase {
	return []Phase{PhaseInvestigation, PhaseAnalysis, PhaseRecommendation}
}

// ParsePhase returns the phase named by s, and false if s names none.
func ParsePhase(s string) (Phase, bool) {
	for _, p := range Phases() {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// BriefingKind identifies a one-shot analysis generated from the case.
type BriefingKind string

const (
	BriefingInsights BriefingKind = "insights"
	BriefingProblems BriefingKind = "problems"
	BriefingRole     BriefingKind = "role"
)

// BriefingKinds lists every briefing kind.
func BriefingKinds() []BriefingKind {
	return []BriefingKind{BriefingInsights, BriefingProblems, BriefingRole}
}

// ParseBriefingKind returns the kind named by s, and false if s names none.
func ParseBriefingKind(s string) (BriefingKind, bool) {
	for _, k := range BriefingKinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// View returns the panel a briefing is displayed in.
func (k BriefingKind) View() View {
	switch k {
	case BriefingInsights:
		return ViewInsights
	case BriefingProblems:
		return ViewProblems
	default:
		return ViewRole
	}
}

type Timestamp = time.Time
