package casestudy

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/PabloGalante/deltawind/internal/domain"
)

const stakeholderRules = "Context: Student (Sarah Chen, PM) interviewing you. " +
	"Be helpful, specific numbers, 2-3 paragraphs. Only use facts from the case."

const advisorRules = `RULES:
- Always speak as Sarah (PM).
- Be practical and structured.
- Keep answers short + decision-oriented.
- Ask 1–2 questions back to the student to make them think.
- Only use facts from the case. If missing, say what you’d need.`

// AdvisorID is the persona the second app is built around.
const AdvisorID domain.PersonaID = "sarah"

// Roster is the fixed, ordered set of personas defined at startup.
type Roster struct {
	personas []domain.Persona
	byID     map[domain.PersonaID]domain.Persona
}

// NewRoster indexes personas by id, keeping their order.
func NewRoster(personas ...domain.Persona) (*Roster, error) {
	r := &Roster{byID: make(map[domain.PersonaID]domain.Persona, len(personas))}
	for _, p := range personas {
		if p.ID == "" {
			return nil, fmt.Errorf("persona %q has no id", p.Name)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		r.byID[p.ID] = p
		r.personas = append(r.personas, p)
	}
	return r, nil
}

// Get returns the persona with the given id.
func (r *Roster) Get(id domain.PersonaID) (domain.Persona, error) {
	p, ok := r.byID[id]
	if !ok {
		return domain.Persona{}, fmt.Errorf("%w: %q", domain.ErrUnknownPersona, id)
	}
	return p, nil
}

// All returns every persona in roster order.
func (r *Roster) All() []domain.Persona {
	return append([]domain.Persona(nil), r.personas...)
}

// Stakeholders returns the personas the student interviews.
func (r *Roster) Stakeholders() []domain.Persona {
	return lo.Filter(r.personas, func(p domain.Persona, _ int) bool { return !p.Advisor })
}

// InterviewProgress counts stakeholders the student has asked at least one
// question, out of all stakeholders.
func (r *Roster) InterviewProgress(state *domain.SessionState) (done, total int) {
	stakeholders := r.Stakeholders()
	done = lo.CountBy(stakeholders, func(p domain.Persona) bool {
		return state.Conversation(p.ID).UserTurns() > 0
	})
	return done, len(stakeholders)
}

// DefaultRoster is the six Delta Wind Farm stakeholders plus Sarah.
func DefaultRoster() *Roster {
	r, err := NewRoster(DefaultPersonas()...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultPersonas lists the built-in personas in display order.
func DefaultPersonas() []domain.Persona {
	return []domain.Persona{
		{
			ID:    "sam",
			Name:  "Sam Patel",
			Title: "Construction Manager (Onshore)",
			Emoji: "👷",
			Instructions: "You are Sam Patel, Construction Manager. Handle A1(6/8/12d), A3(10/12/16d-BOTTLENECK), " +
				"A9(8/10/13d). Offer S1: 2nd batch for A3(-3d,$70k). Deps: A1→A3→A4.",
			Rules:    stakeholderRules,
			Greeting: "Hey Sarah, yeah, let me pull up the field logs. What do you need to know about onshore operations?",
		},
		{
			ID:           "rita",
			Name:         "Rita Gomez",
			Title:        "Procurement & Logistics",
			Emoji:        "📦",
			Instructions: "You are Rita Gomez, Procurement. Handle A5(6/8/10d). Offer S2: faster cargo(-4d,$110k). A5 gates A6.",
			Rules:        stakeholderRules,
			Greeting: "Sarah, I know you're going to ask about the freight delays. " +
				"Let me explain what's happening with the marine shipping situation...",
		},
		{
			ID:    "maya",
			Name:  "Maya Li",
			Title: "Engineering Lead (Offshore)",
			Emoji: "⚙️",
			Instructions: "You are Maya Li, Offshore Eng. Handle A2,A4,A6,A7,A8. CRITICAL: A6↔A8 30% rework(+4d). " +
				"Offer S3: 2nd crane A6(-5d,$150k) or S4: ROV A8(-4d,$130k).",
			Rules: stakeholderRules,
			Greeting: "Sarah, glad you're here. Let me sketch this out - A6 and A8 are more coupled than " +
				"your baseline plan shows. This is important.",
		},
		{
			ID:           "leo",
			Name:         "Leo Armstrong",
			Title:        "Finance Director",
			Emoji:        "💰",
			Instructions: "You are Leo Armstrong, Finance. Budget $4.09M+$400k. Delay $3k/day. NO early savings. Rule: ONE crash only.",
			Rules:        stakeholderRules,
			Greeting:     "Sarah, I'll keep this brief. Here's what you need to understand about budget constraints and policy.",
		},
		{
			ID:    "carlos",
			Name:  "Carlos Ruiz",
			Title: "Regulatory Compliance",
			Emoji: "📋",
			Instructions: "You are Carlos Ruiz, Compliance. Handle A11(5/6/9d). CRITICAL: paperwork before A6/A8 or +5d halt. " +
				"Clear parallel with A1/A2.",
			Rules:    stakeholderRules,
			Greeting: "Sarah. Let's talk about compliance requirements and what could potentially halt your project.",
		},
		{
			ID:           "ava",
			Name:         "Ava Johnson",
			Title:        "CEO / Sponsor",
			Emoji:        "👔",
			Instructions: "You are Ava Johnson, CEO. June 30 NON-NEGOTIABLE. Want: network, PERT date, ONE crash, risk plan, memo.",
			Rules:        stakeholderRules,
			Greeting: "Sarah, I have about 10 minutes before my next meeting. " +
				"Tell me you have a coherent plan that doesn't miss June 30.",
		},
		{
			ID:           AdvisorID,
			Name:         "Sarah Chen",
			Title:        "Project Manager",
			Emoji:        "🌬️",
			Instructions: "You are Sarah Chen, Project Manager for Delta Renewables (Delta Wind Farm Project Phase II).",
			Rules:        advisorRules,
			Advisor:      true,
		},
	}
}
