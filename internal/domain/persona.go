package domain

// Persona is a fixed character profile the completion service role-plays.
type Persona struct {
	ID    PersonaID
	Name  string
	Title string
	Emoji string

	// Instructions describe the persona's knowledge domain.
	Instructions string
	// Rules hold tone, length and grounding constraints.
	Rules string
	// Greeting opens a new conversation. Empty means no opener.
	Greeting string

	// Advisor marks the persona the student plays alongside rather than
	// interviews. Advisors do not count towards interview progress.
	Advisor bool
}

// Label is the persona name prefixed by its emoji.
func (p Persona) Label() string {
	if p.Emoji == "" {
		return p.Name
	}
	return p.Emoji + " " + p.Name
}

// CaseDocument is the static block of case facts used in every prompt.
type CaseDocument struct {
	Title  string
	Text   string
	Source string // "builtin", "fallback" or a file path
}
