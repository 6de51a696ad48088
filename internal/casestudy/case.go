// Package casestudy holds the Delta Wind Farm case: its structured facts,
// the persona roster and the reference material shown next to the chat.
package casestudy

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/PabloGalante/deltawind/internal/domain"
)

// Estimate is a three-point duration estimate in days.
type Estimate struct {
	Optimistic  int `yaml:"o"`
	MostLikely  int `yaml:"m"`
	Pessimistic int `yaml:"p"`
}

// PERT is the expected duration (O + 4M + P) / 6.
func (e Estimate) PERT() float64 {
	return float64(e.Optimistic+4*e.MostLikely+e.Pessimistic) / 6
}

// Activity is one node of the project network.
type Activity struct {
	Code       string   `yaml:"code"`
	Name       string   `yaml:"name"`
	Estimate   Estimate `yaml:",inline"`
	Owners     []string `yaml:"owners,omitempty"`
	Bottleneck bool     `yaml:"bottleneck,omitempty"`
}

func (a Activity) render() string {
	s := fmt.Sprintf("%s %s:%d/%d/%d", a.Code, a.Name,
		a.Estimate.Optimistic, a.Estimate.MostLikely, a.Estimate.Pessimistic)
	tags := append([]string{}, a.Owners...)
	if a.Bottleneck {
		tags = append(tags, "BOTTLENECK")
	}
	if len(tags) > 0 {
		s += "(" + strings.Join(tags, ",") + ")"
	}
	return s
}

// CrashOption is one acceleration option. Only one may be selected.
type CrashOption struct {
	Code     string `yaml:"code"`
	Activity string `yaml:"activity"`
	Label    string `yaml:"label"`
	Days     int    `yaml:"days"`
	CostKUSD int    `yaml:"cost_k_usd"`
}

func (c CrashOption) render() string {
	return fmt.Sprintf("%s:%s-%dd$%dk", c.Code, c.Activity, c.Days, c.CostKUSD)
}

// Describe is the long form used in the reference panel.
func (c CrashOption) Describe() string {
	return fmt.Sprintf("%s: %s %s (-%dd, $%dk)", c.Code, c.Activity, c.Label, c.Days, c.CostKUSD)
}

// Case is the structured form of the case document.
type Case struct {
	Title        string        `yaml:"title"`
	Headline     string        `yaml:"headline"`
	Budget       string        `yaml:"budget"`
	Activities   []Activity    `yaml:"activities"`
	Dependencies []string      `yaml:"dependencies"`
	Risks        []string      `yaml:"risks"`
	CrashOptions []CrashOption `yaml:"crash_options"`
}

// Activity returns the activity with the given code.
func (c Case) Activity(code string) (Activity, bool) {
	return lo.Find(c.Activities, func(a Activity) bool { return a.Code == code })
}

// Render produces the compact case text embedded in every prompt.
// The output depends only on c.
func (c Case) Render() string {
	var b strings.Builder
	b.WriteString(c.Headline)
	b.WriteString("\n")
	b.WriteString(c.Budget)
	b.WriteString("\n\n")

	b.WriteString("ACTIVITIES (O/M/P days): ")
	b.WriteString(strings.Join(lo.Map(c.Activities, func(a Activity, _ int) string { return a.render() }), " | "))
	b.WriteString("\n\n")

	b.WriteString("DEPS: ")
	b.WriteString(strings.Join(c.Dependencies, ", "))
	b.WriteString("\n")

	b.WriteString("RISKS: ")
	b.WriteString(strings.Join(c.Risks, " | "))
	b.WriteString("\n")

	b.WriteString("CRASH (ONE only): ")
	b.WriteString(strings.Join(lo.Map(c.CrashOptions, func(o CrashOption, _ int) string { return o.render() }), " | "))
	return b.String()
}

// Document wraps the rendered case as a case document.
func (c Case) Document(source string) domain.CaseDocument {
	return domain.CaseDocument{Title: c.Title, Text: c.Render(), Source: source}
}

// Default is the built-in Delta Wind Farm Phase II case.
func Default() Case {
	return Case{
		Title:    "The Delta Wind Farm Project",
		Headline: "DELTA WIND FARM - PHASE II: 50 turbines, June 30 HARD deadline (investor covenant)",
		Budget:   "Budget: $4.09M + $400k contingency | Delay: $3k/day | NO early savings",
		Activities: []Activity{
			{Code: "A1", Name: "Access", Estimate: Estimate{6, 8, 12}, Owners: []string{"Sam"}},
			{Code: "A2", Name: "Platform", Estimate: Estimate{7, 9, 14}, Owners: []string{"Maya"}},
			{Code: "A3", Name: "Foundation", Estimate: Estimate{10, 12, 16}, Owners: []string{"Sam"}, Bottleneck: true},
			{Code: "A4", Name: "Install", Estimate: Estimate{8, 11, 17}, Owners: []string{"Maya"}},
			{Code: "A5", Name: "Ship", Estimate: Estimate{6, 8, 10}, Owners: []string{"Rita"}},
			{Code: "A6", Name: "Tower", Estimate: Estimate{8, 10, 15}, Owners: []string{"Maya"}},
			{Code: "A7", Name: "Nacelle", Estimate: Estimate{7, 9, 12}, Owners: []string{"Maya"}},
			{Code: "A8", Name: "Cable", Estimate: Estimate{10, 13, 18}, Owners: []string{"Maya"}},
			{Code: "A9", Name: "Substation", Estimate: Estimate{8, 10, 13}, Owners: []string{"Sam"}},
			{Code: "A10", Name: "Integration", Estimate: Estimate{6, 8, 11}},
			{Code: "A11", Name: "Inspection", Estimate: Estimate{5, 6, 9}, Owners: []string{"Carlos"}},
			{Code: "A12", Name: "Handover", Estimate: Estimate{2, 3, 5}},
		},
		Dependencies: []string{
			"A1→A3", "A2→A4", "A3&A2→A4", "A4&A5→A6", "A6→A7&A8", "A8&A9→A10→A11→A12",
		},
		Risks: []string{
			"A6↔A8 coupling (30% rework +4d)",
			"Regulatory gate (+5d halt if not cleared before A6/A8)",
		},
		CrashOptions: []CrashOption{
			{Code: "S1", Activity: "A3", Label: "Foundation", Days: 3, CostKUSD: 70},
			{Code: "S2", Activity: "A5", Label: "Staging", Days: 4, CostKUSD: 110},
			{Code: "S3", Activity: "A6", Label: "Towers", Days: 5, CostKUSD: 150},
			{Code: "S4", Activity: "A8", Label: "Cabling", Days: 4, CostKUSD: 130},
			{Code: "S5", Activity: "A9", Label: "Substation", Days: 3, CostKUSD: 60},
		},
	}
}

// Fallback is the excerpt used when a configured case file cannot be read.
func Fallback() domain.CaseDocument {
	return domain.CaseDocument{
		Title:  "The Delta Wind Farm Project (fallback excerpt)",
		Source: "fallback",
		Text: "The Delta Wind Farm Project (fallback excerpt)\n\n" +
			"Sarah Chen, Project Manager for Delta Renewables, must replan Phase II to meet " +
			"a June 30 investor milestone. Phase II adds 50 turbines across onshore and offshore workstreams " +
			"with coupled risks (A6↔A8) and a regulatory paperwork gate that can cause a +5 day halt. " +
			"Team must pick ONE acceleration option (S1–S5).",
	}
}
