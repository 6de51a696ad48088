// Package prompt turns personas, the case document and conversation history
// into the role-tagged blocks sent to the completion capability.
// Everything here is pure: no I/O, no clocks, no package state.
package prompt

import (
	"strings"

	"github.com/PabloGalante/deltawind/internal/domain"
)

const caseHeading = "CASE STUDY:"

// SystemBlock is the persona's instructions, its rules and the case text.
// The case text is included verbatim.
func SystemBlock(p domain.Persona, doc domain.CaseDocument) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Instructions, p.Rules} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, caseHeading+"\n"+doc.Text)
	return strings.Join(parts, "\n\n")
}

// Assemble builds the final message list: system + history + user.
// History keeps its order and length; agent turns map to the assistant role.
func Assemble(p domain.Persona, doc domain.CaseDocument, history []*domain.Message, text string) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.ChatRoleSystem, Text: SystemBlock(p, doc)})
	for _, m := range history {
		messages = append(messages, domain.ChatMessage{Role: chatRole(m.Author), Text: m.Text})
	}
	messages = append(messages, domain.ChatMessage{Role: domain.ChatRoleUser, Text: text})
	return messages
}

func chatRole(r domain.Role) domain.ChatRole {
	if r == domain.RoleAgent {
		return domain.ChatRoleAssistant
	}
	return domain.ChatRoleUser
}
