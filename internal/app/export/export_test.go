package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/deltawind/internal/domain"
)

var (
	at  = time.Date(2026, 3, 14, 9, 5, 7, 0, time.UTC)
	sam = domain.Persona{ID: "sam", Name: "Sam Patel", Title: "Construction Lead", Emoji: "🏗️"}
	ava = domain.Persona{ID: "ava", Name: "Ava Thompson", Title: "CEO", Emoji: "👔"}
)

func sampleState() *domain.SessionState {
	s := domain.NewSessionState("s1", at)
	conv, _ := s.OpenConversation(sam.ID)
	conv.Append(
		&domain.Message{ID: "1", Persona: sam.ID, Author: domain.RoleAgent, Text: "Hi.", CreatedAt: at},
		&domain.Message{ID: "2", Persona: sam.ID, Author: domain.RoleUser, Text: "Status of A3?", CreatedAt: at.Add(time.Second)},
	)
	s.OpenConversation(ava.ID)
	return s
}

func TestSectionsSkipsEmptyConversations(t *testing.T) {
	got := Sections(sampleState(), []domain.Persona{ava, sam})
	require.Len(t, got, 1)
	require.Equal(t, sam, got[0].Persona)
	require.Len(t, got[0].Messages, 2)
}

func TestText(t *testing.T) {
	got := Text(Sections(sampleState(), []domain.Persona{sam, ava}))

	want := "DELTA WIND FARM - Interview Transcript\n" +
		"==================================================\n\n" +
		"🏗️ Sam Patel\n" +
		"--------------------------------------------------\n" +
		"[09:05:07] Sam Patel: Hi.\n\n" +
		"[09:05:08] You: Status of A3?\n\n" +
		"\n"
	require.Equal(t, want, got)
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	err := PDF(&buf, "Chat with Sarah (Delta Wind Farm) 🌬️", at, Sections(sampleState(), []domain.Persona{sam}))

	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestFileName(t *testing.T) {
	require.Equal(t, "delta_windfarm_chat_20260314_090507.pdf", FileName(FormatPDF, at))
	require.Equal(t, "delta_windfarm_chat_20260314_090507.txt", FileName(FormatText, at))
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat("PDF")
	require.True(t, ok)
	require.Equal(t, FormatPDF, f)

	_, ok = ParseFormat("docx")
	require.False(t, ok)
}

func TestLatin1(t *testing.T) {
	require.Equal(t, "A6?A8 caf\xe9", latin1("A6↔A8 café"))
}
