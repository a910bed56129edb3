package internal

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	userLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

type terminalEntry struct {
	role    Role
	printed int
}

// TerminalView renders the conversation as a stream of text on a writer.
// Text already written cannot be taken back, so removals and errors are
// shown as notes below the entry.
type TerminalView struct {
	mu      sync.Mutex
	w       io.Writer
	styled  bool
	nextID  EntryID
	entries map[EntryID]*terminalEntry
	open    EntryID
}

// NewTerminalView creates a view writing to w; styling is enabled when w is a terminal
func NewTerminalView(w io.Writer) *TerminalView {
	return &TerminalView{
		w:       w,
		styled:  isTerminal(w),
		entries: make(map[EntryID]*terminalEntry),
	}
}

func (v *TerminalView) render(style lipgloss.Style, s string) string {
	if !v.styled {
		return s
	}
	return style.Render(s)
}

func (v *TerminalView) label(role Role) string {
	switch role {
	case RoleUser:
		return v.render(userLabelStyle, "You:")
	case RoleAssistant:
		return v.render(assistantLabelStyle, "Assistant:")
	default:
		return string(role) + ":"
	}
}

// closeOpen ends an entry that is still receiving text with a newline
func (v *TerminalView) closeOpen() {
	if v.open != 0 {
		fmt.Fprintln(v.w)
		v.open = 0
	}
}

// AddEntry prints the entry's label and initial text
func (v *TerminalView) AddEntry(role Role, text string) EntryID {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.closeOpen()
	v.nextID++
	id := v.nextID
	v.entries[id] = &terminalEntry{role: role, printed: len(text)}

	if role == RoleAssistant && text == "" {
		fmt.Fprintf(v.w, "%s ", v.label(role))
		v.open = id
		return id
	}
	fmt.Fprintf(v.w, "%s %s\n\n", v.label(role), text)
	return id
}

// UpdateEntry prints the part of text not yet written
func (v *TerminalView) UpdateEntry(id EntryID, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.entries[id]
	if !ok || v.open != id {
		return
	}
	if len(text) > entry.printed {
		fmt.Fprint(v.w, text[entry.printed:])
		entry.printed = len(text)
	}
}

// FinalizeEntry ends the entry, with a usage line when stats were reported
func (v *TerminalView) FinalizeEntry(id EntryID, stats TokenStats) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.entries[id]; !ok {
		return
	}
	if v.open == id {
		fmt.Fprintln(v.w)
		v.open = 0
	}
	if stats.TotalTokens > 0 {
		fmt.Fprintln(v.w, v.render(statsStyle, fmt.Sprintf("(%d prompt + %d completion = %d tokens)",
			stats.PromptTokens, stats.CompletionTokens, stats.TotalTokens)))
	}
	fmt.Fprintln(v.w)
}

// RemoveEntry notes that the entry was dropped
func (v *TerminalView) RemoveEntry(id EntryID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.entries[id]; !ok {
		return
	}
	delete(v.entries, id)
	if v.open == id {
		v.open = 0
		fmt.Fprintln(v.w, v.render(statsStyle, "(no reply)"))
		fmt.Fprintln(v.w)
		return
	}
	fmt.Fprintln(v.w, v.render(statsStyle, "(previous reply discarded)"))
}

// ShowError replaces the entry's pending text with message
func (v *TerminalView) ShowError(id EntryID, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.entries[id]; !ok {
		return
	}
	if v.open == id {
		v.closeOpen()
	}
	fmt.Fprintln(v.w, v.render(errorStyle, message))
	fmt.Fprintln(v.w)
}

// Reset forgets all entries
func (v *TerminalView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeOpen()
	v.entries = make(map[EntryID]*terminalEntry)
}
