package main

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/catset/pkg/core"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(78)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// entryCard renders one entry. A zero index omits the number.
func entryCard(index int, e core.Entry) string {
	title := e.Comment
	if index > 0 {
		title = fmt.Sprintf("#%d  %s", index, e.Comment)
	}
	body := strings.Join([]string{
		titleStyle.Render(title),
		labelStyle.Render("code ") + highlight(e.Code),
		labelStyle.Render("CAT  ") + strings.Join(e.CAT, " "),
	}, "\n")
	return cardStyle.Render(body)
}

// highlight colors Java code for the terminal, falling back to plain text.
func highlight(code string) string {
	var sb strings.Builder
	if err := quick.Highlight(&sb, code, "java", "terminal256", "monokai"); err != nil {
		return code
	}
	return strings.TrimRight(sb.String(), "\n")
}
