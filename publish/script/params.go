package script

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/akshaynexus/yearnv2-levgeist/publish/contracts/vault"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).MarginLeft(4)
	labelStyle = lipgloss.NewStyle().Width(10).Align(lipgloss.Right)
	blockStyle = lipgloss.NewStyle().MarginTop(1).MarginBottom(1)
)

func strategyParameters(apiVersion string, info vault.Info) string {
	rows := []struct{ label, value string }{
		{"api", apiVersion},
		{"token", info.Token.Hex()},
		{"name", fmt.Sprintf("'%s'", info.Name)},
		{"symbol", fmt.Sprintf("'%s'", info.Symbol)},
	}
	lines := []string{titleStyle.Render("Strategy Parameters"), ""}
	for _, row := range rows {
		lines = append(lines, labelStyle.Render(row.label+":")+" "+row.value)
	}
	return blockStyle.Render(strings.Join(lines, "\n"))
}
