package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Info          lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	TableName     lipgloss.Style
	SQL           lipgloss.Style
}

// NewStyles builds styles bound to a lipgloss renderer, so color is
// dropped automatically when the writer is not a terminal.
func NewStyles(re *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:       re.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1),
		Header2:       re.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:          re.NewStyle().Bold(true),
		Muted:         re.NewStyle().Foreground(lipgloss.Color("8")),
		Info:          re.NewStyle().Foreground(lipgloss.Color("12")),
		Success:       re.NewStyle().Foreground(lipgloss.Color("10")),
		Warning:       re.NewStyle().Foreground(lipgloss.Color("11")),
		Error:         re.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		StatusSuccess: re.NewStyle().Foreground(lipgloss.Color("10")),
		StatusFailed:  re.NewStyle().Foreground(lipgloss.Color("9")),
		TableName:     re.NewStyle().Foreground(lipgloss.Color("13")),
		SQL:           re.NewStyle().Foreground(lipgloss.Color("7")),
	}
}
