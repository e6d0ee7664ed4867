package console

import (
	"fmt"

	"github.com/pterm/pterm"
)

const (
	defaultDependencyPreviewConstant = 5
	defaultSearchPreviewConstant     = 10
)

// Configuration controls how many records preview renderings show before
// truncating with a "... and N more" note.
type Configuration struct {
	DependencyPreview int `mapstructure:"dependency_preview"`
	SearchPreview     int `mapstructure:"search_preview"`
}

// DefaultConfigurationValues returns the loader defaults for the display section.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + ".dependency_preview": defaultDependencyPreviewConstant,
		configurationKeyPrefix + ".search_preview":     defaultSearchPreviewConstant,
	}
}

// DependencyPreviewLimit returns the configured dependency preview size or the default.
func (configuration Configuration) DependencyPreviewLimit() int {
	if configuration.DependencyPreview > 0 {
		return configuration.DependencyPreview
	}
	return defaultDependencyPreviewConstant
}

// SearchPreviewLimit returns the configured search preview size or the default.
func (configuration Configuration) SearchPreviewLimit() int {
	if configuration.SearchPreview > 0 {
		return configuration.SearchPreview
	}
	return defaultSearchPreviewConstant
}

// Console wraps pterm printers behind one value that commands can share.
type Console struct{}

// NewConsole constructs a console.
func NewConsole() *Console {
	return &Console{}
}

// Printf writes plain formatted output.
func (console *Console) Printf(format string, arguments ...any) {
	fmt.Printf(format, arguments...)
}

// Info prints an informational line.
func (console *Console) Info(format string, arguments ...any) {
	pterm.Info.Printfln(format, arguments...)
}

// Warning prints a warning line.
func (console *Console) Warning(format string, arguments ...any) {
	pterm.Warning.Printfln(format, arguments...)
}

// Error prints an error line.
func (console *Console) Error(format string, arguments ...any) {
	pterm.Error.Printfln(format, arguments...)
}

// Success prints a success line.
func (console *Console) Success(format string, arguments ...any) {
	pterm.Success.Printfln(format, arguments...)
}

// Section prints a boxed section header around a workflow phase.
func (console *Console) Section(title string) {
	pterm.DefaultSection.Println(title)
}

// ProgressHandle tracks one long-running batch on screen.
type ProgressHandle struct {
	bar *pterm.ProgressbarPrinter
}

// Progress starts a progress bar for the given total.
func (console *Console) Progress(title string, total int) *ProgressHandle {
	bar, _ := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle(title).
		WithShowCount(true).
		WithRemoveWhenDone(false).
		Start()
	return &ProgressHandle{bar: bar}
}

// Increment advances the progress bar by one item.
func (handle *ProgressHandle) Increment() {
	if handle.bar != nil {
		handle.bar.Increment()
	}
}

// Stop finishes the progress bar.
func (handle *ProgressHandle) Stop() {
	if handle.bar != nil {
		_, _ = handle.bar.Stop()
	}
}

// RenderTable prints a boxed table with a header row.
func (console *Console) RenderTable(headerRow []string, dataRows [][]string) {
	tableData := pterm.TableData{headerRow}
	for _, dataRow := range dataRows {
		tableData = append(tableData, dataRow)
	}

	renderedTable, renderError := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(tableData).
		Srender()
	if renderError != nil {
		return
	}
	fmt.Println(renderedTable)
}
