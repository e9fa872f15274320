package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/tui/theme"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const (
	// FlagGroupAnnotation files a flag under its own help heading.
	FlagGroupAnnotation = "exports_help_group"
	// SourceFlagGroup heads the flags that choose where records come from.
	SourceFlagGroup = "SOURCE"

	localFlagGroup  = "FLAGS"
	globalFlagGroup = "GLOBAL FLAGS"

	helpMaxWidth = 72
	helpMinWidth = 40
)

// MarkFlagGroup files the named flag of fs under a help heading.
func MarkFlagGroup(fs *pflag.FlagSet, name, group string) {
	_ = fs.SetAnnotation(name, FlagGroupAnnotation, []string{group})
}

// SetStyledHelp applies the exports help layout to one command.
func SetStyledHelp(cmd *cobra.Command) {
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		newHelpPage(c).write()
	})
}

// ApplyStyledHelpRecursive applies the help layout to cmd and every subcommand.
// Usage output is silenced; Execute reports errors itself.
func ApplyStyledHelpRecursive(cmd *cobra.Command) {
	SetStyledHelp(cmd)
	cmd.SetUsageFunc(func(*cobra.Command) error { return nil })
	for _, sub := range cmd.Commands() {
		ApplyStyledHelpRecursive(sub)
	}
}

// PrintError prints a failed command's error with its code and a help hint.
func PrintError(cmd *cobra.Command, err error) {
	t := theme.DefaultTheme
	out := cmd.ErrOrStderr()
	line := t.Error.Render("Error:") + " " + err.Error()
	if code := errors.GetCode(err); code != "" && code != errors.ErrCodeInternal {
		line += " " + t.Muted.Render("("+string(code)+")")
	}
	fmt.Fprintln(out, line)
	fmt.Fprintln(out, t.Muted.Render(fmt.Sprintf("Run '%s --help' for usage.", cmd.CommandPath())))
}

// helpPage renders the help of one command.
type helpPage struct {
	cmd   *cobra.Command
	out   io.Writer
	t     *theme.Theme
	width int
}

func newHelpPage(cmd *cobra.Command) *helpPage {
	out := cmd.OutOrStdout()
	return &helpPage{cmd: cmd, out: out, t: theme.DefaultTheme, width: helpWidth(out)}
}

// helpWidth is the wrap width for out: the terminal width when out is a
// terminal, clamped to a readable range.
func helpWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok {
		return helpMaxWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	switch {
	case err != nil || w < helpMinWidth:
		return helpMaxWidth
	case w > helpMaxWidth:
		return helpMaxWidth
	default:
		return w
	}
}

func (p *helpPage) write() {
	description, examples := splitExamples(p.cmd.Long)
	if p.cmd.Example != "" {
		examples = p.cmd.Example
	}

	fmt.Fprintln(p.out, " "+p.t.Header.Render(strings.ToUpper(p.cmd.CommandPath())))
	if p.cmd.Short != "" {
		p.paragraph(p.t.Italic, p.cmd.Short)
	}
	if description != "" && description != p.cmd.Short {
		fmt.Fprintln(p.out)
		p.paragraph(lipgloss.NewStyle(), description)
	}

	p.usage()
	p.commands()
	p.flags()
	if examples != "" {
		p.heading("EXAMPLES")
		p.examples(examples)
	}
	p.demoHint()

	if p.cmd.HasAvailableSubCommands() {
		fmt.Fprintf(p.out, "\n Use \"%s [command] --help\" for more information.\n", p.cmd.CommandPath())
	}
}

func (p *helpPage) heading(title string) {
	fmt.Fprintln(p.out, "\n "+p.t.Warning.Render(title))
}

// paragraph word-wraps text to the page width, one space in from the margin.
func (p *helpPage) paragraph(style lipgloss.Style, text string) {
	wrapped := style.Width(p.width - 2).Render(text)
	for _, line := range strings.Split(wrapped, "\n") {
		fmt.Fprintln(p.out, " "+strings.TrimRight(line, " "))
	}
}

func (p *helpPage) usage() {
	if !p.cmd.Runnable() && !p.cmd.HasSubCommands() {
		return
	}
	p.heading("USAGE")
	if p.cmd.Runnable() {
		fmt.Fprintf(p.out, " %s\n", p.cmd.UseLine())
	}
	if p.cmd.HasSubCommands() {
		fmt.Fprintf(p.out, " %s [command]\n", p.cmd.CommandPath())
	}
}

func (p *helpPage) commands() {
	var rows [][2]string
	for _, sub := range p.cmd.Commands() {
		if sub.IsAvailableCommand() {
			rows = append(rows, [2]string{sub.Name(), sub.Short})
		}
	}
	if len(rows) == 0 {
		return
	}
	p.heading("COMMANDS")
	p.columns(p.t.Info, rows)
}

// flagGroups sorts the visible flags into headings: the command's own flags,
// annotated groups, then inherited flags.
func (p *helpPage) flagGroups() (order []string, groups map[string][]*pflag.Flag) {
	groups = make(map[string][]*pflag.Flag)
	add := func(fallback string) func(*pflag.Flag) {
		return func(f *pflag.Flag) {
			if f.Hidden {
				return
			}
			group := fallback
			if g := f.Annotations[FlagGroupAnnotation]; len(g) > 0 {
				group = g[0]
			}
			if _, seen := groups[group]; !seen {
				order = append(order, group)
			}
			groups[group] = append(groups[group], f)
		}
	}
	p.cmd.LocalFlags().VisitAll(add(localFlagGroup))
	p.cmd.InheritedFlags().VisitAll(add(globalFlagGroup))

	sorted := make([]string, 0, len(order))
	if _, ok := groups[localFlagGroup]; ok {
		sorted = append(sorted, localFlagGroup)
	}
	for _, g := range order {
		if g != localFlagGroup && g != globalFlagGroup {
			sorted = append(sorted, g)
		}
	}
	if _, ok := groups[globalFlagGroup]; ok {
		sorted = append(sorted, globalFlagGroup)
	}
	return sorted, groups
}

func (p *helpPage) flags() {
	order, groups := p.flagGroups()
	for _, group := range order {
		flags := groups[group]
		// Parent commands and inherited flags get a compact line.
		if group == globalFlagGroup || p.cmd.HasAvailableSubCommands() {
			names := make([]string, 0, len(flags))
			for _, f := range flags {
				names = append(names, "--"+f.Name)
			}
			p.heading(group)
			p.paragraph(p.t.Muted, strings.Join(names, ", "))
			continue
		}

		rows := make([][2]string, 0, len(flags))
		for _, f := range flags {
			usage := f.Usage
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" && f.DefValue != "0s" {
				usage += p.t.Muted.Render(fmt.Sprintf(" (default: %s)", f.DefValue))
			}
			rows = append(rows, [2]string{flagName(f), usage})
		}
		p.heading(group)
		p.columns(p.t.Accent, rows)
	}
}

// demoHint points commands that talk to the export server at --demo.
func (p *helpPage) demoHint() {
	if !p.cmd.Runnable() || p.cmd.HasAvailableSubCommands() {
		return
	}
	demo := p.cmd.Flags().Lookup("demo")
	if demo == nil || len(demo.Annotations[FlagGroupAnnotation]) == 0 {
		return
	}
	fmt.Fprintln(p.out)
	p.paragraph(p.t.Muted, fmt.Sprintf(
		"No export server at hand? '%s --demo' runs against a built-in scripted one.", p.cmd.CommandPath()))
}

func (p *helpPage) columns(keyStyle lipgloss.Style, rows [][2]string) {
	keyWidth := 0
	for _, r := range rows {
		if len(r[0]) > keyWidth {
			keyWidth = len(r[0])
		}
	}
	for _, r := range rows {
		pad := strings.Repeat(" ", keyWidth-len(r[0]))
		fmt.Fprintf(p.out, " %s%s  %s\n", keyStyle.Render(r[0]), pad, r[1])
	}
}

func (p *helpPage) examples(text string) {
	root := p.cmd.Root().Name()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			fmt.Fprintln(p.out)
		case strings.HasPrefix(line, "#"):
			fmt.Fprintln(p.out, " "+p.t.Muted.Render(line))
		default:
			fmt.Fprintln(p.out, "   "+p.exampleLine(line, root))
		}
	}
}

// exampleLine highlights the program name, the subcommand and flags.
func (p *helpPage) exampleLine(line, root string) string {
	words := strings.Fields(line)
	for i, w := range words {
		switch {
		case i == 0 && w == root:
			words[i] = p.t.Bold.Render(w)
		case strings.HasPrefix(w, "-"):
			words[i] = p.t.Accent.Render(w)
		case i == 1:
			words[i] = p.t.Info.Render(w)
		}
	}
	return strings.Join(words, " ")
}

func flagName(f *pflag.Flag) string {
	if f.Shorthand != "" {
		return fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
	}
	return "    --" + f.Name
}

// splitExamples separates the "Examples:" block from a long description.
func splitExamples(long string) (description, examples string) {
	for _, marker := range []string{"\nExamples:\n", "\nExample:\n"} {
		if i := strings.Index(long, marker); i != -1 {
			return strings.TrimSpace(long[:i]), strings.TrimSpace(long[i+len(marker):])
		}
	}
	return strings.TrimSpace(long), ""
}
