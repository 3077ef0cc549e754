package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// formatter applies one color, or a plain prefix/suffix when color is off.
type formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

func (f formatter) Sprintf(format string, a ...any) string {
	text := fmt.Sprintf(format, a...)
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

func noColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return color.NoColor
}

var (
	successText = formatter{color.New(color.FgGreen), "", ""}
	errorText   = formatter{color.New(color.FgRed), "", ""}
	warningText = formatter{color.New(color.FgYellow), "", ""}
	infoText    = formatter{color.New(color.FgCyan), "", ""}
	codeText    = formatter{color.New(color.FgYellow), "`", "`"}
	boldText    = formatter{color.New(color.Bold), "", ""}
)

// isTerminal reports whether v is a file attached to a terminal.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// startSpinner shows message on w while a network call runs. It stays
// silent when w is not a terminal or verbose logging is on.
func startSpinner(w io.Writer, message string, verbose bool) func() {
	if verbose || !isTerminal(w) {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}

// prompter reads answers from the command's input.
type prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, reader: bufio.NewReader(in), out: out}
}

func (p *prompter) Line(prompt string) (string, error) {
	if _, err := fmt.Fprintf(p.out, "%s: ", prompt); err != nil {
		return "", err
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// LineOr returns current when it is already set.
func (p *prompter) LineOr(current, prompt string) (string, error) {
	if current != "" {
		return current, nil
	}
	return p.Line(prompt)
}

// Hidden reads without echo on a terminal and falls back to a plain line otherwise.
func (p *prompter) Hidden(prompt string) (string, error) {
	if !isTerminal(p.in) {
		return p.Line(prompt)
	}

	if _, err := fmt.Fprintf(p.out, "%s: ", prompt); err != nil {
		return "", err
	}
	secret, err := term.ReadPassword(int(p.in.(*os.File).Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

// Multiline reads lines until an empty one.
func (p *prompter) Multiline(prompt string) (string, error) {
	if _, err := fmt.Fprintf(p.out, "%s (empty line to finish):\n", prompt); err != nil {
		return "", err
	}

	var lines []string
	for {
		line, err := p.reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (p *prompter) Confirm(prompt string) (bool, error) {
	answer, err := p.Line(prompt + " [y/N]")
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}
