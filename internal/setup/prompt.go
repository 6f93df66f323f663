package setup

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// option is one selectable entry in a numbered-choice prompt.
type option struct {
	ID    string
	Label string
}

// prompter is a line-oriented Q&A surface over an injected reader/writer
// pair, so the wizard can be driven by tests.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

func (p *prompter) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *prompter) header(text string) {
	line := strings.Repeat("=", 70)
	p.printf("\n%s\n  %s\n%s\n", line, text, line)
}

func (p *prompter) step(n int, text string) {
	p.printf("\n[Step %d] %s\n%s\n", n, text, strings.Repeat("-", 70))
}

// readLine returns the next input line, or "" once input is exhausted.
func (p *prompter) readLine() string {
	if !p.in.Scan() {
		return ""
	}
	return strings.TrimSpace(p.in.Text())
}

// input prompts for a value, returning def when the answer is empty.
func (p *prompter) input(prompt, def string) string {
	if def != "" {
		p.printf("%s [%s]: ", prompt, def)
	} else {
		p.printf("%s: ", prompt)
	}
	answer := p.readLine()
	if answer == "" {
		return def
	}
	return answer
}

// choice displays numbered options and returns the ID of the selected one.
// With allowNone, 0 means skip and returns "". Invalid answers re-prompt;
// exhausted input returns "".
func (p *prompter) choice(prompt string, options []option, allowNone bool) string {
	p.printf("\n%s\n", prompt)
	for i, opt := range options {
		p.printf("  %d. %s (ID: %s)\n", i+1, opt.Label, opt.ID)
	}
	if allowNone {
		p.printf("  0. None / Skip\n")
	}

	for {
		p.printf("\nEnter your choice (number): ")
		answer := p.readLine()
		if answer == "" {
			return ""
		}
		n, err := strconv.Atoi(answer)
		if err != nil {
			p.printf("Invalid input. Please enter a number.\n")
			continue
		}
		if allowNone && n == 0 {
			return ""
		}
		if n >= 1 && n <= len(options) {
			p.printf("Selected: %s\n", options[n-1].Label)
			return options[n-1].ID
		}
		low := 1
		if allowNone {
			low = 0
		}
		p.printf("Invalid choice. Please enter a number between %d and %d\n", low, len(options))
	}
}
