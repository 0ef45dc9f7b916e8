package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultPrompt is printed before each line is read.
const DefaultPrompt = "peptrackr> "

// Executor runs one shell line split into words.
type Executor func(args []string) error

// ErrUnterminatedQuote is returned by Split for a line with an open quote.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	exec      Executor
	completer *Completer
	history   *History
}

// Option configures a REPL.
type Option func(*REPL)

// WithIO overrides stdin/stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *REPL) {
		if in != nil {
			r.input = in
		}
		if out != nil {
			r.output = out
		}
	}
}

// WithPrompt overrides DefaultPrompt.
func WithPrompt(p string) Option {
	return func(r *REPL) { r.prompt = p }
}

// WithCompleter sets the command list used by "help" and completion.
func WithCompleter(c *Completer) Option {
	return func(r *REPL) {
		if c != nil {
			r.completer = c
		}
	}
}

// WithHistory sets the history store.
func WithHistory(h *History) Option {
	return func(r *REPL) {
		if h != nil {
			r.history = h
		}
	}
}

// New creates a new REPL instance dispatching lines to exec.
func New(exec Executor, opts ...Option) *REPL {
	r := &REPL{
		input:     os.Stdin,
		output:    os.Stdout,
		prompt:    DefaultPrompt,
		exec:      exec,
		completer: NewCompleter(nil),
		history:   NewHistory(""),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the REPL loop. It returns nil on "exit", "quit" or EOF.
func (r *REPL) Run() error {
	reader := bufio.NewReader(r.input)

	for {
		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := errors.Is(err, io.EOF)

		line = strings.TrimSpace(line)
		if line == "" {
			if eof {
				fmt.Fprintln(r.output)
				return nil
			}
			continue
		}

		r.history.Add(line)

		if line == "exit" || line == "quit" {
			return nil
		}

		if err := r.execute(line); err != nil {
			fmt.Fprintf(r.output, "Error: %v\n", err)
		}
		if eof {
			fmt.Fprintln(r.output)
			return nil
		}
	}
}

func (r *REPL) execute(line string) error {
	args, err := Split(line)
	if err != nil {
		return err
	}

	switch args[0] {
	case "help", "?":
		prefix := strings.Join(args[1:], " ")
		for _, cmd := range r.completer.Complete(prefix) {
			fmt.Fprintln(r.output, "  "+cmd)
		}
		return nil
	case "history":
		for i := r.history.Len() - 1; i >= 0; i-- {
			fmt.Fprintf(r.output, "%4d  %s\n", r.history.Len()-i, r.history.Get(i))
		}
		return nil
	}

	if r.exec == nil {
		return fmt.Errorf("no executor for %q", args[0])
	}
	return r.exec(args)
}

// Split breaks a line into words. Whitespace separates words; single quotes
// group literally, double quotes group and honor backslash escapes of '"'
// and '\'.
func Split(line string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, c := range line {
		switch {
		case escaped:
			if c != '"' && c != '\\' {
				cur.WriteRune('\\')
			}
			cur.WriteRune(c)
			escaped = false
		case quote == '"' && c == '\\':
			escaped = true
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteRune(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(c)
			inWord = true
		}
	}

	if quote != 0 || escaped {
		return nil, ErrUnterminatedQuote
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
