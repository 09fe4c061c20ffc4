package lesson

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Oracle supplies answers when the store has none. Implementations: the
// console prompt below, or scripted doubles in tests and automation.
type Oracle interface {
	// PickOne returns the zero-based index of the chosen option.
	PickOne(question string, options []Option) (int, error)
	// PickMany returns one or more zero-based option indices.
	PickMany(question string, options []Option) ([]int, error)
	// FreeText returns the literal answer text.
	FreeText(question string) (string, error)
}

// ConsoleOracle prompts on an io pair, usually stdin/stdout.
type ConsoleOracle struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewConsoleOracle(in io.Reader, out io.Writer) *ConsoleOracle {
	return &ConsoleOracle{in: bufio.NewScanner(in), out: out}
}

func (c *ConsoleOracle) PickOne(question string, options []Option) (int, error) {
	c.printOptions(question, options)
	for {
		fmt.Fprint(c.out, "Pick an answer number: ")
		line, err := c.readLine()
		if err != nil {
			return 0, err
		}
		idx, ok := parseIndex(line, len(options))
		if !ok {
			fmt.Fprintf(c.out, "Invalid choice (%s)\n", line)
			continue
		}
		return idx, nil
	}
}

// PickMany reads comma-separated numbers. Bad entries are rejected one by
// one; the prompt repeats only when nothing valid was entered at all.
func (c *ConsoleOracle) PickMany(question string, options []Option) ([]int, error) {
	c.printOptions(question, options)
	for {
		fmt.Fprint(c.out, "Pick answer numbers, comma-separated: ")
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		var picked []int
		seen := map[int]bool{}
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			idx, ok := parseIndex(part, len(options))
			if !ok {
				fmt.Fprintf(c.out, "Invalid choice (%s)\n", part)
				continue
			}
			if !seen[idx] {
				seen[idx] = true
				picked = append(picked, idx)
			}
		}
		if len(picked) == 0 {
			continue
		}
		sort.Ints(picked)
		return picked, nil
	}
}

func (c *ConsoleOracle) FreeText(question string) (string, error) {
	fmt.Fprintln(c.out, "Question:", question)
	fmt.Fprint(c.out, "Type the answer: ")
	return c.readLine()
}

func (c *ConsoleOracle) printOptions(question string, options []Option) {
	fmt.Fprintln(c.out, "Question:", question)
	for i, opt := range options {
		fmt.Fprintf(c.out, "%d. %s\n", i+1, opt.Text)
	}
}

func (c *ConsoleOracle) readLine() (string, error) {
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

// parseIndex converts a one-based user entry into a zero-based index.
func parseIndex(s string, n int) (int, bool) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 || v > n {
		return 0, false
	}
	return v - 1, true
}
