package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/svgview/internal/apperr"
)

// SizeMessage is shown when a size prompt gets an unusable value.
const SizeMessage = "Please set number."

// MaxSize is the largest accepted width or height in pixels.
const MaxSize = 16384

// Prompter asks the user for a value. It returns apperr.ErrCancelled when
// the user dismisses the prompt.
type Prompter interface {
	Prompt(ctx context.Context, name string) (string, error)
}

// ValidateSize accepts a non-empty number greater than zero and at most
// MaxSize.
func ValidateSize(value string) error {
	return validation.Validate(strings.TrimSpace(value),
		validation.Required.Error(SizeMessage),
		validation.By(positiveNumber),
	)
}

func positiveNumber(v any) error {
	s, _ := v.(string)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || !(n > 0) || n > MaxSize {
		return errors.New(SizeMessage)
	}
	return nil
}

// parseSize converts a validated size to whole pixels.
func parseSize(value string) int {
	n, _ := strconv.ParseFloat(strings.TrimSpace(value), 64)
	px := int(n + 0.5)
	if px < 1 {
		px = 1
	}
	return px
}

// Values answers prompts from a fixed map, e.g. the fields of an HTTP
// request. A missing value counts as a cancelled prompt.
type Values map[string]string

// Prompt implements Prompter.
func (v Values) Prompt(_ context.Context, name string) (string, error) {
	s, ok := v[name]
	if !ok {
		return "", fmt.Errorf("commands: no %s given: %w", name, apperr.ErrCancelled)
	}
	return s, nil
}

// Terminal prompts on a line-oriented terminal and re-asks until the value
// validates. End of input cancels.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal returns a prompter reading from in and writing to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Prompt implements Prompter.
func (t *Terminal) Prompt(ctx context.Context, name string) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprintf(t.out, "Set %s of the png: ", name)
		line, err := t.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if err != nil && line == "" {
			return "", fmt.Errorf("commands: %s prompt: %w", name, apperr.ErrCancelled)
		}
		if verr := ValidateSize(line); verr != nil {
			fmt.Fprintln(t.out, SizeMessage)
			if err != nil {
				return "", fmt.Errorf("commands: %s prompt: %w", name, apperr.ErrCancelled)
			}
			continue
		}
		return line, nil
	}
}
