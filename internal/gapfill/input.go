package gapfill

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Input is the operator side of the session. ReadLine shows prompt and
// returns the next line without its line ending; io.EOF ends the session.
type Input interface {
	ReadLine(prompt string) (string, error)
}

// LineReader reads operator lines from a terminal or any other stream.
type LineReader struct {
	r *bufio.Reader
	w io.Writer
}

// NewLineReader prompts on w and reads from r.
func NewLineReader(r io.Reader, w io.Writer) *LineReader {
	return &LineReader{r: bufio.NewReader(r), w: w}
}

func (l *LineReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(l.w, prompt)
	line, err := l.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ScriptedInput replays fixed answers, then reports io.EOF. Prompts are
// recorded so callers can check what was asked.
type ScriptedInput struct {
	Lines   []string
	Prompts []string
}

func (s *ScriptedInput) ReadLine(prompt string) (string, error) {
	s.Prompts = append(s.Prompts, prompt)
	if len(s.Lines) == 0 {
		return "", io.EOF
	}
	line := s.Lines[0]
	s.Lines = s.Lines[1:]
	return line, nil
}
