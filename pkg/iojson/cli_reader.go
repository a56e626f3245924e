package iojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// ErrNoInput is returned by Read when neither a file nor piped stdin is available.
var ErrNoInput = errors.New("no input provided (stdin is a terminal); use -f or pipe JSON input")

// FileReader decodes a T from the file named by its --file flag, or from
// piped stdin when the flag is empty.
type FileReader[T any] struct {
	path  string
	stdin io.Reader
	isTTY func() bool
}

// Flag returns the --file flag bound to this reader.
func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "read the request as JSON from `PATH` (- or empty reads piped stdin)",
		Destination: &fr.path,
	}
}

// Provided reports whether a JSON document is available, either through the
// flag or through non-terminal stdin.
func (fr *FileReader[T]) Provided() bool {
	if fr.path != "" {
		return true
	}
	return !fr.terminal()
}

// Read decodes the document.
func (fr *FileReader[T]) Read() (T, error) {
	var input T

	var r io.Reader
	switch {
	case fr.path != "" && fr.path != "-":
		f, err := os.Open(fr.path)
		if err != nil {
			return input, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	case fr.terminal():
		return input, ErrNoInput
	default:
		r = fr.input()
	}

	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return input, fmt.Errorf("decode JSON: %w", err)
	}
	return input, nil
}

func (fr *FileReader[T]) input() io.Reader {
	if fr.stdin != nil {
		return fr.stdin
	}
	return os.Stdin
}

func (fr *FileReader[T]) terminal() bool {
	if fr.isTTY != nil {
		return fr.isTTY()
	}
	if fr.stdin != nil {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}
