package commands

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/umerkhan95/sitefeed/internal/core/styles"
	"github.com/umerkhan95/sitefeed/internal/geo"
	"github.com/umerkhan95/sitefeed/pkg/iojson"
)

// errAborted is returned when the user cancels the URL prompt.
var errAborted = errors.New("aborted")

// requestInput resolves the website that optimize and audit act on: the
// first argument, a JSON request from --file or piped stdin, or an
// interactive prompt.
type requestInput struct {
	reader   iojson.FileReader[geo.OptimizeRequest]
	maxPages int

	// prompt asks for a URL on a terminal. Tests replace it.
	prompt func() (string, error)
}

func (in *requestInput) Flags() []cli.Flag {
	return []cli.Flag{
		in.reader.Flag(),
		&cli.IntFlag{
			Name:        "max-pages",
			Usage:       "maximum pages to crawl (defaults to geo.max_pages)",
			Destination: &in.maxPages,
		},
	}
}

// Resolve returns a validated request. defaultMaxPages applies when neither
// the flag nor the JSON request set a page cap.
func (in *requestInput) Resolve(c *cli.Command, defaultMaxPages int) (geo.OptimizeRequest, error) {
	var req geo.OptimizeRequest

	switch {
	case c.Args().Len() > 0:
		req.URL = c.Args().First()
	case in.reader.Provided():
		r, err := in.reader.Read()
		if err != nil {
			return req, fmt.Errorf("read request: %w", err)
		}
		req = r
	default:
		prompt := in.prompt
		if prompt == nil {
			prompt = promptURL
		}
		u, err := prompt()
		if err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return req, errAborted
			}
			return req, fmt.Errorf("prompt: %w", err)
		}
		req.URL = u
	}

	req.URL = strings.TrimSpace(req.URL)
	if err := validateURL(req.URL); err != nil {
		return req, err
	}

	if in.maxPages < 0 {
		return req, fmt.Errorf("--max-pages cannot be negative")
	}
	if in.maxPages > 0 {
		req.MaxPages = in.maxPages
	}
	if req.MaxPages == 0 {
		req.MaxPages = defaultMaxPages
	}

	return req, nil
}

func promptURL() (string, error) {
	if !isTerminal(os.Stdin) {
		return "", fmt.Errorf("a URL argument is required when stdin is not a terminal")
	}

	var u string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Website URL").
				Description("The site to analyze").
				Placeholder("https://example.com").
				Validate(validateURL).
				Value(&u),
		),
	).WithTheme(styles.FormTheme()).Run()
	return u, err
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of stdout, or fallback when it is not a terminal.
func terminalWidth(fallback int) int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}
