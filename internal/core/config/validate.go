package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"
)

// repoPattern matches GitHub owner/repo identifiers.
var repoPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,38})/[A-Za-z0-9._-]{1,100}$`)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// repository identifiers, exclude patterns, endpoints, and file accessibility.
// The configPath argument specifies the config file location to validate
// (empty string skips the config file check).
// This calls Validate() first for basic structural validation.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateRepos(),
		c.validateExclude(),
		criterio.Run("github.api_url", c.GitHub.APIURL, isHTTPURL),
		criterio.Run("geo.api_url", c.GEO.APIURL, isHTTPURL),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if len(c.GitHub.Repos) == 0 {
		warnings = append(warnings, ValidationWarning{
			Category: "GitHub",
			Item:     "github.repos",
			Message:  "no repositories tracked, the commit feed will be empty",
		})
	}

	if c.GitHub.Token() == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "GitHub",
			Item:     c.GitHub.TokenEnv,
			Message:  "token environment variable is not set, the commit feed will be empty",
		})
	}

	if c.GitHub.Username == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "GitHub",
			Item:     "github.username",
			Message:  "no author filter, commits from every author are listed",
		})
	}

	for i, pattern := range c.GitHub.Exclude {
		matched := false
		for _, repo := range c.GitHub.Repos {
			if ok, _ := doublestar.Match(pattern, repo); ok {
				matched = true
				break
			}
		}
		if !matched {
			warnings = append(warnings, ValidationWarning{
				Category: "GitHub",
				Item:     fmt.Sprintf("github.exclude[%d]", i),
				Message:  fmt.Sprintf("pattern %q matches no tracked repository", pattern),
			})
		}
	}

	return warnings
}

// validateFileAccess checks the config file and data directory.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateRepos() error {
	var errs criterio.FieldErrorsBuilder
	seen := make(map[string]bool, len(c.GitHub.Repos))

	for i, repo := range c.GitHub.Repos {
		field := fmt.Sprintf("github.repos[%d]", i)
		if !repoPattern.MatchString(repo) {
			errs = errs.Append(field, fmt.Errorf("%q is not an owner/repo identifier", repo))
			continue
		}
		if seen[repo] {
			errs = errs.Append(field, fmt.Errorf("duplicate repository %q", repo))
		}
		seen[repo] = true
	}

	return errs.ToError()
}

func (c *Config) validateExclude() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.GitHub.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("github.exclude[%d]", i), fmt.Errorf("invalid glob %q", pattern))
		}
	}
	return errs.ToError()
}

func isHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
