package doctor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hay-kot/criterio"

	"github.com/umerkhan95/sitefeed/internal/core/config"
)

// ConfigCheck validates the loaded configuration and reports its warnings.
type ConfigCheck struct {
	cfg        *config.Config
	configPath string
}

// NewConfigCheck creates a configuration check.
func NewConfigCheck(cfg *config.Config, configPath string) *ConfigCheck {
	return &ConfigCheck{cfg: cfg, configPath: configPath}
}

func (c *ConfigCheck) Name() string {
	return "Configuration"
}

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if err := c.cfg.ValidateDeep(c.configPath); err != nil {
		var fieldErrs criterio.FieldErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				result.Items = append(result.Items, CheckItem{
					Label:  fe.Field,
					Status: StatusFail,
					Detail: fe.Err.Error(),
				})
			}
		} else {
			result.Items = append(result.Items, CheckItem{
				Label:  "config",
				Status: StatusFail,
				Detail: err.Error(),
			})
		}
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "config",
		Status: StatusPass,
		Detail: c.configPath,
	})

	for _, w := range c.cfg.Warnings() {
		label := w.Item
		if label == "" {
			label = w.Category
		}
		result.Items = append(result.Items, CheckItem{
			Label:  label,
			Status: StatusWarn,
			Detail: w.Message,
		})
	}

	return result
}

// Pinger is satisfied by the cache database.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// DatabaseCheck verifies the cache database answers.
type DatabaseCheck struct {
	db   Pinger
	path string
}

// NewDatabaseCheck creates a database check. path is only displayed.
func NewDatabaseCheck(db Pinger, path string) *DatabaseCheck {
	return &DatabaseCheck{db: db, path: path}
}

func (c *DatabaseCheck) Name() string {
	return "Cache"
}

func (c *DatabaseCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.db == nil {
		result.Items = append(result.Items, CheckItem{Label: "database", Status: StatusFail, Detail: "not opened"})
		return result
	}

	if err := c.db.PingContext(ctx); err != nil {
		result.Items = append(result.Items, CheckItem{Label: "database", Status: StatusFail, Detail: err.Error()})
		return result
	}

	result.Items = append(result.Items, CheckItem{Label: "database", Status: StatusPass, Detail: c.path})
	return result
}

// Endpoint is a remote API to probe.
type Endpoint struct {
	Label string
	URL   string
}

// EndpointCheck probes each endpoint with a GET request. Any HTTP answer
// below 500 counts as reachable; auth and not-found responses still prove
// the host is up.
type EndpointCheck struct {
	endpoints []Endpoint
	http      *http.Client
}

// NewEndpointCheck creates a reachability check. A nil hc uses a client
// with a 5 second timeout.
func NewEndpointCheck(hc *http.Client, endpoints ...Endpoint) *EndpointCheck {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &EndpointCheck{endpoints: endpoints, http: hc}
}

func (c *EndpointCheck) Name() string {
	return "Network"
}

func (c *EndpointCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	for _, ep := range c.endpoints {
		status, err := c.probe(ctx, ep.URL)
		switch {
		case err != nil:
			result.Items = append(result.Items, CheckItem{Label: ep.Label, Status: StatusFail, Detail: err.Error()})
		case status >= http.StatusInternalServerError:
			result.Items = append(result.Items, CheckItem{
				Label:  ep.Label,
				Status: StatusWarn,
				Detail: fmt.Sprintf("%s answered %d", ep.URL, status),
			})
		default:
			result.Items = append(result.Items, CheckItem{Label: ep.Label, Status: StatusPass, Detail: ep.URL})
		}
	}

	return result
}

func (c *EndpointCheck) probe(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}
