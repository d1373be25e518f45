package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrDisabled wraps every reason diagnostics cannot be enabled.
var ErrDisabled = errors.New("diagnostics disabled")

// Credentials is the JSON payload of the diagnostics service credential.
type Credentials struct {
	ProjectID    string `json:"project_id"`
	DatabasePath string `json:"database_path"`
}

// ParseCredentials decodes and checks a credential payload.
func ParseCredentials(payload string) (Credentials, error) {
	var c Credentials
	if strings.TrimSpace(payload) == "" {
		return c, fmt.Errorf("%w: no credentials configured", ErrDisabled)
	}
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return c, fmt.Errorf("%w: invalid credentials: %v", ErrDisabled, err)
	}
	if c.DatabasePath == "" {
		return c, fmt.Errorf("%w: credentials missing database_path", ErrDisabled)
	}
	if c.ProjectID == "" {
		c.ProjectID = "default"
	}
	return c, nil
}

// Open builds a started dispatcher backed by the store named in payload.
// Any error wraps ErrDisabled; callers are expected to fall back to NewDisabled.
func Open(payload string, opts ...Option) (*Dispatcher, error) {
	creds, err := ParseCredentials(payload)
	if err != nil {
		return nil, err
	}

	sink, err := OpenSQLiteSink(creds.DatabasePath, creds.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisabled, err)
	}

	d := NewDispatcher(sink, opts...)
	d.Start()
	return d, nil
}
