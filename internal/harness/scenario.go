package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultNow is the clock used for relative dates when a scenario does
// not pin one.
const DefaultNow = "2024-05-10T12:00:00Z"

// Scenario defines a search conformance scenario.
// A scenario loads a schema and a fixture database, runs a list of search
// strings against one entity and checks what each search produced.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE package directory declaring the entities.
	// Relative paths resolve against the scenario file location.
	Schema string `yaml:"schema"`

	// Fixture is an SQL script creating and filling the tables.
	// Relative paths resolve against the scenario file location.
	Fixture string `yaml:"fixture"`

	// Entity names the entity every search runs against.
	Entity string `yaml:"entity"`

	// Now pins the clock for relative dates (RFC 3339).
	// If empty, DefaultNow is used so golden files stay stable.
	Now string `yaml:"now,omitempty"`

	// DateFormat overrides the layout dates are compared in.
	DateFormat string `yaml:"date_format,omitempty"`

	// Searches run in order, each on the same fixture.
	Searches []SearchStep `yaml:"searches"`
}

// SearchStep is one search string and its expected outcome.
type SearchStep struct {
	Search string `yaml:"search"`

	// Expect is optional. Without it the step only has to run cleanly.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies what a search must produce.
// Only the specified fields are checked.
type ExpectClause struct {
	// IDs are the primary keys of the returned rows, in order.
	IDs []any `yaml:"ids,omitempty"`

	// Count is the number of returned rows.
	Count *int `yaml:"count,omitempty"`

	// SQL is the exact compiled statement.
	SQL string `yaml:"sql,omitempty"`

	// Error is the expected error code (e.g. "E201", "E303").
	Error string `yaml:"error,omitempty"`

	// Rows are matched against the returned rows in order.
	// This is a subset match: only the listed columns are compared,
	// and eager loaded relations may be nested.
	Rows []map[string]any `yaml:"rows,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving schema and fixture paths
// against dir.
func ParseScenario(data []byte, dir string) (*Scenario, error) {
	// Strict field validation catches typos like "search:" vs "searches:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.Schema = resolve(dir, scenario.Schema)
	scenario.Fixture = resolve(dir, scenario.Fixture)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}

// clock returns the instant relative dates resolve against.
func (s *Scenario) clock() (time.Time, error) {
	now := s.Now
	if now == "" {
		now = DefaultNow
	}
	return time.Parse(time.RFC3339, now)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if s.Fixture == "" {
		return fmt.Errorf("fixture is required")
	}
	if s.Entity == "" {
		return fmt.Errorf("entity is required")
	}
	if len(s.Searches) == 0 {
		return fmt.Errorf("searches list is required and must be non-empty")
	}
	if _, err := s.clock(); err != nil {
		return fmt.Errorf("now: %w", err)
	}

	if info, err := os.Stat(s.Schema); err != nil || !info.IsDir() {
		return fmt.Errorf("schema directory not found: %s", s.Schema)
	}
	if _, err := os.Stat(s.Fixture); err != nil {
		return fmt.Errorf("fixture file not found: %s", s.Fixture)
	}

	for i, step := range s.Searches {
		if step.Expect != nil {
			if err := validateExpect(i, step.Expect); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateExpect(index int, e *ExpectClause) error {
	if e.Count != nil && *e.Count < 0 {
		return fmt.Errorf("searches[%d].expect: count must be non-negative", index)
	}
	if e.Error != "" && (e.IDs != nil || e.Count != nil || e.SQL != "" || e.Rows != nil) {
		return fmt.Errorf("searches[%d].expect: error cannot be combined with results", index)
	}
	return nil
}
