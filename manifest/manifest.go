// Package manifest describes suites of shell units in YAML.
//
//	shell: /bin/sh
//	suites:
//	  - name: search.IndexStress
//	    nightly: true
//	    setup: ["./start-index.sh"]
//	    export: ["./index-env.sh"]
//	    teardown: ["./stop-index.sh"]
//	    units:
//	      - name: bulk
//	        repeat: 3
//	        assume: "test -d /data"
//	        scaled:
//	          DOCUMENTS: [100, 1000]
//	        run: "./bulk.sh $DOCUMENTS"
package manifest

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/allegro/nightly-runner/filter"
	"github.com/allegro/nightly-runner/unit"
	"github.com/allegro/nightly-runner/unitlog"
)

// DefaultShell interprets every command of a manifest that names no shell.
const DefaultShell = "/bin/sh"

// Manifest is a set of suites loaded from YAML.
type Manifest struct {
	// Shell is called with -c and the command.
	Shell string `yaml:"shell"`
	// GracePeriod between stopping and killing background fixtures.
	GracePeriod time.Duration `yaml:"grace_period"`
	Suites      []Suite       `yaml:"suites"`

	appender  unitlog.Appender
	extenders []unitlog.Extender
}

// SetAppender sets the destination of structured unit output and extenders
// applied to it after the unit data. Without it the output goes to the
// standard logger.
func (m *Manifest) SetAppender(appender unitlog.Appender, extenders ...unitlog.Extender) {
	m.appender = appender
	m.extenders = extenders
}

// Suite of shell units. Commands listed in Setup, Export, Teardown and
// Background run around every unit of the suite.
type Suite struct {
	Name    string `yaml:"name"`
	Nightly bool   `yaml:"nightly"`
	// Setup commands run before each unit.
	Setup []string `yaml:"setup"`
	// Export commands run before each unit; KEY=VALUE lines they print are
	// exported to the unit.
	Export []string `yaml:"export"`
	// Teardown commands run after each unit.
	Teardown []string `yaml:"teardown"`
	// Background commands start before and are stopped after each unit.
	Background []string `yaml:"background"`
	Units      []Unit   `yaml:"units"`
}

// Unit is a shell command run as a test.
type Unit struct {
	Name    string `yaml:"name"`
	Nightly bool   `yaml:"nightly"`
	Repeat  int    `yaml:"repeat"`
	// AssumeNightly skips the unit after setup outside nightly mode.
	AssumeNightly bool `yaml:"assume_nightly"`
	// Assume is a command that must succeed for the unit to run. The unit is
	// skipped, not failed, when it does not.
	Assume string `yaml:"assume"`
	Run    string `yaml:"run"`
	// Output is the format of what the command prints on stdout: text,
	// logfmt or json. Structured output is forwarded line by line to the unit
	// log appender.
	Output string `yaml:"output"`
	// Scaled maps variable names to ranges. Every variable gets a scaled draw
	// from the unit stream, in name order.
	Scaled map[string]Range   `yaml:"scaled"`
	Env    map[string]string `yaml:"env"`
}

// Range of a scaled variable, written as [min, max] or {min: 1, max: 2}.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var bounds []int
		if err := node.Decode(&bounds); err != nil {
			return err
		}
		if len(bounds) != 2 {
			return errors.Errorf("line %d: range needs exactly two bounds, got %d", node.Line, len(bounds))
		}
		r.Min, r.Max = bounds[0], bounds[1]
		return nil
	}
	type plain Range
	return node.Decode((*plain)(r))
}

// Load reads the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read manifest")
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid manifest %s", path)
	}
	return m, nil
}

// Parse decodes and validates a manifest. Unknown keys are errors.
func Parse(data []byte) (*Manifest, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	m := &Manifest{appender: unitlog.Logrus{}}
	if err := decoder.Decode(m); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "cannot decode manifest")
	}
	if m.Shell == "" {
		m.Shell = DefaultShell
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	if m.GracePeriod < 0 {
		return errors.New("grace_period must not be negative")
	}
	suites := make(map[string]bool)
	for _, s := range m.Suites {
		if s.Name == "" {
			return errors.New("suite without name")
		}
		if suites[s.Name] {
			return errors.Errorf("duplicate suite %s", s.Name)
		}
		suites[s.Name] = true

		units := make(map[string]bool)
		for _, u := range s.Units {
			if err := unit.ValidateNames(s.Name, u.Name); err != nil {
				return err
			}
			if units[u.Name] {
				return errors.Errorf("duplicate unit %s.%s", s.Name, u.Name)
			}
			units[u.Name] = true
			if u.Run == "" {
				return errors.Errorf("unit %s.%s has nothing to run", s.Name, u.Name)
			}
			switch u.Output {
			case "", unitlog.FormatText, unitlog.FormatLogfmt, unitlog.FormatJSON:
			default:
				return errors.Errorf("unit %s.%s has unknown output format %q", s.Name, u.Name, u.Output)
			}
			if u.Repeat < 0 {
				return errors.Errorf("unit %s.%s has negative repeat", s.Name, u.Name)
			}
			for name, r := range u.Scaled {
				if r.Min > r.Max {
					return errors.Errorf("unit %s.%s: range of %s is empty: [%d, %d]", s.Name, u.Name, name, r.Min, r.Max)
				}
			}
		}
	}
	return nil
}

// SuiteMetadata implements filter.Reader.
func (m *Manifest) SuiteMetadata(suite string) (filter.Metadata, error) {
	for _, s := range m.Suites {
		if s.Name == suite {
			return filter.Metadata{RequiresNightly: s.Nightly}, nil
		}
	}
	return filter.Metadata{}, errors.Errorf("unknown suite %s", suite)
}

// UnitMetadata implements filter.Reader.
func (m *Manifest) UnitMetadata(id unit.Identity) (filter.Metadata, error) {
	for _, s := range m.Suites {
		if s.Name != id.Suite {
			continue
		}
		for _, u := range s.Units {
			if u.Name == id.Name {
				return filter.Metadata{RequiresNightly: u.Nightly}, nil
			}
		}
	}
	return filter.Metadata{}, errors.Errorf("unknown unit %s", id)
}
