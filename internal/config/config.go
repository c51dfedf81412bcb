// Package config читает settings.yaml один раз при старте.
// Документ сначала проверяется CUE-схемой, потом разбирается yaml.v3.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed settings.cue
var schemaSrc string

var ErrInvalid = errors.New("invalid settings")

const DefaultBBSFile = "bbs.db"

type Settings struct {
	Location     string   `yaml:"LOCATION"`
	TideLocation string   `yaml:"TIDE_LOCATION"`
	MyNode       string   `yaml:"MYNODE"`
	MyNodes      []string `yaml:"MYNODES"`
	DBFile       string   `yaml:"DBFILENAME"`
	BBSFile      string   `yaml:"BBSFILENAME"`
	DMMode       bool     `yaml:"DM_MODE"`
	Firewall     bool     `yaml:"FIREWALL"`
	DutyCycle    bool     `yaml:"DUTYCYCLE"`
}

// Load читает и проверяет файл настроек, заполняя значения по умолчанию.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

func Parse(name string, data []byte) (*Settings, error) {
	if err := Validate(name, data); err != nil {
		return nil, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	s.applyDefaults()
	return &s, nil
}

func (s *Settings) applyDefaults() {
	s.Location = strings.TrimSpace(s.Location)
	s.TideLocation = strings.TrimSpace(s.TideLocation)
	if s.TideLocation == "" {
		s.TideLocation = s.Location
	}
	s.MyNode = strings.ToLower(strings.TrimSpace(s.MyNode))
	nodes := s.MyNodes[:0]
	for _, n := range s.MyNodes {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			nodes = append(nodes, n)
		}
	}
	s.MyNodes = nodes
	if s.BBSFile == "" {
		s.BBSFile = DefaultBBSFile
	}
}

// Validate проверяет YAML-документ встроенной CUE-схемой.
func Validate(name string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("settings schema: %w", err)
	}
	f, err := cueyaml.Extract(name, data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	v := ctx.BuildFile(f)
	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	if err := schema.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	return nil
}
