package genetic_search

import (
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tfpickard/tom.monster/rule"
	"github.com/tfpickard/tom.monster/simulation"
)

// outerConfig mirrors the teacher's reinforcement.OuterConfig: viper reads
// the file generically (any supported format, any nesting) into an
// interface{}, which is then re-marshaled through yaml.v3 into the strict,
// hand-editable domain structs below. This indirection exists because
// viper's own struct tags are `mapstructure`, while the domain config wants
// plain `yaml` tags for readability outside of Go.
type outerConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// fileConfig is the on-disk shape: a GA config plus the lattice/width/height
// of the grid genomes are evaluated on.
type fileConfig struct {
	GA         Config `yaml:"ga"`
	Lattice    string `yaml:"lattice"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	SeedWindow int    `yaml:"seedWindow"`
	Iterations int    `yaml:"iterations"`
}

// LoadConfig reads a YAML file describing a GA run and returns a Config,
// RunOptions, and the simulation.Config the best genome would ultimately be
// embedded on, generalizing reinforcement.FromYaml to GA/simulation params.
func LoadConfig(path string) (Config, RunOptions, simulation.Config, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))

	var zero simulation.Config
	if err := vp.ReadInConfig(); err != nil {
		return Config{}, RunOptions{}, zero, err
	}

	outer := &outerConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return Config{}, RunOptions{}, zero, err
	}

	raw, err := yaml.Marshal(outer.Def)
	if err != nil {
		return Config{}, RunOptions{}, zero, err
	}

	fc := &fileConfig{}
	if err := yaml.Unmarshal(raw, fc); err != nil {
		return Config{}, RunOptions{}, zero, err
	}

	lattice := rule.Square
	if fc.Lattice == "hex" {
		lattice = rule.Hex
	}

	parsedRule, err := rule.Parse(fc.GA.Rule)
	if err != nil {
		return Config{}, RunOptions{}, zero, err
	}

	gaConfig := fc.GA
	gaConfig.Lattice = lattice
	gaConfig.GridSize = fc.Width

	opts := RunOptions{
		Iterations: fc.Iterations,
		SeedWindow: fc.SeedWindow,
	}

	simConfig := simulation.Config{
		Lattice:   lattice,
		Width:     fc.Width,
		Height:    fc.Height,
		Rule:      parsedRule,
		Toroidal:  fc.GA.Toroidal,
		MaxPeriod: fitnessMaxPeriod,
	}

	return gaConfig, opts, simConfig, nil
}
