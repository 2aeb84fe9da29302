package planning

import (
	"context"
	"fmt"
	"strings"
	"time"

	. "gridmdp/grid_world"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// OuterConfig is the config-file envelope: a kind and its definition.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// SolverConfig encodes the solver selection and parameters outside of code.
// Viper lowercases every key it reads, so the yaml tags are lowercase; the config file itself may use any case.
type SolverConfig struct {
	// Algorithm is "value-iteration" or "policy-iteration".
	Algorithm string `yaml:"algorithm"`
	// Evaluation is "iterative" or "exact" (policy iteration only).
	Evaluation string `yaml:"evaluation"`
	// Improvement is "policy-only" or "policy-and-value" (policy iteration only).
	Improvement string `yaml:"improvement"`
	// InitialPolicy is a direction name, or "random".
	InitialPolicy string `yaml:"initialpolicy"`
	Seed          int64  `yaml:"seed"`
	// HyperParams is a key-val list of numeric params: threshold, maxIterations, tieEpsilon.
	HyperParams []HyperParameter `yaml:"hyperparams"`
	// Deadline bounds the solve's wall time, e.g. {duration: 30s}.
	Deadline map[string]string `yaml:"deadline"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

const SOLVER_CONFIG_KIND = "solver"

// GetHyperParamOrDefault returns the value of param, compared case-insensitively, or defaultVal.
func (cfg *SolverConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if strings.EqualFold(kvp.Key, param) {
			return kvp.Val
		}
	}
	return defaultVal
}

// SetHyperParam sets param, replacing any entry of the same key.
func (cfg *SolverConfig) SetHyperParam(param string, val float64) {
	for i, kvp := range cfg.HyperParams {
		if strings.EqualFold(kvp.Key, param) {
			cfg.HyperParams[i].Val = val
			return
		}
	}
	cfg.HyperParams = append(cfg.HyperParams, HyperParameter{Key: param, Val: val})
}

// WithDeadline returns a context extended by the solve deadline, if one is specified.
func (cfg *SolverConfig) WithDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.Deadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, invalidInput(fmt.Errorf("deadline: %w", err))
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// Options converts the config to engine options, starting from DefaultOptions.
func (cfg *SolverConfig) Options() (opts Options, err error) {
	opts = DefaultOptions()
	opts.Threshold = cfg.GetHyperParamOrDefault("threshold", opts.Threshold)
	opts.MaxIterations = int(cfg.GetHyperParamOrDefault("maxIterations", float64(opts.MaxIterations)))
	opts.TieEpsilon = cfg.GetHyperParamOrDefault("tieEpsilon", opts.TieEpsilon)
	if cfg.Seed != 0 {
		opts.Seed = cfg.Seed
	}

	if opts.Evaluation, err = ParseEvaluationMode(cfg.Evaluation); err != nil {
		return
	}
	if opts.Improvement, err = ParseImprovementMode(cfg.Improvement); err != nil {
		return
	}

	switch initial := strings.TrimSpace(cfg.InitialPolicy); {
	case initial == "":
	case strings.EqualFold(initial, "random"):
		opts.RandomPolicy = true
	default:
		if opts.InitialPolicy, err = ParseDirection(initial); err != nil {
			err = invalidInput(err)
			return
		}
	}

	err = opts.validate()
	return
}

// DefaultConfig is the config used when no file is given.
func DefaultConfig() *SolverConfig {
	return &SolverConfig{Algorithm: ValueIterationAlgorithm}
}

// FromYaml reads a solver config file of the form:
//
//	kind: solver
//	def:
//	  algorithm: policy-iteration
//	  evaluation: exact
//	  hyperParams:
//	    - key: threshold
//	      val: 0.001
func FromYaml(path string) (*SolverConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, err
	}
	if outerConfig.Kind != SOLVER_CONFIG_KIND {
		return nil, invalidInput(fmt.Errorf("config kind must be %q, got %q", SOLVER_CONFIG_KIND, outerConfig.Kind))
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := &SolverConfig{}
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, err
	}

	return innerConfig, nil
}
