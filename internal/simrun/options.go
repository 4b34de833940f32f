package simrun

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/specialistvlad/poolsweep/internal/experiment"
	"github.com/specialistvlad/poolsweep/internal/valuation"
)

// ErrMissingArgument is returned when a required flag is absent.
var ErrMissingArgument = errors.New("missing required argument")

// Options is one simulation's parsed invocation.
type Options struct {
	ConfigPath string
	Params     experiment.Params
	// Overrides holds every "config:" flag, keyed without the leading dashes.
	Overrides           map[string]string
	DropoffMode         valuation.DropoffMode
	UnassignmentPenalty float64
	RejectionPenalty    float64
	FairCosts           bool
}

// OutputDir is the experiment's output directory, if one was passed.
func (o Options) OutputDir() string {
	return o.Overrides[experiment.OverrideOutputDirectory]
}

// ParseOptions parses "--name value" and "--name=value" pairs. Unknown
// flags are an error, except engine-native "--config:" overrides, which are
// collected verbatim.
func ParseOptions(args []string) (Options, error) {
	opts := Options{
		Params:    experiment.DefaultParams(),
		Overrides: make(map[string]string),
	}
	setters := opts.setters()

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return Options{}, fmt.Errorf("unexpected argument %q", arg)
		}
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !hasValue {
			if i+1 >= len(args) {
				return Options{}, fmt.Errorf("flag --%s needs a value", name)
			}
			i++
			value = args[i]
		}

		if strings.HasPrefix(name, experiment.ConfigOverridePrefix) {
			opts.Overrides[name] = value
			continue
		}
		set, ok := setters[name]
		if !ok {
			return Options{}, fmt.Errorf("unknown flag --%s", name)
		}
		if err := set(value); err != nil {
			return Options{}, fmt.Errorf("invalid value %q for --%s: %w", value, name, err)
		}
	}

	if opts.ConfigPath == "" {
		return Options{}, fmt.Errorf("%w: --%s", ErrMissingArgument, experiment.FlagConfigPath)
	}
	if v, ok := opts.Overrides[experiment.OverrideDispatchInterval]; ok {
		di, err := strconv.Atoi(v)
		if err != nil {
			return Options{}, fmt.Errorf("invalid dispatch interval %q: %w", v, err)
		}
		opts.Params.DispatchInterval = di
	}
	return opts, nil
}

func (o *Options) setters() map[string]func(string) error {
	p := &o.Params
	return map[string]func(string) error{
		experiment.FlagConfigPath: func(v string) error {
			o.ConfigPath = v
			return nil
		},
		experiment.FlagRandomSeed:             intSetter(&p.RandomSeed),
		experiment.FlagVulnerableProbability:  floatSetter(&p.VulnerableProbability),
		experiment.FlagVulnerableTime:         func(v string) error { return atoi(v, &p.VulnerableTime) },
		experiment.FlagFleetSize:              func(v string) error { return atoi(v, &p.FleetSize) },
		experiment.FlagUseAlonsoMora:          boolSetter(&p.UseAlonsoMora),
		experiment.FlagPrebookVulnerable:      boolSetter(&p.PrebookVulnerable),
		experiment.FlagPrebookingProbability:  floatSetter(&p.PrebookingShare),
		experiment.FlagMinimizePassengerDelay: boolSetter(&p.MinimizePassengerDelay),
		experiment.FlagInclusivePenalty:       boolSetter(&p.InclusivePenalty),
		experiment.FlagWeightAlpha:            floatSetter(&p.WeightAlpha),
		experiment.FlagDropoffMode: func(v string) error {
			mode, err := valuation.ParseDropoffMode(v)
			o.DropoffMode = mode
			return err
		},
		experiment.FlagUnassignmentPenalty: floatSetter(&o.UnassignmentPenalty),
		experiment.FlagRejectionPenalty:    floatSetter(&o.RejectionPenalty),
		experiment.FlagFairCosts:           boolSetter(&o.FairCosts),
	}
}

func intSetter(dst *int64) func(string) error {
	return func(v string) (err error) {
		*dst, err = strconv.ParseInt(v, 10, 64)
		return err
	}
}

func atoi(v string, dst *int) (err error) {
	*dst, err = strconv.Atoi(v)
	return err
}

func floatSetter(dst *float64) func(string) error {
	return func(v string) (err error) {
		*dst, err = strconv.ParseFloat(v, 64)
		return err
	}
}

func boolSetter(dst *bool) func(string) error {
	return func(v string) (err error) {
		*dst, err = strconv.ParseBool(v)
		return err
	}
}
