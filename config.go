package turbofan

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/hoburg/turbofan/gp"
	"github.com/spf13/viper"
)

// Scenario is a mission to solve or sweep, as read from a TOML file.
type Scenario struct {
	Name     string
	Topology Topology
	Climb    int // points of the (first) climb
	Climb2   int // points of the second climb, two climb missions only
	Cruise   int

	Substitutions gp.Substitutions
	Guess         map[string]float64
	Solver        gp.SolveOptions

	Workers      int
	SkipFailures bool

	CSV, SQLite string
}

type substitutionEntry struct {
	Name  string    `mapstructure:"name"`
	Value float64   `mapstructure:"value"`
	Sweep []float64 `mapstructure:"sweep"`
}

type guessEntry struct {
	Name  string  `mapstructure:"name"`
	Value float64 `mapstructure:"value"`
}

// LoadScenario reads a scenario file. Substitutions listed in the file are applied over
// DefaultSubstitutions, and guesses over nothing: missing guesses come from Mission.InitialGuess.
//
//	[mission]
//	name = "d8"
//	topology = "two-climb"
//	climb = 2
//	climb2 = 2
//	cruise = 4
//
//	[[substitutions]]
//	name = "ReqRng"
//	sweep = [1000, 2000, 3000]
func LoadScenario(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if !strings.HasSuffix(path, ".toml") {
		v.SetConfigType("toml")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	return scenarioFromViper(v)
}

func scenarioFromViper(v *viper.Viper) (*Scenario, error) {
	v.SetDefault("mission.topology", ClimbCruise.String())
	v.SetDefault("mission.climb", 2)
	v.SetDefault("mission.cruise", 2)
	v.SetDefault("sweep.workers", runtime.NumCPU())

	topo, err := TopologyFromString(v.GetString("mission.topology"))
	if err != nil {
		return nil, err
	}
	sc := &Scenario{
		Name:          v.GetString("mission.name"),
		Topology:      topo,
		Climb:         v.GetInt("mission.climb"),
		Climb2:        v.GetInt("mission.climb2"),
		Cruise:        v.GetInt("mission.cruise"),
		Substitutions: DefaultSubstitutions(),
		Guess:         make(map[string]float64),
		Solver: gp.SolveOptions{
			MaxIter:  v.GetInt("solver.max_iter"),
			RelTol:   v.GetFloat64("solver.rel_tol"),
			TightTol: v.GetFloat64("solver.tight_tol"),
		},
		Workers:      v.GetInt("sweep.workers"),
		SkipFailures: v.GetBool("sweep.skip_failures"),
		CSV:          v.GetString("output.csv"),
		SQLite:       v.GetString("output.sqlite"),
	}
	if sc.Name == "" {
		sc.Name = topo.String()
	}
	if topo == TwoClimbCruiseClimb && sc.Climb2 == 0 {
		sc.Climb2 = sc.Climb
	}

	var subs []substitutionEntry
	if err := v.UnmarshalKey("substitutions", &subs); err != nil {
		return nil, fmt.Errorf("scenario substitutions: %w", err)
	}
	for i, e := range subs {
		if e.Name == "" {
			return nil, fmt.Errorf("substitution %d has no name", i)
		}
		switch {
		case len(e.Sweep) > 0:
			sc.Substitutions[e.Name] = gp.Swept(e.Sweep...)
		case e.Value > 0:
			sc.Substitutions[e.Name] = gp.Fixed(e.Value)
		default:
			return nil, fmt.Errorf("substitution %s needs a positive value or a sweep", e.Name)
		}
	}
	var guesses []guessEntry
	if err := v.UnmarshalKey("guess", &guesses); err != nil {
		return nil, fmt.Errorf("scenario guesses: %w", err)
	}
	for _, e := range guesses {
		sc.Guess[e.Name] = e.Value
	}
	return sc, nil
}

// NewMission builds the mission of the scenario.
func (sc *Scenario) NewMission() (*Mission, error) {
	switch sc.Topology {
	case ClimbCruise:
		return NewMission(sc.Climb, sc.Cruise)
	case TwoClimbCruiseClimb:
		return NewTwoClimbMission(sc.Climb, sc.Climb2, sc.Cruise)
	}
	return nil, fmt.Errorf("unknown mission topology %s", sc.Topology)
}

// DefaultSubstitutions returns the constants of a 150 passenger single aisle aircraft flying
// 2000 nmi in a standard atmosphere.
func DefaultSubstitutions() gp.Substitutions {
	subs := gp.Substitutions{
		"ReqRng":   gp.Fixed(2000),
		"RC_{min}": gp.Fixed(500),

		"numeng":       gp.Fixed(1),
		"n_{pax}":      gp.Fixed(150),
		"W_{pax}":      gp.Fixed(91 * gravity),
		"pax_{area}":   gp.Fixed(1),
		"W_{e,A}":      gp.Fixed(2000),
		"b_{max}":      gp.Fixed(60),
		"W_{w,surf}":   gp.Fixed(45),
		"W_{w,strc}":   gp.Fixed(1e-5),
		"N_{ult}":      gp.Fixed(3.75),
		"\\tau":        gp.Fixed(0.12),
		"e":            gp.Fixed(0.9),
		"C_{D0}":       gp.Fixed(0.022),
		"C_{L,max}":    gp.Fixed(1.6),
		"M_{max}":      gp.Fixed(0.8),
		"dhft_{min}":   gp.Fixed(10),
		"F_{SL_{max}}": gp.Fixed(2.5e5),
		"K_{engine}":   gp.Fixed(0.2),
		"TSFC_{0}":     gp.Fixed(1.25e-4),
		"TSFC_{M}":     gp.Fixed(0.625e-4),
		"M_{2.5_D}":    gp.Fixed(0.6),
	}
	for k, v := range atmosphereConstants() {
		subs[k] = gp.Fixed(v)
	}
	return subs
}
