package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/after5cst/gracecam/lib/orchestrator"
	"github.com/after5cst/gracecam/lib/position"
	"github.com/after5cst/gracecam/lib/trigger"
)

type Config struct {
	Log      LogConfig                `mapstructure:"log"`
	MIDI     MIDIConfig               `mapstructure:"midi"`
	Switcher SwitcherConfig           `mapstructure:"switcher"`
	Cameras  []CameraConfig           `mapstructure:"cameras"`
	Camera   CameraTiming             `mapstructure:"camera"`
	Notes    map[string]string        `mapstructure:"notes"`
	Rules    []RuleConfig             `mapstructure:"rules"`
	Standby  []string                 `mapstructure:"standby"`
	Random   []string                 `mapstructure:"random"`
	Staging  map[string]StagingConfig `mapstructure:"staging"`
	HTTP     HTTPConfig               `mapstructure:"http"`
	Journal  JournalConfig            `mapstructure:"journal"`
	Deck     DeckConfig               `mapstructure:"deck"`
	Loop     LoopConfig               `mapstructure:"loop"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MIDIConfig struct {
	Port        string        `mapstructure:"port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type SwitcherConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ME             int           `mapstructure:"me"`
	Settle         time.Duration `mapstructure:"settle"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// CameraConfig describes one camera. Source is its switcher input; zero
// means its 1-based position in the list.
type CameraConfig struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Source  int    `mapstructure:"source"`
}

type CameraTiming struct {
	MoveDelay      time.Duration `mapstructure:"move_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type RuleConfig struct {
	When     string `mapstructure:"when"`
	Position string `mapstructure:"position"`
}

type StagingConfig struct {
	Preview string `mapstructure:"preview"`
	Standby string `mapstructure:"standby"`
}

type HTTPConfig struct {
	Addr        string        `mapstructure:"addr"`
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// JournalConfig: an empty Path disables the journal.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

type DeckConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Brightness int      `mapstructure:"brightness"`
	Positions  []string `mapstructure:"positions"`
}

type LoopConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// defaultNotes is applied only when the file has no notes section, so that
// a partial table never merges with it.
var defaultNotes = map[string]string{
	"C": "PULPIT", "C#": "PULPIT",
	"D": "LEADER", "D#": "LEADER",
	"E": "WIDE",
	"F": "ORGAN", "F#": "ORGAN",
	"G": "MIDDLE", "G#": "MIDDLE",
	"A": "PIANO", "A#": "PIANO",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("midi.port", "IAC")
	v.SetDefault("midi.read_timeout", time.Second)
	v.SetDefault("switcher.host", "127.0.0.1")
	v.SetDefault("switcher.port", 9910)
	v.SetDefault("switcher.me", 0)
	v.SetDefault("switcher.settle", 500*time.Millisecond)
	v.SetDefault("switcher.connect_timeout", 10*time.Second)
	v.SetDefault("camera.move_delay", time.Second)
	v.SetDefault("camera.request_timeout", 2*time.Second)
	v.SetDefault("standby", []string{"LEADER", "PULPIT"})
	v.SetDefault("random", []string{"LEADER", "ORGAN", "MIDDLE", "PIANO", "WIDE"})
	v.SetDefault("http.addr", ":5000")
	v.SetDefault("http.min_interval", 10*time.Second)
	v.SetDefault("journal.path", "")
	v.SetDefault("deck.enabled", false)
	v.SetDefault("deck.brightness", 60)
	v.SetDefault("deck.positions", []string{"PULPIT", "LEADER", "WIDE", "ORGAN", "MIDDLE", "PIANO"})
	v.SetDefault("loop.poll_interval", time.Second)
}

// LoadConfig reads path (YAML) and GRACECAM_* environment overrides, e.g.
// GRACECAM_HTTP_ADDR.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	setDefaults(v)
	v.SetEnvPrefix("GRACECAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if len(cfg.Notes) == 0 {
		cfg.Notes = defaultNotes
	}
	for i := range cfg.Cameras {
		if cfg.Cameras[i].Source == 0 {
			cfg.Cameras[i].Source = i + 1
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Cameras) < 3 {
		errs = append(errs, fmt.Errorf("need at least 3 cameras, have %d", len(c.Cameras)))
	}
	names := map[string]bool{}
	sources := map[int]bool{}
	for _, cam := range c.Cameras {
		key := strings.ToLower(cam.Name)
		switch {
		case cam.Name == "":
			errs = append(errs, errors.New("camera with empty name"))
		case names[key]:
			errs = append(errs, fmt.Errorf("duplicate camera name %q", cam.Name))
		}
		if sources[cam.Source] {
			errs = append(errs, fmt.Errorf("duplicate camera source %d", cam.Source))
		}
		if cam.Address == "" {
			errs = append(errs, fmt.Errorf("camera %q has no address", cam.Name))
		}
		names[key] = true
		sources[cam.Source] = true
	}

	if _, err := c.NoteTable(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.TriggerRules(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Standby) == 0 {
		errs = append(errs, errors.New("standby list is empty"))
	}
	if len(c.Random) == 0 {
		errs = append(errs, errors.New("random list is empty"))
	}
	if _, err := c.OrchestratorConfig(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.DeckPositions(); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) NoteTable() (map[string]position.Position, error) {
	out := make(map[string]position.Position, len(c.Notes))
	for note, name := range c.Notes {
		p, err := position.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("notes.%s: %w", note, err)
		}
		out[note] = p
	}
	return out, nil
}

func (c *Config) TriggerRules() ([]trigger.Rule, error) {
	var out []trigger.Rule
	for i, r := range c.Rules {
		p, err := position.Parse(r.Position)
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		out = append(out, trigger.Rule{When: r.When, Position: p})
	}
	return out, nil
}

// cameraName resolves a name case-insensitively; viper lowercases map keys.
func (c *Config) cameraName(name string) (string, bool) {
	for _, cam := range c.Cameras {
		if strings.EqualFold(cam.Name, name) {
			return cam.Name, true
		}
	}
	return "", false
}

func (c *Config) OrchestratorConfig() (orchestrator.Config, error) {
	standby, err := position.ParseList(c.Standby)
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("standby: %w", err)
	}
	random, err := position.ParseList(c.Random)
	if err != nil {
		return orchestrator.Config{}, fmt.Errorf("random: %w", err)
	}

	staging := make(map[string]orchestrator.Staging, len(c.Staging))
	for program, st := range c.Staging {
		var names [3]string
		for i, n := range []string{program, st.Preview, st.Standby} {
			name, ok := c.cameraName(n)
			if !ok {
				return orchestrator.Config{}, fmt.Errorf("staging.%s: unknown camera %q", program, n)
			}
			names[i] = name
		}
		staging[names[0]] = orchestrator.Staging{Preview: names[1], Standby: names[2]}
	}

	return orchestrator.Config{
		Standby: standby,
		Random:  random,
		Staging: staging,
		Settle:  c.Switcher.Settle,
	}, nil
}

func (c *Config) DeckPositions() ([]position.Position, error) {
	ps, err := position.ParseList(c.Deck.Positions)
	if err != nil {
		return nil, fmt.Errorf("deck.positions: %w", err)
	}
	return ps, nil
}
