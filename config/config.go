package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	C "drape.com/drape/cloth"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultPath = "~/.config/drape/drape.toml"
	EnvPrefix   = "DRAPE_"
)

//Config is the whole program configuration. The cloth table feeds the solver
//directly, the rest belongs to the hosts around it
type Config struct {
	Cloth  C.Config `toml:"cloth"`
	View   View     `toml:"view"`
	Stream Stream   `toml:"stream"`
	Log    Log      `toml:"log"`
}

//View window and camera
type View struct {
	Width     int     `toml:"width"`
	Height    int     `toml:"height"`
	Title     string  `toml:"title"`
	FOV       float32 `toml:"fov"` //Degrees
	Distance  float32 `toml:"distance"`
	PointSize float32 `toml:"point_size"`
}

//Stream websocket server
type Stream struct {
	Addr        string `toml:"addr"`
	TickHz      int    `toml:"tick_hz"`
	BroadcastHz int    `toml:"broadcast_hz"`
	ReadLimit   int64  `toml:"read_limit"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` //text or json
}

func Default() Config {
	return Config{
		Cloth: C.DefaultConfig(),
		View: View{
			Width:     1440,
			Height:    800,
			Title:     "drape",
			FOV:       75,
			Distance:  15,
			PointSize: 4,
		},
		Stream: Stream{
			Addr:        ":8080",
			TickHz:      60,
			BroadcastHz: 30,
			ReadLimit:   1 << 20,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

//Validate checks every table, the cloth table through the solver's own rules
func (c Config) Validate() error {
	if err := c.Cloth.Validate(); err != nil {
		return err
	}
	if c.View.Width <= 0 || c.View.Height <= 0 {
		return fmt.Errorf("view size must be positive, got %dx%d", c.View.Width, c.View.Height)
	}
	if c.View.FOV <= 0 || c.View.FOV >= 180 {
		return fmt.Errorf("view fov must be within (0, 180), got %g", c.View.FOV)
	}
	if c.Stream.TickHz <= 0 || c.Stream.BroadcastHz <= 0 {
		return fmt.Errorf("stream rates must be positive, got tick %d broadcast %d", c.Stream.TickHz, c.Stream.BroadcastHz)
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	return nil
}

//Load reads the TOML file at path over the defaults, then applies DRAPE_*
//environment overrides. A missing file is not an error
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		p, err := homedir.Expand(path)
		if err != nil {
			return cfg, fmt.Errorf("expand config path %q: %w", path, err)
		}
		data, err := os.ReadFile(p)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", p, err)
		default:
			if err := Decode(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

//Decode unmarshals TOML onto cfg, keys it does not know are rejected
func Decode(data []byte, cfg *Config) error {
	return toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(cfg)
}

//Encode writes cfg as TOML
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

//InitEnv loads .env style files into the process environment. Files that do
//not exist are skipped
func InitEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

func GetEnvVariable(v string) (string, error) {
	if v == "" {
		return "", fmt.Errorf("input param empty")
	}
	b := os.Getenv(EnvPrefix + v)
	if b == "" {
		return "", fmt.Errorf("failed to get variable for %s%s", EnvPrefix, v)
	}
	return b, nil
}

//ApplyEnv overrides config values from DRAPE_* variables
func ApplyEnv(cfg *Config) error {
	ints := map[string]*int{
		"SEGMENTS_X": &cfg.Cloth.SegmentsX,
		"SEGMENTS_Y": &cfg.Cloth.SegmentsY,
		"ITERATIONS": &cfg.Cloth.Iterations,
	}
	for name, dst := range ints {
		s, err := GetEnvVariable(name)
		if err != nil {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
	}

	floats := map[string]*float32{
		"WIND_STRENGTH": &cfg.Cloth.WindStrength,
		"WEIGHT_SCALE":  &cfg.Cloth.WeightScale,
		"DAMPING":       &cfg.Cloth.Damping,
	}
	for name, dst := range floats {
		s, err := GetEnvVariable(name)
		if err != nil {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = float32(f)
	}

	if s, err := GetEnvVariable("ADDR"); err == nil {
		cfg.Stream.Addr = s
	}
	if s, err := GetEnvVariable("LOG_LEVEL"); err == nil {
		cfg.Log.Level = s
	}
	return nil
}

func (l Log) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return lvl, fmt.Errorf("log level %q: %w", l.Level, err)
	}
	return lvl, nil
}

//Logger builds the program logger writing to w
func (l Log) Logger(w io.Writer) *slog.Logger {
	lvl, err := l.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
