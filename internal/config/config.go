// Package config loads the tileboard YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/tileboard/internal/core/animation"
	"github.com/zeusync/tileboard/internal/core/board"
	"github.com/zeusync/tileboard/internal/core/geom"
	"github.com/zeusync/tileboard/internal/core/instancing"
	"github.com/zeusync/tileboard/internal/core/observability/log"
	"github.com/zeusync/tileboard/internal/core/picking"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Board     BoardConfig     `json:"board" yaml:"board"`
	Animation AnimationConfig `json:"animation" yaml:"animation"`
	Camera    CameraConfig    `json:"camera" yaml:"camera"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

type BoardConfig struct {
	Groups       []string `json:"groups" yaml:"groups"`
	TilesNumber  int      `json:"tiles_number" yaml:"tiles_number"`
	GroundExtent float32  `json:"ground_extent" yaml:"ground_extent"`
	// Populate fills the grid with random tiles when a session starts.
	Populate bool   `json:"populate" yaml:"populate"`
	Seed     uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

type AnimationConfig struct {
	Duration time.Duration `json:"duration" yaml:"duration"`
	Easing   string        `json:"easing" yaml:"easing"`
	Axis     string        `json:"axis" yaml:"axis"`
	Lift     float32       `json:"lift" yaml:"lift"`
}

type CameraConfig struct {
	Position [3]float32 `json:"position" yaml:"position"`
	Target   [3]float32 `json:"target" yaml:"target"`
	Up       [3]float32 `json:"up" yaml:"up"`
	FovY     float32    `json:"fov_y" yaml:"fov_y"`
	Near     float32    `json:"near" yaml:"near"`
	Far      float32    `json:"far" yaml:"far"`
}

type ServerConfig struct {
	HTTPAddr string `json:"http_addr" yaml:"http_addr"`
	// QUICAddr is optional; empty disables the QUIC listener.
	QUICAddr string `json:"quic_addr,omitempty" yaml:"quic_addr,omitempty"`
	// CertFile and KeyFile serve QUIC with a real certificate. When both are
	// empty a self-signed one is generated at startup.
	CertFile      string        `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile       string        `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	FrameRate     int           `json:"frame_rate" yaml:"frame_rate"`
	CommandBuffer int           `json:"command_buffer" yaml:"command_buffer"`
	SendBuffer    int           `json:"send_buffer" yaml:"send_buffer"`
	WriteTimeout  time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

type StorageConfig struct {
	// Path of the SQLite layout database. Empty disables layout persistence.
	Path string `json:"path" yaml:"path"`
}

type LogConfig struct {
	Level       string   `json:"level" yaml:"level"`
	Encoding    string   `json:"encoding" yaml:"encoding"`
	OutputPaths []string `json:"output_paths" yaml:"output_paths"`
}

func Default() *Config {
	cam := picking.DefaultCamera()
	return &Config{
		Board: BoardConfig{
			Groups:       append([]string(nil), instancing.DefaultGroupNames...),
			TilesNumber:  30,
			GroundExtent: 100,
		},
		Animation: AnimationConfig{
			Duration: 600 * time.Millisecond,
			Easing:   "quad-out",
			Axis:     "y",
			Lift:     1,
		},
		Camera: CameraConfig{
			Position: cam.Position,
			Target:   cam.Target,
			Up:       cam.Up,
			FovY:     cam.FovY,
			Near:     cam.Near,
			Far:      cam.Far,
		},
		Server: ServerConfig{
			HTTPAddr:      ":8080",
			FrameRate:     60,
			CommandBuffer: 64,
			SendBuffer:    32,
			WriteTimeout:  5 * time.Second,
		},
		Storage: StorageConfig{Path: "tileboard.db"},
		Log: LogConfig{
			Level:       "info",
			Encoding:    "json",
			OutputPaths: []string{"stderr"},
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

func LoadYAML(r io.Reader) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Board.Groups) == 0 {
		errs = append(errs, errors.New("board.groups is empty"))
	}
	if c.Board.TilesNumber <= 0 {
		errs = append(errs, fmt.Errorf("board.tiles_number must be positive, got %d", c.Board.TilesNumber))
	}
	if c.Board.GroundExtent <= 0 {
		errs = append(errs, errors.New("board.ground_extent must be positive"))
	}
	if c.Animation.Duration < 0 {
		errs = append(errs, errors.New("animation.duration is negative"))
	}
	if _, err := animation.ParseEasing(c.Animation.Easing); err != nil {
		errs = append(errs, fmt.Errorf("animation.easing: %w", err))
	}
	if _, ok := geom.ParseAxis(c.Animation.Axis); !ok {
		errs = append(errs, fmt.Errorf("animation.axis %q is not x, y or z", c.Animation.Axis))
	}
	if c.Camera.FovY <= 0 || c.Camera.FovY >= 180 {
		errs = append(errs, fmt.Errorf("camera.fov_y %v out of range", c.Camera.FovY))
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		errs = append(errs, errors.New("camera near/far planes are invalid"))
	}
	if c.Server.FrameRate <= 0 {
		errs = append(errs, errors.New("server.frame_rate must be positive"))
	}
	if c.Server.CommandBuffer < 0 || c.Server.SendBuffer < 0 {
		errs = append(errs, errors.New("server buffers must not be negative"))
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		errs = append(errs, errors.New("server.cert_file and server.key_file must be set together"))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// BoardOptions converts the board, animation and camera sections.
func (c *Config) BoardOptions() (board.Options, error) {
	easing, err := animation.ParseEasing(c.Animation.Easing)
	if err != nil {
		return board.Options{}, err
	}
	axis, ok := geom.ParseAxis(c.Animation.Axis)
	if !ok {
		return board.Options{}, fmt.Errorf("axis %q: %w", c.Animation.Axis, ErrInvalidConfig)
	}
	return board.Options{
		Groups:       c.Board.Groups,
		TilesNumber:  c.Board.TilesNumber,
		GroundExtent: c.Board.GroundExtent,
		Camera: picking.Camera{
			Position: mgl32.Vec3(c.Camera.Position),
			Target:   mgl32.Vec3(c.Camera.Target),
			Up:       mgl32.Vec3(c.Camera.Up),
			FovY:     c.Camera.FovY,
			Near:     c.Camera.Near,
			Far:      c.Camera.Far,
		},
		Animation: animation.Options{
			Duration: c.Animation.Duration,
			Easing:   easing,
			Axis:     axis,
			Lift:     c.Animation.Lift,
		},
	}, nil
}

func (c *Config) LogOptions() (log.Options, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.Options{}, err
	}
	return log.Options{Level: level, Encoding: c.Log.Encoding, OutputPaths: c.Log.OutputPaths}, nil
}

// FrameInterval is the tick period derived from the frame rate.
func (s ServerConfig) FrameInterval() time.Duration {
	return time.Second / time.Duration(s.FrameRate)
}
