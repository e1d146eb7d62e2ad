package configure

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kr/pretty"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/toolset/dcplayer/av"
	"github.com/toolset/dcplayer/geo"
	"github.com/toolset/dcplayer/player"
	"github.com/toolset/dcplayer/video"
)

/*
dcplayer.yaml

	video_path: capture.dcv
	action: merge
	output_path: merged.dcv
	voxel_size: 0.005
	min_bound: "-2,-2,-2"
	max_bound: "2,2,2"
*/

// 실행 설정. 기본값 -> 플래그 -> 설정 파일 -> 환경 변수 순서로 덮어쓴다.
type Cfg struct {
	Level      string `json:"level" mapstructure:"level"`
	ConfigFile string `json:"config_file" mapstructure:"config_file"`
	VideoPath  string `json:"video_path" mapstructure:"video_path"`
	OutputPath string `json:"output_path" mapstructure:"output_path"`
	Action     string `json:"action" mapstructure:"action"`

	Loop           bool    `json:"loop" mapstructure:"loop"`
	StartTimeMs    float64 `json:"start_time_ms" mapstructure:"start_time_ms"`
	EndTimeMs      float64 `json:"end_time_ms" mapstructure:"end_time_ms"`
	PlayDurationMs int     `json:"play_duration_ms" mapstructure:"play_duration_ms"`
	TickMs         int     `json:"tick_ms" mapstructure:"tick_ms"`
	DecodeWorkers  int     `json:"decode_workers" mapstructure:"decode_workers"`
	FrameCacheTTL  int     `json:"frame_cache_ttl" mapstructure:"frame_cache_ttl"`

	DecodeColor          bool `json:"decode_color" mapstructure:"decode_color"`
	DecodeDepth          bool `json:"decode_depth" mapstructure:"decode_depth"`
	DecodeInfra          bool `json:"decode_infra" mapstructure:"decode_infra"`
	BuildCloud           bool `json:"build_cloud" mapstructure:"build_cloud"`
	BuildDepthSizedColor bool `json:"build_depth_sized_color" mapstructure:"build_depth_sized_color"`

	VoxelSize float64 `json:"voxel_size" mapstructure:"voxel_size"`
	MinBound  string  `json:"min_bound" mapstructure:"min_bound"`
	MaxBound  string  `json:"max_bound" mapstructure:"max_bound"`

	TrimStartMs float64 `json:"trim_start_ms" mapstructure:"trim_start_ms"`
	TrimEndMs   float64 `json:"trim_end_ms" mapstructure:"trim_end_ms"`

	RedisAddr  string `json:"redis_addr" mapstructure:"redis_addr"`
	RedisPwd   string `json:"redis_pwd" mapstructure:"redis_pwd"`
	CatalogTTL int    `json:"catalog_ttl" mapstructure:"catalog_ttl"`
}

// default config
var defaultConf = Cfg{
	Level:          "info",
	ConfigFile:     "dcplayer.yaml",
	Action:         "info",
	Loop:           true,
	PlayDurationMs: 5000,
	TickMs:         33,
	DecodeColor:    true,
	DecodeDepth:    true,
	BuildCloud:     true,
	VoxelSize:      0.005,
	MinBound:       "-2,-2,-2",
	MaxBound:       "2,2,2",
	CatalogTTL:     0,
}

var Config = viper.New()

func initLog() {
	if l, err := log.ParseLevel(Config.GetString("level")); err == nil {
		log.SetLevel(l)
		log.SetReportCaller(l == log.DebugLevel)
	}
}

// Init loads the configuration from the defaults, args, the config file and
// the environment, in increasing priority.
func Init(args []string) error {
	Config = viper.New()

	// Default config
	b, _ := json.Marshal(defaultConf)
	defaults := viper.New()
	defaults.SetConfigType("json")
	if err := defaults.ReadConfig(bytes.NewReader(b)); err != nil {
		return err
	}
	if err := Config.MergeConfigMap(defaults.AllSettings()); err != nil {
		return err
	}

	// Flags
	flags := pflag.NewFlagSet("dcplayer", pflag.ContinueOnError)
	flags.String("level", defaultConf.Level, "Log level")
	flags.String("config_file", defaultConf.ConfigFile, "configure filename")
	flags.String("video_path", "", "dcv file to open")
	flags.String("output_path", "", "dcv file written by trim, merge and clean")
	flags.String("action", defaultConf.Action, "info, play, trim, merge or clean")
	flags.Bool("loop", defaultConf.Loop, "loop playback")
	flags.Float64("start_time_ms", 0, "playback start time")
	flags.Float64("end_time_ms", 0, "playback end time, 0 for the end of the video")
	flags.Int("play_duration_ms", defaultConf.PlayDurationMs, "wall time spent by the play action")
	flags.Int("tick_ms", defaultConf.TickMs, "player update period")
	flags.Int("decode_workers", 0, "parallel decodes, 0 for one per cpu")
	flags.Int("frame_cache_ttl", 0, "decoded frame cache ttl in seconds, 0 disables it")
	flags.Bool("decode_color", defaultConf.DecodeColor, "decode color images")
	flags.Bool("decode_depth", defaultConf.DecodeDepth, "decode depth images")
	flags.Bool("decode_infra", defaultConf.DecodeInfra, "decode infrared images")
	flags.Bool("build_cloud", defaultConf.BuildCloud, "build point clouds")
	flags.Bool("build_depth_sized_color", defaultConf.BuildDepthSizedColor, "resample color to the depth size")
	flags.Float64("voxel_size", defaultConf.VoxelSize, "merge voxel size")
	flags.String("min_bound", defaultConf.MinBound, "merge min bound x,y,z")
	flags.String("max_bound", defaultConf.MaxBound, "merge max bound x,y,z")
	flags.Float64("trim_start_ms", 0, "trim: first kept time")
	flags.Float64("trim_end_ms", 0, "trim: last kept time after the start trim, 0 keeps the end")
	flags.String("redis_addr", "", "redis address of the shared video catalog")
	flags.String("redis_pwd", "", "redis password")
	flags.Int("catalog_ttl", defaultConf.CatalogTTL, "catalog entry ttl in seconds, 0 never expires")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := Config.BindPFlags(flags); err != nil {
		return err
	}

	// File
	Config.SetConfigFile(Config.GetString("config_file"))
	Config.AddConfigPath(".")
	err := Config.ReadInConfig()
	if err != nil {
		log.Warning(err)
		log.Info("Using default config")
	} else {
		Config.MergeInConfig()
	}

	// Environment
	replacer := strings.NewReplacer(".", "_")
	Config.SetEnvKeyReplacer(replacer)
	Config.AllowEmptyEnv(true)
	Config.AutomaticEnv()

	// Log
	initLog()

	// Print final config
	c := Cfg{}
	Config.Unmarshal(&c)
	log.Debugf("Current configurations: \n%# v", pretty.Formatter(c))
	return nil
}

func Current() Cfg {
	c := Cfg{}
	Config.Unmarshal(&c)
	return c
}

func GenerationSettings() av.GenerationSettings {
	return av.GenerationSettings{
		DecodeColor:          Config.GetBool("decode_color"),
		DecodeDepth:          Config.GetBool("decode_depth"),
		DecodeInfra:          Config.GetBool("decode_infra"),
		BuildCloud:           Config.GetBool("build_cloud"),
		BuildDepthSizedColor: Config.GetBool("build_depth_sized_color"),
	}
}

func PlayerSettings() player.Settings {
	return player.Settings{
		Loop:          Config.GetBool("loop"),
		StartTimeMs:   Config.GetFloat64("start_time_ms"),
		EndTimeMs:     Config.GetFloat64("end_time_ms"),
		Generation:    GenerationSettings(),
		DecodeWorkers: Config.GetInt("decode_workers"),
		FrameCacheTTL: time.Duration(Config.GetInt("frame_cache_ttl")) * time.Second,
	}
}

func MergeSettings() (video.MergeParams, error) {
	min, err := ParseVec3(Config.GetString("min_bound"))
	if err != nil {
		return video.MergeParams{}, fmt.Errorf("min_bound: %w", err)
	}
	max, err := ParseVec3(Config.GetString("max_bound"))
	if err != nil {
		return video.MergeParams{}, fmt.Errorf("max_bound: %w", err)
	}
	return video.MergeParams{
		VoxelSize: float32(Config.GetFloat64("voxel_size")),
		Min:       min,
		Max:       max,
		Workers:   Config.GetInt("decode_workers"),
	}, nil
}

// ParseVec3 reads "x,y,z".
func ParseVec3(s string) (geo.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return geo.Vec3{}, fmt.Errorf("%q is not x,y,z", s)
	}
	var out [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return geo.Vec3{}, fmt.Errorf("%q is not x,y,z: %w", s, err)
		}
		out[i] = float32(f)
	}
	return geo.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}
