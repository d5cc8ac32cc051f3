// Package config parses the option set spec section 6 names into a single
// Options struct, using github.com/spf13/viper (following the pack's own
// viper-via-New() usage): Load lays a YAML, JSON or TOML file over
// Defaults(). Flags and environment variables are not read.
package config

import (
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Options holds one field per row of spec section 6's configuration table.
type Options struct {
	NumThreads           int     `mapstructure:"num_threads"`
	NumRolloutsPerThread int     `mapstructure:"num_rollouts_per_thread"`
	NumRolloutsPerBatch  int     `mapstructure:"num_rollouts_per_batch"`
	CPuct                float32 `mapstructure:"c_puct"`
	VirtualLoss          float32 `mapstructure:"virtual_loss"`
	RootEpsilon          float32 `mapstructure:"root_epsilon"`
	RootAlpha            float32 `mapstructure:"root_alpha"`
	PersistentTree       bool    `mapstructure:"persistent_tree"`
	PickMethod           string  `mapstructure:"pick_method"`
	UnexploredQZero      bool    `mapstructure:"unexplored_q_zero"`
	RootUnexploredQZero  bool    `mapstructure:"root_unexplored_q_zero"`

	ResignThres          float32 `mapstructure:"resign_thres"`
	ResignTargetFPRate   float64 `mapstructure:"resign_target_fp_rate"`
	ResignTargetHistSize int     `mapstructure:"resign_target_hist_size"`

	EvalNumGames int     `mapstructure:"eval_num_games"`
	EvalThres    float64 `mapstructure:"eval_thres"`

	SelfplayInitNum   int  `mapstructure:"selfplay_init_num"`
	SelfplayUpdateNum int  `mapstructure:"selfplay_update_num"`
	KeepPrevSelfplay  bool `mapstructure:"keep_prev_selfplay"`

	QMinSize  int `mapstructure:"q_min_size"`
	QMaxSize  int `mapstructure:"q_max_size"`
	NumReader int `mapstructure:"num_reader"`

	ClientMaxDelaySec int `mapstructure:"client_max_delay_sec"`

	Komi            float32 `mapstructure:"komi"`
	PlyPassEnabled  bool    `mapstructure:"ply_pass_enabled"`
}

// ClientMaxDelay returns ClientMaxDelaySec as a time.Duration.
func (o Options) ClientMaxDelay() time.Duration {
	return time.Duration(o.ClientMaxDelaySec) * time.Second
}

// Defaults returns the option set used for every key an options file does
// not name. The search keys match mcts.DefaultConfig.
func Defaults() Options {
	return Options{
		NumThreads:           4,
		NumRolloutsPerThread: 800,
		NumRolloutsPerBatch:  8,
		CPuct:                1.5,
		VirtualLoss:          1,
		RootEpsilon:          0.25,
		RootAlpha:            0.03,
		PersistentTree:       true,
		PickMethod:           "most_visited",
		ResignTargetFPRate:   0.05,
		ResignTargetHistSize: 1000,
		EvalNumGames:         400,
		EvalThres:            0.55,
		SelfplayInitNum:      10000,
		SelfplayUpdateNum:    1000,
		QMinSize:             1000,
		QMaxSize:             500000,
		NumReader:            8,
		ClientMaxDelaySec:    300,
	}
}

// Load reads path (YAML, JSON or TOML by extension, per viper's own
// detection) over top of Defaults(), so an options file only needs to name
// the keys it overrides.
func Load(path string) (Options, error) {
	opts := Defaults()
	if path == "" {
		return opts, nil
	}

	vp := viper.New()
	vp.SetConfigFile(path)
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return opts, err
	}
	if err := vp.Unmarshal(&opts); err != nil {
		return opts, err
	}
	return opts, nil
}
