package configure

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func checkErr(err error) {
	if err != nil {
		zap.S().Fatalw("config",
			"error", err,
		)
	}
}

func New() *Config {
	initLogging("info")

	config := viper.New()

	// Default config
	b, _ := json.Marshal(Config{
		ConfigFile: "config.yaml",
	})
	tmp := viper.New()
	defaultConfig := bytes.NewReader(b)
	tmp.SetConfigType("json")
	checkErr(tmp.ReadConfig(defaultConfig))
	checkErr(config.MergeConfigMap(tmp.AllSettings()))

	pflag.String("config", "config.yaml", "Config file location")
	pflag.Bool("noheader", false, "Disable the startup header")

	pflag.Parse()
	checkErr(config.BindPFlags(pflag.CommandLine))

	// File
	config.SetConfigFile(config.GetString("config"))
	config.AddConfigPath(".")
	if err := config.ReadInConfig(); err == nil {
		checkErr(config.MergeInConfig())
	}

	bindEnvs(config, Config{})

	// Environment
	config.AutomaticEnv()
	config.SetEnvPrefix("IP")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AllowEmptyEnv(true)

	// Print final config
	c := &Config{}
	checkErr(config.Unmarshal(&c))

	initLogging(c.Level)

	return c
}

func bindEnvs(config *viper.Viper, iface interface{}, parts ...string) {
	ifv := reflect.ValueOf(iface)
	ift := reflect.TypeOf(iface)
	for i := 0; i < ift.NumField(); i++ {
		v := ifv.Field(i)
		t := ift.Field(i)
		tv, ok := t.Tag.Lookup("mapstructure")
		if !ok {
			continue
		}
		switch v.Kind() {
		case reflect.Struct:
			bindEnvs(config, v.Interface(), append(parts, tv)...)
		default:
			_ = config.BindEnv(strings.Join(append(parts, tv), "."))
		}
	}
}

type Config struct {
	Level      string `mapstructure:"level" json:"level"`
	ConfigFile string `mapstructure:"config" json:"config"`
	NoHeader   bool   `mapstructure:"noheader" json:"noheader"`

	Worker WorkerConfig `mapstructure:"worker" json:"worker"`

	Defaults DefaultsConfig `mapstructure:"defaults" json:"defaults"`

	Health struct {
		Bind    string `mapstructure:"bind" json:"bind"`
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
	} `mapstructure:"health" json:"health"`

	Monitoring struct {
		Bind    string `mapstructure:"bind" json:"bind"`
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
		Labels  Labels `mapstructure:"labels" json:"labels"`
	} `mapstructure:"monitoring" json:"monitoring"`
}

// WorkerConfig bounds the admission queue.
type WorkerConfig struct {
	Concurrency           int `mapstructure:"concurrency" json:"concurrency"`
	QueueSize             int `mapstructure:"queue_size" json:"queue_size"`
	JobTimeoutSeconds     int `mapstructure:"job_timeout_seconds" json:"job_timeout_seconds"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" json:"request_timeout_seconds"`
	DrainTimeoutSeconds   int `mapstructure:"drain_timeout_seconds" json:"drain_timeout_seconds"`
	MaxInputBytes         int `mapstructure:"max_input_bytes" json:"max_input_bytes"`
}

func (w WorkerConfig) JobTimeout() time.Duration {
	return time.Duration(w.JobTimeoutSeconds) * time.Second
}

func (w WorkerConfig) RequestTimeout() time.Duration {
	return time.Duration(w.RequestTimeoutSeconds) * time.Second
}

func (w WorkerConfig) DrainTimeout() time.Duration {
	return time.Duration(w.DrainTimeoutSeconds) * time.Second
}

// DefaultsConfig supplies the per-field fallbacks for unset spec fields.
type DefaultsConfig struct {
	AutoOrient bool   `mapstructure:"auto_orient" json:"auto_orient"`
	ResizeFit  string `mapstructure:"resize_fit" json:"resize_fit"`
	Background string `mapstructure:"background" json:"background"`
	Strip      bool   `mapstructure:"strip" json:"strip"`

	Format          string `mapstructure:"format" json:"format"`
	Quality         int    `mapstructure:"quality" json:"quality"`
	PNGCompression  int    `mapstructure:"png_compression" json:"png_compression"`
	GIFColors       int    `mapstructure:"gif_colors" json:"gif_colors"`
	MetadataMaxSize int    `mapstructure:"metadata_max_size" json:"metadata_max_size"`

	Watermark struct {
		Position     string  `mapstructure:"position" json:"position"`
		Opacity      float64 `mapstructure:"opacity" json:"opacity"`
		ScalePercent int     `mapstructure:"scale_percent" json:"scale_percent"`
		Spacing      int     `mapstructure:"spacing" json:"spacing"`
	} `mapstructure:"watermark" json:"watermark"`
}

type Labels []struct {
	Key   string `mapstructure:"key" json:"key"`
	Value string `mapstructure:"value" json:"value"`
}

func (l Labels) ToPrometheus() prometheus.Labels {
	mp := prometheus.Labels{}

	for _, v := range l {
		mp[v.Key] = v.Value
	}

	return mp
}
