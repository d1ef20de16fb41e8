package config

import (
	"bytes"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "LICENSING_"

// Config stores global configuration
type Config struct {
	// Is development mode on
	IsDevelopment bool

	// REST API address
	RESTListenAddress string

	// Maximum time the service will be closing before stop is forced.
	StopTimeout time.Duration

	// Logging level
	LogLevel string

	// Log output format, text or json
	LogFormat string

	Database   Database
	Chain      Chain
	Settlement Settlement
	Faucet     Faucet
	Signer     Signer
	Redis      Redis
	Profiler   Profiler
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("IsDevelopment", "false")
	v.SetDefault("RESTListenAddress", ":8000")
	v.SetDefault("LogLevel", "DEBUG")
	v.SetDefault("LogFormat", "text")
	v.SetDefault("StopTimeout", "30s")

	setDatabaseDefaults(v)
	setChainDefaults(v)
	setSettlementDefaults(v)
	setFaucetDefaults(v)
	setSignerDefaults(v)
	setRedisDefaults(v)
	setProfilerDefaults(v)
}

func Default() (config *Config) {
	config, err := Load("")
	if err != nil {
		panic(err)
	}
	return
}

// Visits every field and registers upper snake case ENV name for it
func bindEnv(v *viper.Viper, path []string, val reflect.Value) {
	if val.Kind() != reflect.Struct {
		key := strings.Join(path, ".")
		env := ENV_PREFIX + strcase.ToScreamingSnake(strings.Join(path, "_"))
		err := v.BindEnv(key, env)
		if err != nil {
			panic(err)
		}
		return
	}

	// Iterates over struct fields
	for i := 0; i < val.NumField(); i++ {
		newPath := make([]string, len(path))
		copy(newPath, path)
		newPath = append(newPath, val.Type().Field(i).Name)
		bindEnv(v, newPath, val.Field(i))
	}
}

func decoderConfig(c *mapstructure.DecoderConfig) {
	c.WeaklyTypedInput = true
	c.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Load configuration from file and env
func Load(filename string) (config *Config, err error) {
	v := viper.New()
	v.SetConfigType("json")

	setDefaults(v)

	bindEnv(v, []string{}, reflect.ValueOf(Config{}))

	// Empty filename means we use default values
	if filename != "" {
		var content []byte
		/* #nosec */
		content, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}

		err = v.ReadConfig(bytes.NewBuffer(content))
		if err != nil {
			return nil, err
		}
	}

	config = new(Config)
	err = v.Unmarshal(config, decoderConfig)
	if err != nil {
		return nil, err
	}

	return
}
