/*
Package log is the logger shared by every reserves module, built on zerolog
(https://github.com/rs/zerolog) and configured through viper.

Configuration is read from a toml file. All fields are optional.

 # default level for all modules: debug/info/warn/error/fatal/panic
 level = "info"

 # output formatter: console, console_no_color or json
 formatter = "json"

 # print source file and line
 caller = false

 # time stamp format, see time/format.go
 timefieldformat = "2006-01-02T15:04:05Z07:00"

 # stdout, stderr or a file path
 out = "stderr"

 # per module overrides; only level and out are honoured
 [statemachine]
 level = "debug"

 [keeper]
 out = "/var/log/reserves/keeper.log"

The file is looked up as reserveslog.toml in the working directory, or at the path
in the RESERVES_LOGCONFIG environment variable.
*/
package log

import (
	"errors"
	"os"
	"strings"
	"sync"

	colorable "github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

var (
	baseLogger  = zerolog.New(os.Stderr)
	baseLevel   = zerolog.InfoLevel
	logInitLock sync.Mutex
	isLogInit   = false
	viperConf   = viper.New()
)

const (
	confFilePathKey     = "LOGCONFIG"
	confEnvPrefix       = "RESERVES"
	defaultConfFileName = "reserveslog"
)

// Logger is a module logger. The embedded zerolog.Logger provides the event API.
type Logger struct {
	*zerolog.Logger
	name  string
	level zerolog.Level
}

func loadConfigFile() {
	viperConf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viperConf.SetEnvPrefix(confEnvPrefix)
	viperConf.AutomaticEnv()

	viperConf.SetConfigType("toml")
	viperConf.SetConfigName(defaultConfFileName)
	viperConf.AddConfigPath(".")

	if confFilePath := viperConf.GetString(confFilePathKey); confFilePath != "" {
		viperConf.SetConfigFile(confFilePath)
		baseLogger.Info().Str("file", confFilePath).Msg("Init logger using a configuration file")
	}

	err := viperConf.ReadInConfig()
	if err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			baseLogger.Error().Err(err).Msg("Fail to read a logger's config file")
		}
	}
}

func initLog() {
	if format := viperConf.GetString("timefieldformat"); format != "" {
		zerolog.TimeFieldFormat = format
	}

	out := os.Stderr
	if outputName := viperConf.GetString("out"); outputName != "" {
		o, err := getOutput(outputName)
		if err == nil {
			out = o
			baseLogger = baseLogger.Output(out)
		} else {
			baseLogger.Warn().Err(err).Str("outputName", outputName).Msg("failed to open output writer. set to base out instead")
		}
	}

	switch formatter := strings.ToLower(viperConf.GetString("formatter")); formatter {
	case "", "json":
		baseLogger = baseLogger.Output(out)
	case "console":
		baseLogger = baseLogger.Output(
			zerolog.ConsoleWriter{Out: colorable.NewColorable(out), NoColor: false, TimeFormat: zerolog.TimeFieldFormat})
	case "console_no_color":
		baseLogger = baseLogger.Output(
			zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: zerolog.TimeFieldFormat})
	default:
		baseLogger.Warn().Str("formatter", formatter).Msg("Invalid message formatter. Only allowed; console/console_no_color/json")
		baseLogger = baseLogger.Output(out)
	}

	if viperConf.GetBool("caller") {
		baseLogger = baseLogger.With().Caller().Logger()
	}

	zLevel := parseLevel(viperConf.GetString("level"))
	baseLogger = baseLogger.With().Timestamp().Logger().Level(zLevel)
	baseLevel = zLevel
}

func parseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	zLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		baseLogger.Warn().Err(err).Str("level", level).Msg("Fail to parse log level. set the level as info")
		return zerolog.InfoLevel
	}
	return zLevel
}

// NewLogger creates a logger tagged with module=moduleName. Module specific
// level and output from the config file are applied on top of the defaults.
func NewLogger(moduleName string) *Logger {
	logInitLock.Lock()
	defer logInitLock.Unlock()

	if !isLogInit {
		loadConfigFile()
		initLog()
		isLogInit = true
	}

	zLogger := baseLogger.With().Str("module", moduleName).Logger()
	zLevel := baseLevel

	if subViperConf := viperConf.Sub(moduleName); subViperConf != nil {
		if outputName := subViperConf.GetString("out"); outputName != "" {
			if out, err := getOutput(outputName); err == nil {
				zLogger = zLogger.Output(out)
			} else {
				baseLogger.Warn().Err(err).Str("outputName", outputName).Str("module", moduleName).Msg("failed to open output writer. set to base out instead")
			}
		}
		if level := subViperConf.GetString("level"); level != "" {
			zLevel = parseLevel(level)
			zLogger = zLogger.Level(zLevel)
		}
	}

	return &Logger{
		Logger: &zLogger,
		name:   moduleName,
		level:  zLevel,
	}
}

// Default returns the base logger without a module tag.
func Default() *Logger {
	logInitLock.Lock()
	defer logInitLock.Unlock()

	if !isLogInit {
		loadConfigFile()
		initLog()
		isLogInit = true
	}

	return &Logger{
		Logger: &baseLogger,
		level:  baseLevel,
	}
}

var errEmptyName = errors.New("empty output name")

// getOutput maps stdout, stderr or a file path to a writer.
func getOutput(outName string) (*os.File, error) {
	switch outName {
	case "":
		return nil, errEmptyName
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(outName, os.O_WRONLY|os.O_CREATE|os.O_APPEND|os.O_SYNC, 0644)
	}
}

// IsDebugEnabled lets callers skip building expensive debug fields.
func (logger *Logger) IsDebugEnabled() bool {
	return logger.level == zerolog.DebugLevel
}

// Level returns current logger level
func (logger *Logger) Level() string {
	return logger.level.String()
}

// Name returns the module name, empty for the default logger.
func (logger *Logger) Name() string {
	return logger.name
}
