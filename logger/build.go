package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/saiset-co/sai-stockwatch/types"
	"github.com/saiset-co/sai-stockwatch/utils"
)

// Options is the free-form `logger.config` section.
type Options struct {
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

func defaultOptions() Options {
	return Options{
		Format:     "console",
		Output:     "stdout",
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     10,
	}
}

var levels = map[string]zapcore.Level{
	"debug":   zapcore.DebugLevel,
	"info":    zapcore.InfoLevel,
	"warn":    zapcore.WarnLevel,
	"warning": zapcore.WarnLevel,
	"error":   zapcore.ErrorLevel,
	"fatal":   zapcore.FatalLevel,
}

func parseLevel(level string) zapcore.Level {
	if parsed, ok := levels[strings.ToLower(level)]; ok {
		return parsed
	}
	return zapcore.InfoLevel
}

// build assembles the zap core from config. The returned closer releases the
// log file, if any.
func build(config *types.LoggerConfig, fields ...zap.Field) (*Zap, io.Closer, error) {
	options := defaultOptions()
	if err := utils.DecodeOptions(config.Config, &options); err != nil {
		return nil, nil, types.WrapError(err, "failed to decode logger options")
	}

	sink, closer, err := openSink(options)
	if err != nil {
		return nil, nil, err
	}

	core := zapcore.NewCore(newEncoder(options.Format), sink, parseLevel(config.Level))
	base := zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))).With(fields...)

	return newZap(base), closer, nil
}

func newEncoder(format string) zapcore.Encoder {
	if format == "json" {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(encoderConfig)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeCaller = zapcore.FullCallerEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// openSink rotates file output through lumberjack. A file output without a
// file name falls back to stdout.
func openSink(options Options) (zapcore.WriteSyncer, io.Closer, error) {
	switch {
	case options.Output == "stderr":
		return zapcore.Lock(os.Stderr), nil, nil
	case options.Output == "file" && options.File != "":
		if err := ensureLogDir(options.File); err != nil {
			return nil, nil, err
		}

		file := &lumberjack.Logger{
			Filename:   options.File,
			MaxSize:    options.MaxSize,
			MaxBackups: options.MaxBackups,
			MaxAge:     options.MaxAge,
			Compress:   options.Compress,
		}
		return zapcore.AddSync(file), file, nil
	default:
		return zapcore.Lock(os.Stdout), nil, nil
	}
}

func ensureLogDir(logFile string) error {
	if logFile == "" {
		return types.ErrLogFileIsEmpty
	}

	dir := filepath.Dir(logFile)
	if dir == "." {
		return types.ErrLogFileWrongFormat
	}

	return types.WrapError(os.MkdirAll(dir, 0o755), "access denied to log directory")
}
