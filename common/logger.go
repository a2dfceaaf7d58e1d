package common

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Encoding   string `mapstructure:"encoding"`    // json or console
	OutputPath string `mapstructure:"output_path"` // file path, "stdout" or "stderr"
}

// NewLogger builds a zap logger from cfg. Empty fields fall back to
// info level, console encoding and stderr.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "console"
	}
	output := cfg.OutputPath
	if output == "" {
		output = "stderr"
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	if encoding == "console" {
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, err := zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zap.InfoLevel, nil
	case "debug":
		return zap.DebugLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	}
	return zap.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// XML returns a lazily serialized zap field holding el.
func XML(key string, el *etree.Element) zap.Field {
	return zap.Stringer(key, xmlStringer{el})
}

type xmlStringer struct {
	el *etree.Element
}

func (x xmlStringer) String() string {
	return XMLString(x.el)
}

// XMLString serializes a copy of el as a standalone document.
func XMLString(el *etree.Element) string {
	if el == nil {
		return ""
	}
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())

	s, err := doc.WriteToString()
	if err != nil {
		return fmt.Sprintf("failed to serialize XML: %v", err)
	}
	return s
}
