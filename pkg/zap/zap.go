package zap

import (
	"os"

	"github.com/natefinch/lumberjack"
	uberzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sos-service/config"
)

// New builds the service logger: console output plus a rotated log file.
func New(cfg *config.Config) (*uberzap.SugaredLogger, error) {
	encoderCfg := uberzap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := uberzap.InfoLevel
	if cfg.RunMode == "debug" {
		level = uberzap.DebugLevel
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), fileWriter, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stdout), level),
	)

	logger := uberzap.New(core, uberzap.AddCaller())
	return logger.Sugar(), nil
}
