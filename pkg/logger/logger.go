// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type FileOptions struct {
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// NewFileSink returns a size-rotated log file.
func NewFileSink(o FileOptions) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   o.Filename,
		MaxSize:    o.MaxSize,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAge,
		Compress:   o.Compress,
	}
}

// LogInit tees JSON records to w and human readable records to stdout.
func LogInit(w io.Writer, dbg bool) *zap.Logger {
	return newLogger(w, os.Stdout, dbg)
}

func newLogger(file, console io.Writer, dbg bool) *zap.Logger {
	pe := zap.NewProductionEncoderConfig()
	fileEncoder := zapcore.NewJSONEncoder(pe)
	pe.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(pe)
	var level zapcore.Level
	if dbg {
		level = zap.DebugLevel
	} else {
		level = zap.InfoLevel
	}
	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, zapcore.AddSync(file), level),
		zapcore.NewCore(consoleEncoder, zapcore.AddSync(console), level),
	)
	return zap.New(core)
}
