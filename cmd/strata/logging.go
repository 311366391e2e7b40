package main

import (
	"io"
	"log"
	"os"

	"github.com/natefinch/lumberjack"

	"strata.dev/internal/config"
)

// newLogger writes to stdout and, when a file is configured, to a rotated log file as well.
func newLogger(c config.LogConfig) (*log.Logger, func()) {
	if c.File == "" {
		return log.New(os.Stdout, "[strata] ", log.LstdFlags|log.Lmicroseconds), func() {}
	}
	lj := &lumberjack.Logger{
		Filename: c.File,
		MaxSize:  c.MaxSizeMB,
		MaxAge:   c.MaxAgeDays,
		Compress: true,
	}
	w := io.MultiWriter(os.Stdout, lj)
	return log.New(w, "[strata] ", log.LstdFlags|log.Lmicroseconds), func() { _ = lj.Close() }
}
