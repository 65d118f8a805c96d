package logger

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/saiset-co/sai-stockwatch/types"
)

// Zap adapts a zap logger to types.Logger.
type Zap struct {
	log *zap.Logger
}

func newZap(base *zap.Logger) *Zap {
	return &Zap{log: base.WithOptions(zap.AddCallerSkip(1))}
}

// NewNop returns a logger that discards everything.
func NewNop() types.Logger {
	return &Zap{log: zap.NewNop()}
}

func (z *Zap) Debug(msg string, fields ...zap.Field) { z.log.Debug(msg, fields...) }
func (z *Zap) Info(msg string, fields ...zap.Field)  { z.log.Info(msg, fields...) }
func (z *Zap) Warn(msg string, fields ...zap.Field)  { z.log.Warn(msg, fields...) }
func (z *Zap) Error(msg string, fields ...zap.Field) { z.log.Error(msg, fields...) }

func (z *Zap) Log(lvl zapcore.Level, msg string, fields ...zap.Field) {
	z.log.Log(lvl, msg, fields...)
}

// ErrorWithErrStack logs the root cause of err and, when err was built with
// pkg/errors, the frames that produced it.
func (z *Zap) ErrorWithErrStack(msg string, err error, fields ...zap.Field) {
	if err == nil {
		z.log.Error(msg, fields...)
		return
	}

	entry := append([]zap.Field{zap.String("error", errors.Cause(err).Error())}, fields...)
	if frames := stackFrames(err); len(frames) > 0 {
		entry = append(entry, zap.Strings("stack", frames))
	}

	z.log.Error(msg, entry...)
}

func (z *Zap) Sync() error {
	return z.log.Sync()
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

const maxFrameWidth = 90

func stackFrames(err error) []string {
	tracer, ok := err.(stackTracer)
	if !ok {
		if tracer, ok = errors.Cause(err).(stackTracer); !ok {
			return nil
		}
	}

	var frames []string
	for _, line := range strings.Split(fmt.Sprintf("%+v", tracer.StackTrace()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isNoiseFrame(line) {
			continue
		}

		if len(line) > maxFrameWidth {
			line = line[:maxFrameWidth-3] + "..."
		}
		frames = append(frames, line)
	}

	return frames
}

func isNoiseFrame(line string) bool {
	for _, noise := range []string{"types/errors.go:", "runtime.goexit", "asm_amd64.s:", "asm_arm64.s:"} {
		if strings.Contains(line, noise) {
			return true
		}
	}
	return false
}
