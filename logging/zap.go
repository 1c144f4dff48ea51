// Package logging adapts zap to the auth Logger and LoggerProvider
// interfaces and provides a fiber request logger.
package logging

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	auth "github.com/goliatone/go-syr-auth"
)

// Zap implements auth.Logger and auth.LoggerProvider
type Zap struct {
	sugar *zap.SugaredLogger
}

var (
	_ auth.Logger         = (*Zap)(nil)
	_ auth.LoggerProvider = (*Zap)(nil)
)

// New builds a zap logger. Production uses JSON at info level,
// everything else a colored console encoder at debug level.
func New(environment string, debug bool) (*Zap, error) {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return Wrap(l), nil
}

// Wrap adapts an existing zap logger
func Wrap(l *zap.Logger) *Zap {
	if l == nil {
		l = zap.NewNop()
	}
	return &Zap{sugar: l.Sugar()}
}

func (z *Zap) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z *Zap) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
func (z *Zap) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z *Zap) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

// GetLogger returns a child logger named name
func (z *Zap) GetLogger(name string) auth.Logger {
	return &Zap{sugar: z.sugar.Named(name)}
}

// Desugar exposes the underlying zap logger
func (z *Zap) Desugar() *zap.Logger {
	return z.sugar.Desugar()
}

// Sync flushes buffered entries
func (z *Zap) Sync() error {
	return z.sugar.Sync()
}

// RequestLogger logs one line per request, leveled by status
func RequestLogger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Duration("latency", time.Since(start)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		switch {
		case status >= 500:
			log.Error("Server error", fields...)
		case status >= 400:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request completed", fields...)
		}

		return err
	}
}
