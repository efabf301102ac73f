package log

import (
	"os"
	"sort"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

func init() { current.Store(zap.NewNop()) }

// New builds a JSON logger at the given level writing to stdout and, when
// file is set, appending to that file as well.
func New(level, file string) (*zap.Logger, error) {
	lvl := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, err
		}
	}
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.RFC3339TimeEncoder

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stdout)}
	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, zapcore.AddSync(f))
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.NewMultiWriteSyncer(sinks...), lvl)
	return zap.New(core), nil
}

// SetLogger replaces the process logger; tests swap in an observer core.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

func L() *zap.Logger { return current.Load() }

func Sync() { _ = L().Sync() }

func requestFields(c *fiber.Ctx, action string, fields map[string]any) []zap.Field {
	out := make([]zap.Field, 0, 6+len(fields))
	out = append(out, zap.String("action", action))
	if c != nil {
		out = append(out,
			zap.String("ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
		)
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			out = append(out, zap.String("req_id", rid))
		}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	L().Info(action, requestFields(c, action, fields)...)
}

// Audit records state changes worth keeping (logins, registrations).
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	L().Info(action, append(requestFields(c, action, fields), zap.Bool("audit", true))...)
}

// Security records rejected or suspicious requests.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	L().Warn(action, append(requestFields(c, action, fields), zap.Bool("security", true))...)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	L().Error(action, append(requestFields(c, action, fields), zap.Error(err))...)
}
