// Package nakadizap is the default zap-backed nakadi.Logger. Callers
// who already thread a *zap.Logger through their service construct one
// of these around it; anyone not using zap can implement nakadi.Logger
// directly instead.
package nakadizap

import (
	"go.uber.org/zap"

	"github.com/nakadi-go/nakadi/pkg/nakadi"
)

// Logger adapts a *zap.Logger to nakadi.Logger.
type Logger struct {
	z *zap.Logger
}

// New wraps z. A nil z is replaced with zap.NewNop().
func New(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return Logger{z: z}
}

// Log implements nakadi.Logger. keyvals must alternate key, value;
// an odd trailing element is logged under the key "ignored_extra".
func (l Logger) Log(level nakadi.LogLevel, msg string, keyvals ...any) {
	fields := toFields(keyvals)
	switch level {
	case nakadi.LogLevelError:
		l.z.Error(msg, fields...)
	case nakadi.LogLevelWarn:
		l.z.Warn(msg, fields...)
	case nakadi.LogLevelInfo:
		l.z.Info(msg, fields...)
	case nakadi.LogLevelDebug:
		l.z.Debug(msg, fields...)
	}
}

func toFields(keyvals []any) []zap.Field {
	if len(keyvals) == 0 {
		return nil
	}
	fields := make([]zap.Field, 0, len(keyvals)/2+1)
	i := 0
	for ; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = "ignored_extra"
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}
	if i < len(keyvals) {
		fields = append(fields, zap.Any("ignored_extra", keyvals[i]))
	}
	return fields
}
