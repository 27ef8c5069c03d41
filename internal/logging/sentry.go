package logging

import (
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"
)

// sentryCore is a custom core that forwards error entries to Sentry.
type sentryCore struct {
	enabler zapcore.LevelEnabler
	fields  []zapcore.Field
	sender  *sentry.Client
}

// newSentryCore initializes the Sentry client. An empty DSN returns a
// no-op core so callers never have to special-case local runs.
func newSentryCore(dsn string, enabler zapcore.LevelEnabler) zapcore.Core {
	if dsn == "" {
		return zapcore.NewNopCore()
	}

	sender, err := sentry.NewClient(sentry.ClientOptions{
		Dsn: dsn,
	})
	if err != nil {
		log.Printf("error starting Sentry client: %s", err)
		return zapcore.NewNopCore()
	}

	return &sentryCore{enabler: enabler, sender: sender}
}

func (c *sentryCore) Enabled(lvl zapcore.Level) bool {
	return c.enabler.Enabled(lvl)
}

func (c *sentryCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field{}, c.fields...), fields...)
	return &clone
}

func (c *sentryCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *sentryCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	event := sentry.NewEvent()
	event.Message = entry.Message
	event.Timestamp = entry.Time
	event.Level = sentryLevel(entry.Level)

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range append(c.fields, fields...) {
		field.AddTo(enc)
	}
	event.Extra = enc.Fields

	c.sender.CaptureEvent(event, nil, nil)
	return nil
}

func (c *sentryCore) Sync() error {
	c.sender.Flush(2 * time.Second)
	return nil
}

func sentryLevel(lvl zapcore.Level) sentry.Level {
	switch {
	case lvl >= zapcore.DPanicLevel:
		return sentry.LevelFatal
	case lvl >= zapcore.ErrorLevel:
		return sentry.LevelError
	case lvl >= zapcore.WarnLevel:
		return sentry.LevelWarning
	default:
		return sentry.LevelInfo
	}
}
