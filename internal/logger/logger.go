// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// Each binary writes lifecycle and error events to one JSON log per day
// under `<root>/logs/<name>-YYYY-MM-DD.log`.  When running in an interactive
// TTY we tee the same events to stdout.  Rotation, compression, and
// retention are handled by Lumberjack; no external log-rotate job is
// required.
//
// Usage
// -----
//
//	log, err := logger.New(logger.Options{Root: cfg.Paths.Root, Name: "web", Tee: runningInTTY()})
//	if err != nil { … }
//	log.Info("server online", zap.String("addr", addr))
//
// Notes
// -----
// • Zap core uses ISO-8601 timestamps and lowercase levels.
// • Errors are written to the same sink via `ErrorOutput`.
// • The logger is installed globally so packages may use zap.L().
// • Oxford commas, two spaces after periods.
package logger

import (
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configure New.
type Options struct {
	Root  string // log directory parent; logs go to Root/logs
	Name  string // file name prefix, e.g. "web" or "expiry"
	Level string // debug, info, warn, error; default info
	Tee   bool   // also write to stdout
	Now   func() time.Time
}

var encCfg = zapcore.EncoderConfig{
	TimeKey:      "ts",
	LevelKey:     "level",
	NameKey:      "logger",
	MessageKey:   "msg",
	CallerKey:    "caller",
	EncodeTime:   zapcore.ISO8601TimeEncoder,
	EncodeLevel:  zapcore.LowercaseLevelEncoder,
	EncodeCaller: zapcore.ShortCallerEncoder,
}

// New returns a *zap.Logger that writes JSON to Root/logs.  When o.Tee is
// set a console core is also attached.  The logger is installed as the
// process-wide default via zap.ReplaceGlobals.
func New(o Options) (*zap.Logger, error) {
	logDir := filepath.Join(o.Root, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}

	level := zap.NewAtomicLevel()
	if o.Level != "" {
		if err := level.UnmarshalText([]byte(o.Level)); err != nil {
			return nil, err
		}
	}

	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	fileSink := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, fileName(o.Name, now())),
		MaxSize:    50, // MB
		MaxBackups: 7,  // keep last seven files
		MaxAge:     14, // days
		Compress:   true,
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink), level),
	}
	if o.Tee {
		cores = append(cores,
			zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(os.Stdout), level))
	}

	z := zap.New(
		zapcore.NewTee(cores...),
		zap.ErrorOutput(zapcore.AddSync(fileSink)),
		zap.AddCaller(),
	)
	if o.Name != "" {
		z = z.Named(o.Name)
	}

	// Make this the global logger so zap.L() works everywhere after startup.
	zap.ReplaceGlobals(z)

	z.Info("logger online", zap.Bool("tee", o.Tee), zap.String("level", level.String()))
	return z, nil
}

func fileName(name string, t time.Time) string {
	if name == "" {
		return t.Format("2006-01-02") + ".log"
	}
	return name + "-" + t.Format("2006-01-02") + ".log"
}

// RunningInTTY reports whether stdout is a character device.
func RunningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
