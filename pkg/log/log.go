package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"pmflow/pkg/contextx"

	"github.com/sirupsen/logrus"
)

const defaultLoggerName = "pmflow"

// Config controls where and how log lines are written. An empty DirPath
// sends output to stderr.
type Config struct {
	Format          string
	TimestampFormat string
	DirPath         string
	Level           string
}

var (
	loggerMu sync.Mutex
	logger   *logrus.Logger
)

// Initialize replaces the shared logger according to cfg.
func Initialize(cfg Config) error {
	l, err := setupLogger(cfg)
	if err != nil {
		return err
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
	return nil
}

// SetOutput redirects the shared logger, mostly for tests.
func SetOutput(w io.Writer) {
	getBaseLogger().SetOutput(w)
}

func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func setupLogger(cfg Config) (*logrus.Logger, error) {
	formatter, err := NewLogFormatter(cfg.Format, cfg.TimestampFormat)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stderr
	if cfg.DirPath != "" {
		exists, err := PathExists(cfg.DirPath)
		if err != nil {
			return nil, err
		}
		if !exists {
			if err := os.MkdirAll(cfg.DirPath, 0770); err != nil {
				return nil, err
			}
		}
		outlog := path.Join(cfg.DirPath, "pmflow.log")
		file, err := os.OpenFile(outlog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", outlog, err)
		}
		out = file
	}

	level := logrus.InfoLevel
	if cfg.Level != "" {
		level, err = logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(formatter)
	return l, nil
}

func getBaseLogger() *logrus.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	if logger == nil {
		l, err := setupLogger(Config{})
		if err != nil {
			panic(err)
		}
		logger = l
	}
	return logger
}

// GetLogger returns an entry tagged with the caller name and, when ctx carries
// them, the HTTP request id and the process request id.
func GetLogger(ctx interface{}, name string) *logrus.Entry {
	requestId := "-"
	process := "-"
	switch t := ctx.(type) {
	case string:
		process = t
	case *contextx.Context:
		if t != nil {
			if r := t.GetString(contextx.RequestIDKey); r != "" {
				requestId = r
			}
			if p := t.GetString(contextx.ProcessKey); p != "" {
				process = p
			}
		}
	case map[string]interface{}:
		if r, ok := t[contextx.RequestIDKey].(string); ok {
			requestId = r
		}
		if p, ok := t[contextx.ProcessKey].(string); ok {
			process = p
		}
	}
	return getBaseLogger().WithFields(logrus.Fields{
		"name":      name,
		"requestId": requestId,
		"process":   process,
	})
}

func Info(ctx interface{}, args ...interface{}) {
	GetLogger(ctx, defaultLoggerName).Info(args...)
}

func Debug(ctx interface{}, args ...interface{}) {
	GetLogger(ctx, defaultLoggerName).Debug(args...)
}

func Warn(ctx interface{}, args ...interface{}) {
	GetLogger(ctx, defaultLoggerName).Warn(args...)
}

func Error(ctx interface{}, args ...interface{}) {
	GetLogger(ctx, defaultLoggerName).Error(args...)
}

func Infof(ctx interface{}, format string, args ...interface{}) {
	GetLogger(ctx, defaultLoggerName).Infof(format, args...)
}

func Debugf(ctx interface{}, format string, args ...interface{}) {
	GetLogger(ctx, defaultLoggerName).Debugf(format, args...)
}

func Tracef(ctx interface{}, format string, args ...interface{}) {
	GetLogger(ctx, defaultLoggerName).Tracef(format, args...)
}

func Warnf(ctx interface{}, format string, args ...interface{}) {
	GetLogger(ctx, defaultLoggerName).Warnf(format, args...)
}

func Errorf(ctx interface{}, format string, args ...interface{}) {
	GetLogger(ctx, defaultLoggerName).Errorf(format, args...)
}
