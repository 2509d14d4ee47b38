package utils

import (
	"fmt"
	"log"
	"os"
)

// Logger is a simple leveled logger with a component prefix
type Logger struct {
	infoLog  *log.Logger
	warnLog  *log.Logger
	errorLog *log.Logger
}

// NewLogger creates a new logger for a component
func NewLogger(component string) *Logger {
	prefix := func(level string) string {
		return fmt.Sprintf("%s [%s]: ", level, component)
	}
	return &Logger{
		infoLog:  log.New(os.Stdout, prefix("INFO"), log.Ldate|log.Ltime),
		warnLog:  log.New(os.Stdout, prefix("WARN"), log.Ldate|log.Ltime),
		errorLog: log.New(os.Stderr, prefix("ERROR"), log.Ldate|log.Ltime),
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	l.infoLog.Printf(format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.warnLog.Printf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.errorLog.Printf(format, v...)
}
