package logger

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type asynqLogger struct {
	s *zap.SugaredLogger
}

// NewAsynqLogger routes asynq's internal logging through zap.
func NewAsynqLogger(l *zap.Logger) asynq.Logger {
	return asynqLogger{s: l.Sugar()}
}

func (a asynqLogger) Debug(args ...interface{}) { a.s.Debug(args...) }
func (a asynqLogger) Info(args ...interface{})  { a.s.Info(args...) }
func (a asynqLogger) Warn(args ...interface{})  { a.s.Warn(args...) }
func (a asynqLogger) Error(args ...interface{}) { a.s.Error(args...) }
func (a asynqLogger) Fatal(args ...interface{}) { a.s.Fatal(args...) }
