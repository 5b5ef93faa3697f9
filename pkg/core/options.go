package core

import (
	"go.uber.org/zap"
)

// Option alters the behavior of records and write sessions
type Option func(*settings)

type settings struct {
	l *zap.Logger
}

func defaultSettings() settings {
	return settings{
		l: zap.NewNop(),
	}
}

func (s *settings) apply(opts []Option) {
	for _, o := range opts {
		if o != nil {
			o(s)
		}
	}
}

// Logger injects a zap logger. Operations remain silent without one.
func Logger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.l = l
		}
	}
}
