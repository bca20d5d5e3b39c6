package logging

import "go.uber.org/zap"

type Logger = zap.SugaredLogger

func New() *Logger {
	l, _ := zap.NewProduction()
	return l.Sugar()
}

// NewVerbose returns a development-config logger at debug level,
// used when the -verbose flag is set.
func NewVerbose() *Logger {
	l, _ := zap.NewDevelopment()
	return l.Sugar()
}

func NewNop() *Logger {
	return zap.NewNop().Sugar()
}
