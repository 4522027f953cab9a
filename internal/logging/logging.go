package logging

import (
	"io"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. Development gets a console
// writer at debug level, everything else JSON at info.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, os.Stdout)
}

func SetupWithWriter(environment string, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	var w io.Writer = out
	if environment == "" || environment == "development" {
		level = zerolog.DebugLevel
		w = zerolog.ConsoleWriter{Out: out}
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := zerolog.New(w).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger
	return logger
}
