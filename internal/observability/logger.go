package observability

import (
	"github.com/danmuck/refctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger installs the process logger tagged with app. It honours the
// level and format chosen by logging.Configure.
func InitLogger(app string) zerolog.Logger {
	logging.ConfigureRuntime()
	logger := logging.New(logging.Active()).With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
