// Package autoload initializes the global logger from the LOG_* environment
// on import.
package autoload

import (
	configx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/pkg/config"
	logx "github.com/tanpawarit/Voxtable-Voice-Restaurant-Agent/pkg/logger"
)

func init() {
	conf := configx.MustNew[logx.Config]("LOG")
	logx.Init(*conf)
}
