package main

import (
	"github.com/latticekg/lattice/internal/server"
	"github.com/latticekg/lattice/internal/util"
	"github.com/latticekg/lattice/pkg/logger"
	"github.com/latticekg/lattice/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
