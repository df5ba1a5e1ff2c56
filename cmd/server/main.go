package main

import (
	"github.com/moxious/historynet/resolver/internal/server"
	"github.com/moxious/historynet/resolver/internal/util"
	"github.com/moxious/historynet/resolver/pkg/logger"
)

func main() {
	util.LoadEnv()

	logger.Init(util.GetEnvBool("DEBUG", false))

	server.Init()
}
