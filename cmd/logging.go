package cmd

import (
	"github.com/Algorhythm-sxv/culet/log"
	"github.com/urfave/cli"
)

var logger = log.New("culet")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}
