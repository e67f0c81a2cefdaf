package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/Algorhythm-sxv/culet/asset/scene/reader"
	"github.com/Algorhythm-sxv/culet/asset/scene/writer"
	"github.com/Algorhythm-sxv/culet/tracer/cpu"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Compile one or more scenes to the binary archive format.
func CompileScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing scene file argument")
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		ext := sceneExt(sceneFile)
		if ext == "" {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		sc, err := reader.ReadScene(sceneFile)
		if err != nil {
			return err
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())

		// An explicit output name only applies to a single input.
		zipFile := ctx.String("out")
		if zipFile == "" || ctx.NArg() > 1 {
			zipFile = strings.TrimSuffix(sceneFile, ext) + ".zip"
		}
		err = writer.WriteScene(sc, zipFile)
		if err != nil {
			return err
		}
		logger.Noticef("compiled scene archive: %s", zipFile)
	}

	return nil
}

// Display compiled scene information, or the host worker table when no
// scene argument is given.
func ShowInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return showWorkerInfo()
	}

	sc, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	logger.Noticef("scene information:\n%s", sc.Stats())
	return nil
}

// Display the render workers available on this host.
func showWorkerInfo() error {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Worker", "Speed"})
	for workerIndex := 0; workerIndex < runtime.NumCPU(); workerIndex++ {
		tr := cpu.NewTracer(fmt.Sprintf("cpu-%d", workerIndex))
		table.Append([]string{tr.Id(), fmt.Sprintf("%d", tr.Speed())})
	}
	table.Render()

	logger.Noticef("host provides %d render workers:\n%s", runtime.NumCPU(), buf.String())
	return nil
}

// Get the scene file extension if it is supported by the compiler.
func sceneExt(sceneFile string) string {
	for _, ext := range []string{".obj", ".stl"} {
		if strings.HasSuffix(sceneFile, ext) {
			return ext
		}
	}
	return ""
}
