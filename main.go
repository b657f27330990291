/*
 * This file is part of the Go Cesium Point Cloud Tiler distribution (https://github.com/mfbonfigli/gocesiumtiler).
 * Copyright (c) 2019 Massimo Federico Bonfigli - m.federico.bonfigli@gmail.com
 *
 * This program is free software; you can redistribute it and/or modify it
 * under the terms of the GNU Lesser General Public License Version 3 as
 * published by the Free Software Foundation;
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
 * Lesser General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General Public License
 * along with this program. If not, see <http://www.gnu.org/licenses/>.
 *
 * This software also uses third party components. You can find information
 * on their credits and licensing in the file LICENSE-3RD-PARTIES.md that
 * you should have received togheter with the source code.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/ecopia-map/potree_streamer/internal/config"
	"github.com/ecopia-map/potree_streamer/pkg"
	"github.com/ecopia-map/potree_streamer/pkg/source_manager"
	"github.com/ecopia-map/potree_streamer/tools"
	"github.com/golang/glog"
)

const VERSION = "0.4.0"

const logo = `
             _                                      _
 _ __   ___ | |_ _ __ ___  ___    ___| |_ _ __ ___  __ _ _ __ ___   ___ _ __
| '_ \ / _ \| __| '__/ _ \/ _ \  / __| __| '__/ _ \/ _  | '_   _ \ / _ \ '__|
| |_) | (_) | |_| | |  __/  __/  \__ \ |_| | |  __/ (_| | | | | | |  __/ |
| .__/ \___/ \__|_|  \___|\___|  |___/\__|_|  \___|\__,_|_| |_| |_|\___|_|
|_| Level of detail streaming for potree point clouds, YYYY
`

const commands = "[inspect|simulate|export|verify]"

func main() {
	log.SetPrefix("[potree] ")
	log.SetFlags(log.LUTC | log.Ldate | log.Lmicroseconds | log.Lshortfile)

	flagsGlobal := tools.ParseFlagsGlobal()
	defer glog.Flush()

	if *flagsGlobal.Help {
		showHelp()
		return
	}
	if *flagsGlobal.Version {
		printVersion()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		glog.Fatalf("Please specify a subcommand %s.", commands)
	}
	cmd, args := args[0], args[1:]

	var opts *config.CommandOptions
	var stream tools.StreamFlags
	switch cmd {
	case tools.CommandInspect:
		flags := tools.ParseFlagsForCommandInspect(args)
		stream = flags.StreamFlags
		opts = stream.CommandOptions(cmd)
	case tools.CommandSimulate:
		flags := tools.ParseFlagsForCommandSimulate(args)
		stream = flags.StreamFlags
		opts = stream.CommandOptions(cmd)
		opts.SimulateOptions = &config.SimulateOptions{
			Scenario:   *flags.Scenario,
			Frames:     *flags.Frames,
			MetricsOut: *flags.MetricsOut,
		}
	case tools.CommandExport:
		flags := tools.ParseFlagsForCommandExport(args)
		stream = flags.StreamFlags
		opts = stream.CommandOptions(cmd)
		opts.ExportOptions = &config.ExportOptions{
			Scenario: *flags.Scenario,
			Output:   *flags.Output,
			Settle:   *flags.Settle,
			ZOffset:  *flags.ZOffset,
		}
	case tools.CommandVerify:
		flags := tools.ParseFlagsForCommandVerify(args)
		stream = flags.StreamFlags
		opts = stream.CommandOptions(cmd)
		opts.VerifyOptions = &config.VerifyOptions{Workers: *flags.VerifyWorkers}
	default:
		glog.Fatalf("Unrecognized command [%q]. Command must be one of %s", cmd, commands)
	}

	// set logging and timestamp logging
	if *stream.Silent {
		tools.DisableLogger()
	} else {
		printLogo()
	}
	if !*stream.LogTimestamp {
		tools.DisableLoggerTimestamp()
	}
	glog.Infoln("options", tools.FmtJSONString(opts))

	if msg, ok := validateOptions(opts); !ok {
		glog.Fatal("Error parsing input parameters: " + msg)
	}

	runner, err := pkg.NewRunner(cmd, tools.NewStandardFileFinder(), source_manager.NewSourceManager(opts))
	if err != nil {
		glog.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	defer timeTrack(time.Now(), cmd)
	if err := runner.Run(ctx, opts); err != nil {
		glog.Fatalf("Error while running %s: %v", cmd, err)
	}
	tools.LogOutput(strings.ToUpper(cmd[:1]) + cmd[1:] + " completed")
}

// Validates the input options provided to the command line tool checking
// that local inputs exist and limits are usable
func validateOptions(opts *config.CommandOptions) (string, bool) {
	if opts.Input == "" {
		return "input is required", false
	}
	if !strings.Contains(opts.Input, "://") {
		if _, err := os.Stat(opts.Input); os.IsNotExist(err) {
			return "Input file/folder not found", false
		}
	}
	if opts.Stream.PointBudget <= 0 {
		return "point-budget must be positive", false
	}
	if opts.Stream.MaxNumNodesLoading <= 0 {
		return "max-nodes-loading must be positive", false
	}
	if opts.Stream.NumWorkers <= 0 {
		return "workers must be positive", false
	}
	if opts.ExportOptions != nil && opts.ExportOptions.Output == "" {
		return "export requires an output file", false
	}
	return "", true
}

func timeTrack(start time.Time, name string) {
	elapsed := time.Since(start)
	tools.LogOutput(fmt.Sprintf("%s took %s", name, elapsed))
}

func printLogo() {
	fmt.Println(strings.ReplaceAll(logo, "YYYY", strconv.Itoa(time.Now().Year())))
}

func showHelp() {
	printLogo()
	fmt.Println("***")
	fmt.Println("potree_streamer selects, loads and caches the nodes of potree point clouds the way a viewer does, from local folders, http, s3 or minio")
	printVersion()
	fmt.Println("***")
	fmt.Println("")
	fmt.Println("Usage: potree_streamer " + commands + " [flags]")
	fmt.Println("Run a command with -h to list its flags. Global flags: ")
	flag.CommandLine.SetOutput(os.Stdout)
	flag.PrintDefaults()
}

func printVersion() {
	fmt.Println("v." + VERSION)
}
