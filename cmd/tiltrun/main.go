package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cfoust/tiltrun/pkg/config"
	"github.com/cfoust/tiltrun/pkg/version"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var CLI struct {
	Version bool `help:"Print version information and exit." short:"v"`
	Debug   bool `help:"Whether to enable debug logging."`

	Serve struct {
		Configs  []string `arg:"" optional:"" name:"configs" help:"Configuration files, merged in order." type:"existingfile"`
		Headless bool     `help:"Run without the terminal shell."`
		LogFile  string   `help:"Where to write logs while the terminal shell is open. Overrides the configuration."`
	} `cmd:"" help:"Listen for the sensor and run the game."`

	Config struct {
		Configs []string `arg:"" optional:"" name:"configs" help:"Configuration files to merge and print." type:"existingfile"`
	} `cmd:"" help:"Write tiltrun's configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func configCommand(configs []string) error {
	if len(configs) == 0 {
		_, err := os.Stdout.Write(config.DEFAULT)
		return err
	}

	merged, err := config.Process(configs)
	if err != nil {
		return err
	}

	data, err := config.Marshal(merged)
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(data)
	return err
}

func main() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if len(os.Args) == 1 {
		err := serveCommand([]string{})
		if err != nil {
			writeError(err)
		}
		return
	}

	ctx := kong.Parse(&CLI,
		kong.Name("tiltrun"),
		kong.Description("a side-scrolling runner you play by tilting your phone"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	if CLI.Version {
		fmt.Printf(
			"tiltrun %s (commit %s)\n",
			version.Version,
			version.GitCommit,
		)
		fmt.Printf(
			"built %s\n",
			version.BuildTime,
		)
		os.Exit(0)
	}

	var err error
	switch ctx.Command() {
	case "serve", "serve <configs>":
		err = serveCommand(CLI.Serve.Configs)
	case "config", "config <configs>":
		err = configCommand(CLI.Config.Configs)
	}

	if err != nil {
		writeError(err)
	}
}
