package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
	"github.com/mohammed-shakir/digipin-grid/internal/logger"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitInvalid = 2
)

// errInvalidInput marks user input errors; they exit with code 2.
var errInvalidInput = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidInput, fmt.Sprintf(format, args...))
}

type app struct {
	v   *viper.Viper
	cfg CLIConfig
	log zerolog.Logger
	in  io.Reader
	out io.Writer
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{v: newViper(), in: in, out: out}
	var cfgFile string

	root := &cobra.Command{
		Use:           "digipin",
		Short:         "Encode and decode DIGIPIN grid codes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.v, cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Component: "cli"}, errOut)
			a.log.Debug().Str("cmd", cmd.Name()).Str("format", cfg.Format).Msg("config loaded")
			return nil
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errInvalidInput, err)
	})
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ./digipin.yaml)")
	pf.String("format", "text", "output format: text or json")
	pf.String("log-level", "warn", "log level")
	_ = a.v.BindPFlag("format", pf.Lookup("format"))
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))

	root.AddCommand(
		a.encodeCmd(),
		a.decodeCmd(),
		a.boundsCmd(),
		a.shareCmd(),
		a.cellsCmd(),
		a.replCmd(),
	)
	return root
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInvalidInput),
		errors.Is(err, digipin.ErrOutOfRegion),
		errors.Is(err, digipin.ErrReservedSymbol),
		errors.Is(err, digipin.ErrMalformedCode),
		errors.Is(err, digipin.ErrUnrecognizedSymbol):
		return exitInvalid
	default:
		return exitFailure
	}
}

func main() {
	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(exitCode(err))
}
