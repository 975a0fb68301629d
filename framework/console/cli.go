// Package console implements interopctl, a command-line tool for checking
// and exercising manifest-defined containers.
package console

import (
	"context"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/km-arc/go-interop/framework/container"
	"github.com/km-arc/go-interop/framework/manifest"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// dumper matches the inspector's output.
var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// CLI is the interopctl command tree.
type CLI struct {
	rootCmd *cobra.Command

	out io.Writer
	log *logrus.Logger

	manifestPath string
	logLevel     string
	verify       bool
}

// New returns the CLI writing command output to out and logs to errOut.
func New(out, errOut io.Writer) *CLI {
	c := &CLI{out: out, log: logrus.New()}
	c.log.SetOutput(errOut)

	c.rootCmd = &cobra.Command{
		Use:           "interopctl",
		Short:         "interopctl inspects and resolves service containers described by a manifest",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			level, err := logrus.ParseLevel(c.logLevel)
			if err != nil {
				return err
			}
			c.log.SetLevel(level)
			return nil
		},
	}
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(errOut)

	flags := c.rootCmd.PersistentFlags()
	flags.StringVarP(&c.manifestPath, "manifest", "m", os.Getenv("MANIFEST_PATH"), "manifest file (default $MANIFEST_PATH)")
	flags.StringVar(&c.logLevel, "log-level", "warn", "log level")
	flags.BoolVar(&c.verify, "verify", false, "warn about dependencies resolved without being declared")

	c.addCmd(&graphCmd{})
	c.addCmd(&resolveCmd{})
	c.addCmd(&serveCmd{})
	return c
}

// Exec runs the command line args (without the program name).
func (c *CLI) Exec(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) addCmd(cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.run(c, innerCmd, args)
	}
	c.rootCmd.AddCommand(cobraCmd)
}

type command interface {
	registerFlags() *cobra.Command
	run(cl *CLI, cmd *cobra.Command, args []string) error
}

// loadManifest reads the manifest named by --manifest.
func (c *CLI) loadManifest() (*manifest.Manifest, error) {
	if c.manifestPath == "" {
		return nil, errNoManifest
	}
	return manifest.Load(c.manifestPath)
}

// buildContainer builds a container holding only the manifest's entries.
func (c *CLI) buildContainer(m *manifest.Manifest) (*container.Container, error) {
	opts := []container.Option{container.WithLogger(c.log)}
	if c.verify {
		opts = append(opts, container.WithDependencyVerification())
	}
	return container.Build([]container.ServiceProvider{m.Provider()}, opts...)
}
