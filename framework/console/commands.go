package console

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/km-arc/go-interop/framework/app"
)

var errNoManifest = errors.New("no manifest: pass --manifest or set MANIFEST_PATH")

// ── graph ────────────────────────────────────────────────────────────────────

type graphCmd struct{}

func (g *graphCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "List every key with its factory, extensions, declared dependencies and cycles",
		Args:  cobra.NoArgs,
	}
}

func (g *graphCmd) run(cl *CLI, cmd *cobra.Command, args []string) error {
	m, err := cl.loadManifest()
	if err != nil {
		return err
	}
	c, err := cl.buildContainer(m)
	if err != nil {
		return err
	}

	cycles := 0
	for _, e := range c.Entries() {
		source := gray("extensions only")
		if e.Factory {
			source = green("factory")
		}
		fmt.Fprintf(cl.out, "%s  %s, %d extension(s)\n", e.Key, source, e.Extensions)
		if len(e.Dependencies) > 0 {
			fmt.Fprintf(cl.out, "    depends on: %s\n", strings.Join(e.Dependencies, ", "))
		}
		if path := c.DeclaredCycle(e.Key); path != nil {
			cycles++
			fmt.Fprintf(cl.out, "    %s %s\n", red("cycle:"), strings.Join(path, " -> "))
		}
	}

	if cycles > 0 {
		return fmt.Errorf("%d key(s) on a declared cycle", cycles)
	}
	return nil
}

// ── resolve ──────────────────────────────────────────────────────────────────

type resolveCmd struct{}

func (r *resolveCmd) registerFlags() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve KEY...",
		Short: "Resolve keys from the manifest and dump their values",
		Args:  cobra.MinimumNArgs(1),
	}
}

func (r *resolveCmd) run(cl *CLI, cmd *cobra.Command, args []string) error {
	m, err := cl.loadManifest()
	if err != nil {
		return err
	}
	c, err := cl.buildContainer(m)
	if err != nil {
		return err
	}

	failed := 0
	for _, key := range args {
		v, err := c.Get(key)
		if err != nil {
			failed++
			fmt.Fprintf(cl.out, "%s %s: %v\n", red("✗"), key, err)
			continue
		}
		fmt.Fprintf(cl.out, "%s %s = %s", green("✓"), key, dumper.Sdump(v))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d key(s) failed to resolve", failed, len(args))
	}
	return nil
}

// ── serve ────────────────────────────────────────────────────────────────────

type serveCmd struct {
	envFiles []string
}

func (s *serveCmd) registerFlags() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the application with the manifest's services and the inspector",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringSliceVar(&s.envFiles, "env-file", nil, ".env files to load")
	return cmd
}

func (s *serveCmd) run(cl *CLI, cmd *cobra.Command, args []string) error {
	opts := []app.Option{app.WithEnvFiles(s.envFiles...)}
	if cl.manifestPath != "" {
		opts = append(opts, app.WithManifest(cl.manifestPath))
	}

	a, err := app.New(opts...)
	if err != nil {
		return pkgerrors.Wrap(err, "build application")
	}
	fmt.Fprintf(cl.out, "%s %s on :%s, inspector at %s\n",
		yellow("serving"), a.Config().App.Name, a.Config().App.Port, a.Config().Inspector.Prefix)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.Run(ctx)
}
