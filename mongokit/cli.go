package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sandrolain/mongokit/pkg/config"
	"github.com/sandrolain/mongokit/pkg/datakit"
	"github.com/sandrolain/mongokit/pkg/ops"
	"github.com/sandrolain/mongokit/pkg/session"
	"github.com/sandrolain/mongokit/pkg/toolutil"
	"github.com/spf13/cobra"
)

// app carries the state of one run: the parsed global flags, the codec and
// the session, which is created once the flags are known.
type app struct {
	cfg   *config.Config
	codec *datakit.Codec

	uri     string
	verbose bool
	noColor bool

	session *session.Session
	ops     *ops.Operations

	store ops.Store
}

type appOption func(*app)

// withStore serves the commands from store instead of the MongoDB session.
func withStore(store ops.Store) appOption {
	return func(a *app) { a.store = store }
}

func newApp(cfg *config.Config, codec *datakit.Codec, opts ...appOption) *app {
	a := &app{cfg: cfg, codec: codec}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "mongokit",
		Short: "MongoDB CRUD tool",
		Long: "Reads, replaces and updates MongoDB databases, collections and documents. " +
			"Data is read from and written to standard streams as JSON, or to files in JSON, YAML, CSV or CBOR " +
			"depending on the file extension.",
		Version:            version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		PersistentPreRunE:  a.setup,
	}
	if usage, err := config.Usage(); err == nil {
		root.Long += "\n\n" + usage
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.uri, "uri", a.cfg.URI, "MongoDB connection string (env MONGO_URI)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log debug messages to stderr")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	groups := make(map[string]*cobra.Command, len(verbs))
	for _, v := range verbs {
		cmd := verbCommand(v)
		groups[v.Name] = cmd
		root.AddCommand(cmd)
	}
	for _, m := range registry {
		groups[m.Verb].AddCommand(a.command(m))
	}
	return root
}

// verbCommand groups the commands of a verb. Without a known noun it fails,
// or shows help when called bare.
func verbCommand(v verbMeta) *cobra.Command {
	return &cobra.Command{
		Use:     v.Name,
		Aliases: v.Aliases,
		Short:   v.Hazard.describe(v.Short),
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return cmd.Help()
		},
	}
}

func (a *app) command(m commandMeta) *cobra.Command {
	flags := make(map[string]*bool, len(m.Flags))

	cmd := &cobra.Command{
		Use:     m.use(),
		Aliases: m.Aliases,
		Short:   m.Hazard.describe(m.Description),
		Args:    cobra.RangeArgs(m.requiredArgs(), len(m.Args)),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]bool, len(flags))
			for name, v := range flags {
				values[name] = *v
			}
			return m.Run(cmd.Context(), a.ops, m.bind(args, values))
		},
	}
	if m.AnyArgs {
		cmd.Args = cobra.ArbitraryArgs
	}

	for _, f := range m.Flags {
		usage := f.Usage
		if f.Destructive {
			usage = toolutil.Danger(usage)
		}
		flags[f.Name] = cmd.Flags().Bool(f.Name, false, usage)
	}
	return cmd
}

// setup runs after flag parsing and before any command.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	logger := toolutil.SetupLogger(a.verbose)

	if a.noColor {
		toolutil.DisableColor()
	} else if f, ok := a.codec.Stdout.(*os.File); ok && toolutil.IsTerminal(f) {
		a.codec.Highlight = toolutil.PrettyJSON
	}

	a.session = session.New(session.Config{
		URI:    a.uri,
		Logger: logger,
		Timeout: session.Timeout{
			Connect:    a.cfg.ConnectTimeout,
			Ping:       a.cfg.PingTimeout,
			Operation:  a.cfg.OperationTimeout,
			Disconnect: a.cfg.DisconnectTimeout,
		},
	})

	var store ops.Store = a.session
	if a.store != nil {
		store = a.store
	}
	a.ops = ops.New(store, a.codec, logger)
	return nil
}

// close releases the session. It is safe to call when no command ran.
func (a *app) close() error {
	if a.session == nil {
		return nil
	}
	return a.session.Disconnect(context.Background())
}
