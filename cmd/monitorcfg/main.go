package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"monitorcfg/internal/app"
	"monitorcfg/internal/config"
	"monitorcfg/internal/manager"
	"monitorcfg/internal/monitor"
	"monitorcfg/internal/monitorconfig"
)

type ExitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if ex, ok := err.(ExitCoder); ok {
			os.Exit(ex.ExitCode())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var hardwarePath string
	var jsonOutput bool
	var debug bool

	options := func() app.Options {
		opts := app.Options{ConfigPath: configPath, HardwarePath: hardwarePath}
		if debug {
			opts.LogLevel = "debug"
		}
		return opts
	}
	newSvc := func() (*app.Service, error) { return app.New(options()) }
	// doctor and config must work while the hardware snapshot is unreadable.
	openSvc := func() (*app.Service, error) { return app.Open(options()) }

	cmd := &cobra.Command{
		Use:           "monitorcfg",
		Short:         "Store, synthesize and assign monitor configurations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&hardwarePath, "hardware", "", "path to hardware snapshot (overrides paths.hardware)")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level, including assignment dumps")

	cmd.AddCommand(newStoredCmd(newSvc, &jsonOutput))
	for _, strategy := range []manager.Strategy{manager.StrategyLinear, manager.StrategyFallback, manager.StrategySuggested} {
		cmd.AddCommand(newCreateCmd(strategy, newSvc, &jsonOutput))
	}
	cmd.AddCommand(newAssignCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newApplyCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newVerifyCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newStoreCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newMigrateCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newWatchCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newDoctorCmd(openSvc, &jsonOutput))
	cmd.AddCommand(newConfigCmd(openSvc, &jsonOutput))
	cmd.AddCommand(newVersionCmd(&jsonOutput))

	return cmd
}

// withService runs fn and then flushes the service's metrics.
func withService(newSvc func() (*app.Service, error), fn func(svc *app.Service) error) error {
	svc, err := newSvc()
	if err != nil {
		return err
	}
	runErr := fn(svc)
	if err := svc.Close(); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func newStoredCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "stored",
		Short: "Print the stored configuration for the connected monitors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(newSvc, func(svc *app.Service) error {
				cfg, ok := svc.Stored()
				if !ok {
					return &exitError{code: 2, msg: "STORE_LOOKUP: no stored configuration for " + svc.Manager.CurrentKey().String()}
				}
				return print(*jsonOutput, cfg, formatConfig(cfg))
			})
		},
	}
}

func newCreateCmd(strategy manager.Strategy, newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   string(strategy),
		Short: fmt.Sprintf("Print the %s configuration for the connected monitors", strategy),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(newSvc, func(svc *app.Service) error {
				cfg, err := svc.Create(strategy)
				if err != nil {
					return err
				}
				return print(*jsonOutput, cfg, formatConfig(cfg))
			})
		},
	}
}

func parseStrategies(args []string) ([]manager.Strategy, error) {
	strategies := make([]manager.Strategy, 0, len(args))
	for _, arg := range args {
		strategy, err := manager.ParseStrategy(arg)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, strategy)
	}
	return strategies, nil
}

func newAssignCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "assign [stored|suggested|linear|fallback]",
		Short: "Print the CRTC and output assignments for a configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy := manager.StrategyLinear
			if len(args) == 1 {
				parsed, err := manager.ParseStrategy(args[0])
				if err != nil {
					return err
				}
				strategy = parsed
			}
			return withService(newSvc, func(svc *app.Service) error {
				result, err := svc.Assign(strategy)
				if err != nil {
					return err
				}
				return print(*jsonOutput, result, formatAssignment(result))
			})
		},
	}
}

func newApplyCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var noSave bool
	cmd := &cobra.Command{
		Use:   "apply [strategy...]",
		Short: "Configure the monitors with the first strategy that works and store the result",
		Long: "Tries stored, suggested, linear and fallback in turn, or only the given strategies.\n" +
			"The first configuration that verifies and fits the CRTCs becomes current and is stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			strategies, err := parseStrategies(args)
			if err != nil {
				return err
			}
			return withService(newSvc, func(svc *app.Service) error {
				result, err := svc.Apply(strategies, !noSave)
				if errors.Is(err, app.ErrNoUsableConfig) {
					return &exitError{code: 2, msg: err.Error()}
				}
				if err != nil {
					return err
				}
				return print(*jsonOutput, result, formatAssignment(result))
			})
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not add the applied configuration to the store")
	return cmd
}

func newVerifyCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "verify <file>",
		Aliases: []string{"validate"},
		Short:   "Check that a monitors config file parses and verifies against the hardware",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(newSvc, func(svc *app.Service) error {
				count, err := svc.Verify(args[0])
				if err != nil {
					return err
				}
				return print(*jsonOutput, map[string]any{"valid": true, "configs": count},
					fmt.Sprintf("%s: %d valid configuration(s)", args[0], count))
			})
		},
	}
}

func newStoreCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	storeCmd := &cobra.Command{Use: "store", Short: "Inspect the configuration store"}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored configurations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(newSvc, func(svc *app.Service) error {
				configs := svc.StoreConfigs()
				if *jsonOutput {
					return print(true, configs, "")
				}
				if len(configs) == 0 {
					fmt.Println("no stored configurations")
					return nil
				}
				for _, cfg := range configs {
					fmt.Print(formatConfig(cfg))
				}
				return nil
			})
		},
	}

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(newSvc, func(svc *app.Service) error {
				count := svc.Store.Count()
				return print(*jsonOutput, map[string]int{"configs": count}, fmt.Sprint(count))
			})
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the store as a monitors config document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(newSvc, func(svc *app.Service) error {
				return svc.StoreDump(os.Stdout)
			})
		},
	}

	storeCmd.AddCommand(listCmd, countCmd, dumpCmd)
	return storeCmd
}

func newMigrateCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [legacy-file]",
		Short: "Migrate a version 1 monitors.xml into the store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return withService(newSvc, func(svc *app.Service) error {
				res, err := svc.Migrate(path)
				if err != nil {
					return err
				}
				return print(*jsonOutput, res,
					fmt.Sprintf("migrated %d configuration(s), %d failed, %d invalid", res.Migrated, res.Failed, res.Invalid))
			})
		},
	}
}

func newWatchCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload the store whenever its file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withService(newSvc, func(svc *app.Service) error {
				if !*jsonOutput {
					fmt.Printf("watching %s\n", svc.Store.Path())
				}
				return svc.Watch(ctx)
			})
		},
	}
}

func newDoctorCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"diag", "checkup"},
		Short:   "Run diagnostics",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(newSvc, func(svc *app.Service) error {
				report := svc.DoctorRun()
				if *jsonOutput {
					return print(true, report, "")
				}
				if report.Healthy && len(report.Findings) == 0 {
					fmt.Println("healthy")
					return nil
				}
				if report.Healthy {
					fmt.Println("healthy with warnings:")
				} else {
					fmt.Println("issues found:")
				}
				for _, f := range report.Findings {
					fmt.Printf("- [%s] %s\n", f.Code, f.Message)
				}
				return nil
			})
		},
	}
}

func newConfigCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	configCmd := &cobra.Command{Use: "config", Short: "Read and change tool settings"}

	getCmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(newSvc, func(svc *app.Service) error {
				keys := config.Keys()
				if len(args) == 1 {
					keys = []string{args[0]}
				}
				values := make(map[string]string, len(keys))
				var lines []string
				for _, key := range keys {
					value, err := svc.ConfigGet(key)
					if err != nil {
						return err
					}
					values[key] = value
					lines = append(lines, key+" = "+value)
				}
				return print(*jsonOutput, values, strings.Join(lines, "\n"))
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(newSvc, func(svc *app.Service) error {
				if err := svc.ConfigSet(args[0], args[1]); err != nil {
					return err
				}
				return print(*jsonOutput, map[string]string{args[0]: args[1]}, fmt.Sprintf("set %s = %s", args[0], args[1]))
			})
		},
	}

	configCmd.AddCommand(getCmd, setCmd)
	return configCmd
}

func formatConfig(cfg *monitorconfig.MonitorsConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s layout)\n", cfg.Key, cfg.LayoutMode)
	for _, lm := range cfg.LogicalMonitorConfigs {
		var flags []string
		if lm.IsPrimary {
			flags = append(flags, "primary")
		}
		if lm.IsPresentation {
			flags = append(flags, "presentation")
		}
		if lm.Transform != monitor.TransformNormal {
			flags = append(flags, "transform="+lm.Transform.String())
		}
		fmt.Fprintf(&b, "  %s scale=%g", lm.Layout, lm.Scale)
		if len(flags) > 0 {
			fmt.Fprintf(&b, " %s", strings.Join(flags, " "))
		}
		b.WriteString("\n")
		for _, mc := range lm.MonitorConfigs {
			fmt.Fprintf(&b, "    %s %dx%d@%s", mc.Spec, mc.Mode.Width, mc.Mode.Height, monitor.FormatRate(mc.Mode.RefreshRate))
			if mc.EnableUnderscanning {
				b.WriteString(" underscanning")
			}
			b.WriteString("\n")
		}
	}
	for _, spec := range cfg.DisabledMonitorSpecs {
		fmt.Fprintf(&b, "  disabled %s\n", spec)
	}
	return b.String()
}

func formatAssignment(a app.Assignment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "strategy: %s\n", a.Strategy)
	b.WriteString(formatConfig(a.Config))
	for _, crtc := range a.Crtcs {
		fmt.Fprintf(&b, "crtc %d: %dx%d@%s +%d+%d %s -> %s\n",
			crtc.Crtc, crtc.Width, crtc.Height, monitor.FormatRate(crtc.RefreshRate),
			crtc.X, crtc.Y, crtc.Transform, strings.Join(crtc.Outputs, ","))
	}
	for _, output := range a.Outputs {
		var flags []string
		if output.IsPrimary {
			flags = append(flags, "primary")
		}
		if output.IsPresentation {
			flags = append(flags, "presentation")
		}
		if output.IsUnderscanning {
			flags = append(flags, "underscanning")
		}
		fmt.Fprintf(&b, "output %s %s\n", output.Output, strings.Join(flags, " "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func print(jsonOutput bool, payload any, message string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(blob))
		return nil
	}
	if message != "" {
		fmt.Println(strings.TrimRight(message, "\n"))
	}
	return nil
}
