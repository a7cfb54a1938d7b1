package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/specialistvlad/planrunner/internal/app"
	"github.com/specialistvlad/planrunner/internal/config"
	"github.com/specialistvlad/planrunner/internal/ctxlog"
	"github.com/specialistvlad/planrunner/internal/fault"
	"github.com/specialistvlad/planrunner/internal/session"
	"github.com/specialistvlad/planrunner/internal/value"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// globalFlags are the configuration overrides shared by every command.
type globalFlags struct {
	configPath string
	mode       string
	logLevel   string
	logFormat  string
	plansDir   string
	planSource string
	dsn        string
}

// Execute runs the command line in args. Command output goes to outW and
// logs to errW. environ feeds HCL config expressions.
func Execute(ctx context.Context, outW, errW io.Writer, args, environ []string) error {
	root := NewRootCommand(outW, errW, environ)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the planrunner command tree.
func NewRootCommand(outW, errW io.Writer, environ []string) *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "planrunner",
		Short:         "Serve and run declarative block plans",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Path to a .hcl or .toml configuration file.")
	pf.StringVar(&g.mode, "mode", "", "Execution mode: 'production' or 'test'.")
	pf.StringVar(&g.logLevel, "log-level", "", "Logging level: 'debug', 'info', 'warn' or 'error'.")
	pf.StringVar(&g.logFormat, "log-format", "", "Log output format: 'text' or 'json'.")
	pf.StringVar(&g.plansDir, "plans-dir", "", "Directory holding plan documents.")
	pf.StringVar(&g.planSource, "plan-source", "", "Where plans are loaded from: 'fs' or 'sql'.")
	pf.StringVar(&g.dsn, "dsn", "", "Database DSN for the sql blocks, quota and plan stores.")

	root.AddCommand(
		newServeCommand(environ, &g),
		newRunCommand(outW, environ, &g),
		newValidateCommand(outW, environ, &g),
	)
	return root
}

// buildApp loads the configuration, applies flag overrides and wires the app.
func buildApp(cmd *cobra.Command, environ []string, g *globalFlags, override func(*config.Model)) (*app.App, error) {
	ctx := ctxlog.WithLogger(cmd.Context(), slog.Default())
	cfg, err := app.LoadConfig(ctx, g.configPath, environ)
	if err != nil {
		return nil, usageError("failed to load configuration: %v", err)
	}

	flags := cmd.Flags()
	setString := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = strings.ToLower(v)
		}
	}
	setString("mode", &cfg.Mode, g.mode)
	setString("log-level", &cfg.LogLevel, g.logLevel)
	setString("log-format", &cfg.LogFormat, g.logFormat)
	setString("plan-source", &cfg.PlanSource, g.planSource)
	if flags.Changed("plans-dir") {
		cfg.PlansDir = g.plansDir
	}
	if flags.Changed("dsn") {
		cfg.DSN = g.dsn
	}
	if override != nil {
		override(cfg)
	}

	a, err := app.NewApp(cmd.Context(), cmd.ErrOrStderr(), cfg)
	if err != nil {
		return nil, usageError("%v", err)
	}
	return a, nil
}

func newServeCommand(environ []string, g *globalFlags) *cobra.Command {
	var (
		address    string
		healthPort int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve plans over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd, environ, g, func(cfg *config.Model) {
				if cmd.Flags().Changed("address") {
					cfg.Address = address
				}
				if cmd.Flags().Changed("healthcheck-port") {
					cfg.HealthcheckPort = healthPort
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Listen address of the plan API.")
	cmd.Flags().IntVar(&healthPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	return cmd
}

func newRunCommand(outW io.Writer, environ []string, g *globalFlags) *cobra.Command {
	var (
		params     []string
		paramsJSON string
		account    string
		bizUnit    string
	)
	cmd := &cobra.Command{
		Use:   "run PLAN",
		Short: "Execute one plan and print its result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseParams(params, paramsJSON)
			if err != nil {
				return usageError("%v", err)
			}
			a, err := buildApp(cmd, environ, g, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res, s, err := a.RunPlan(cmd.Context(), args[0], values, session.Identity{Account: account, BizUnit: bizUnit})
			if err != nil {
				return runFailure(outW, err, s)
			}
			return writeJSON(outW, map[string]any{
				"status":  res.Status,
				"headers": res.Headers,
				"body":    res.Body,
			})
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Request parameter as key=value; repeatable.")
	cmd.Flags().StringVar(&paramsJSON, "params-json", "", "Request parameters as a JSON object.")
	cmd.Flags().StringVar(&account, "account", "", "Account the run is attributed to.")
	cmd.Flags().StringVar(&bizUnit, "bizunit", "", "Business unit of the run.")
	return cmd
}

func newValidateCommand(outW io.Writer, environ []string, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse every plan in the store and report errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd, environ, g, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.ValidatePlans(cmd.Context())
			if err != nil {
				return &ExitError{Code: 1, Message: err.Error()}
			}
			fmt.Fprintf(outW, "%d plans valid\n", n)
			return nil
		},
	}
}

// parseParams merges key=value pairs over a JSON object.
func parseParams(pairs []string, rawJSON string) (map[string]value.Value, error) {
	out := map[string]value.Value{}
	if rawJSON != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(rawJSON)))
		dec.UseNumber()
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid --params-json: %w", err)
		}
		for k, raw := range doc {
			v, err := value.FromNative(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid --params-json field %q: %w", k, err)
			}
			out[k] = v
		}
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", p)
		}
		out[k] = value.String(v)
	}
	return out, nil
}

// runFailure prints the fault payload and turns it into an exit code.
func runFailure(outW io.Writer, err error, s *session.Session) error {
	f, ok := fault.As(err)
	if !ok {
		return &ExitError{Code: 1, Message: err.Error()}
	}
	payload := map[string]any{
		"status":  fault.HTTPStatus(err),
		"error":   f.Kind.String(),
		"message": f.Message,
	}
	if s != nil && s.Test() {
		payload["debug"] = map[string]any{"key": f.Key, "messages": s.Messages()}
	}
	if werr := writeJSON(outW, payload); werr != nil {
		return errors.Join(err, werr)
	}
	return &ExitError{Code: 1, Message: err.Error()}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
