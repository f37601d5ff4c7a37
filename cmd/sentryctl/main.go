// sentryctl - command-line client for a running sentry daemon
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/GriffinCanCode/scan-sentry/internal/config"
	"github.com/GriffinCanCode/scan-sentry/internal/control"
	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/region"
	"github.com/GriffinCanCode/scan-sentry/internal/session"
)

const usage = `usage: sentryctl [-addr host:port] <command> [args]

commands:
  status
  corner top_left|bottom_right [x,y]   pointer position when x,y is omitted
  start [limit]
  stop
  overlay
  configure [-interval s] [-limit n] [-reverse] [-forward] [-targets a,b]
  save
  load
  exit
  health
`

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	fs := flag.NewFlagSet("sentryctl", flag.ExitOnError)
	addr := fs.String("addr", cfg.GRPCAddr, "control service address")
	timeout := fs.Duration("timeout", 10*time.Second, "call timeout")
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	client, err := control.Dial(*addr)
	if err != nil {
		fail(err)
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := dispatch(ctx, client, fs.Arg(0), fs.Args()[1:]); err != nil {
		fail(err)
	}
}

func dispatch(ctx context.Context, c *control.Client, name string, args []string) error {
	switch name {
	case "health":
		ok, err := c.Healthy(ctx)
		if err != nil {
			return err
		}
		fmt.Println(map[bool]string{true: "SERVING", false: "NOT_SERVING"}[ok])
		return nil
	case "status":
		return show(c.Status(ctx))
	case "corner":
		if len(args) == 0 {
			return errors.New("corner needs top_left or bottom_right")
		}
		var p *region.Point
		if len(args) > 1 {
			pt, err := region.ParsePoint(args[1])
			if err != nil {
				return err
			}
			p = &pt
		}
		return show(c.SetCorner(ctx, args[0], p))
	case "start":
		var limit *int
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("limit: %w", err)
			}
			limit = &n
		}
		return show(c.StartScan(ctx, limit))
	case "stop":
		return show(c.StopScan(ctx))
	case "overlay":
		return show(c.ToggleOverlay(ctx))
	case "configure":
		cmd, err := configureCommand(args)
		if err != nil {
			return err
		}
		return show(c.Call(ctx, cmd))
	case "save":
		return show(c.Call(ctx, session.Command{Name: session.CmdSaveConfig}))
	case "load":
		return show(c.Call(ctx, session.Command{Name: session.CmdLoadConfig}))
	case "exit":
		return show(c.Exit(ctx))
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func configureCommand(args []string) (session.Command, error) {
	fs := flag.NewFlagSet("configure", flag.ContinueOnError)
	interval := fs.Float64("interval", 0, "scan interval in seconds")
	limit := fs.Int("limit", -1, "default scan limit, 0 for unbounded")
	reverse := fs.Bool("reverse", false, "press the match key when no target is found")
	forward := fs.Bool("forward", false, "press the match key when a target is found")
	targets := fs.String("targets", "", "comma separated target words")
	if err := fs.Parse(args); err != nil {
		return session.Command{}, err
	}

	cmd := session.Command{Name: session.CmdConfigure}
	if *interval > 0 {
		cmd.Interval = interval
	}
	if *limit >= 0 {
		cmd.Limit = limit
	}
	switch {
	case *reverse && *forward:
		return cmd, errors.New("-reverse and -forward are exclusive")
	case *reverse || *forward:
		cmd.Reverse = reverse
	}
	if *targets != "" {
		cmd.Targets = config.SplitList(*targets)
	}
	return cmd, nil
}

func show(res session.Result, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func fail(err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		fmt.Fprintf(os.Stderr, "sentryctl: %s: %s\n", appErr.Code, appErr.Message)
	} else {
		fmt.Fprintf(os.Stderr, "sentryctl: %v\n", err)
	}
	os.Exit(1)
}
