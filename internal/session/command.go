package session

import (
	"context"
	"time"

	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/region"
	"github.com/GriffinCanCode/scan-sentry/internal/trace"
)

// Command names accepted by Execute.
const (
	CmdSetCorner     = "set_corner"
	CmdStartScan     = "start_scan"
	CmdStopScan      = "stop_scan"
	CmdToggleOverlay = "toggle_overlay"
	CmdConfigure     = "configure"
	CmdSaveConfig    = "save_config"
	CmdLoadConfig    = "load_config"
	CmdExit          = "exit"
	CmdStatus        = "status"
)

// Command is the transport-neutral form of a session command.
type Command struct {
	Name string `json:"command"`

	// set_corner: explicit X/Y wins over the pointer; Immediate skips the delay.
	Corner    string `json:"corner,omitempty"`
	X         *int   `json:"x,omitempty"`
	Y         *int   `json:"y,omitempty"`
	Immediate bool   `json:"immediate,omitempty"`

	// start_scan: nil uses the session default.
	Limit *int `json:"limit,omitempty"`

	// configure
	Interval *float64 `json:"interval,omitempty"`
	Targets  []string `json:"targets,omitempty"`
	Reverse  *bool    `json:"reverse,omitempty"`

	TraceID string `json:"trace_id,omitempty"`
}

// Result carries whatever the command produced plus the status afterwards.
type Result struct {
	Command   string        `json:"command"`
	Point     *region.Point `json:"point,omitempty"`
	Visible   *bool         `json:"visible,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Status    Status        `json:"status"`
}

// Executor runs commands; every command surface goes through it.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (Result, error)
}

// Execute dispatches cmd to the matching session method.
func (s *Session) Execute(ctx context.Context, cmd Command) (Result, error) {
	if cmd.TraceID != "" {
		ctx = trace.WithContext(ctx, trace.NewChild(trace.Context{TraceID: cmd.TraceID}))
	} else {
		ctx, _ = trace.EnsureContext(ctx)
	}
	ctx, span := trace.StartSpan(ctx, "command")
	span.SetAttr("command", cmd.Name)
	defer span.End()

	res := Result{Command: cmd.Name}
	err := s.execute(ctx, cmd, &res)
	if err != nil {
		span.SetAttr("error", err.Error())
	}
	res.Status = s.Status()
	return res, err
}

func (s *Session) execute(ctx context.Context, cmd Command, res *Result) error {
	switch cmd.Name {
	case CmdSetCorner:
		which, err := region.ParseCorner(cmd.Corner)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodePrecondition, "unknown corner")
		}
		if cmd.X != nil && cmd.Y != nil {
			p := region.Point{X: *cmd.X, Y: *cmd.Y}
			res.Point = &p
			return s.SetCornerAt(which, p)
		}
		var p region.Point
		if cmd.Immediate {
			p, err = s.SetCornerNow(ctx, which)
		} else {
			p, err = s.SetCorner(ctx, which)
		}
		if err == nil {
			res.Point = &p
		}
		return err

	case CmdStartScan:
		limit := s.Settings().Limit
		if cmd.Limit != nil {
			limit = *cmd.Limit
		}
		sess, err := s.StartScan(ctx, limit)
		if err == nil {
			res.SessionID = sess.ID.String()
		}
		return err

	case CmdStopScan:
		return s.StopScan(ctx)

	case CmdToggleOverlay:
		visible, err := s.ToggleOverlay()
		res.Visible = &visible
		return err

	case CmdConfigure:
		p := Patch{Limit: cmd.Limit, Targets: cmd.Targets, Reverse: cmd.Reverse}
		if cmd.Interval != nil {
			d := time.Duration(*cmd.Interval * float64(time.Second))
			p.Interval = &d
		}
		return s.Configure(p)

	case CmdSaveConfig:
		return s.SaveConfig()

	case CmdLoadConfig:
		return s.LoadConfig()

	case CmdExit:
		return s.Exit(ctx)

	case CmdStatus:
		return nil

	default:
		return apperrors.Newf(apperrors.CodePrecondition, "unknown command %q", cmd.Name)
	}
}
