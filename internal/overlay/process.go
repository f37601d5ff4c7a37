package overlay

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"strings"
)

// Process is a running overlay child.
type Process interface {
	Pid() int
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	Kill() error
}

// Spawner starts overlay children. The rectangle is passed once, by value.
type Spawner interface {
	Spawn(rect image.Rectangle, flagPath string) (Process, error)
}

// ExecSpawner runs Path with Args followed by --rect and --flag.
type ExecSpawner struct {
	Path string
	Args []string
}

// SelfSpawner re-executes the running binary with the hidden overlay subcommand.
func SelfSpawner() (*ExecSpawner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return &ExecSpawner{Path: exe, Args: []string{ChildCommand}}, nil
}

// Spawn implements Spawner.
func (s *ExecSpawner) Spawn(rect image.Rectangle, flagPath string) (Process, error) {
	args := append(slices.Clone(s.Args), "--rect", FormatRect(rect), "--flag", flagPath)
	cmd := exec.Command(s.Path, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	err  error
}

func (p *execProcess) Pid() int               { return p.cmd.Process.Pid }
func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil && err != os.ErrProcessDone {
		return err
	}
	return nil
}

// FormatRect encodes r as "x0,y0,x1,y1".
func FormatRect(r image.Rectangle) string {
	return fmt.Sprintf("%d,%d,%d,%d", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
}

// ParseRect decodes FormatRect's output.
func ParseRect(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("rect %q: want x0,y0,x1,y1", s)
	}
	var n [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("rect %q: %w", s, err)
		}
		n[i] = v
	}
	r := image.Rect(n[0], n[1], n[2], n[3])
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("rect %q is empty", s)
	}
	return r, nil
}
