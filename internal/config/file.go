package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
	"github.com/GriffinCanCode/scan-sentry/internal/region"
)

// Config file keys
const (
	KeyTopLeft      = "top_left"
	KeyBottomRight  = "bottom_right"
	KeyTargetWords  = "target_words"
	KeyScanInterval = "scan_interval"
	KeyReverseLogic = "reverse_logic"
)

// File is the persisted session state. Nil fields were absent from the file.
type File struct {
	TopLeft      *region.Point
	BottomRight  *region.Point
	TargetWords  []string
	ScanInterval *time.Duration
	ReverseLogic *bool

	// Problems holds one CONFIG_PARSE error per rejected line.
	Problems []error
}

// LoadFile reads path. Each line is parsed on its own, so a bad line only
// costs that line. A missing file is a CONFIG_MISSING error.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return nil, apperrors.New(apperrors.CodeConfigMissing, "no config file specified")
	}
	fh, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigMissing, "config file not found").WithMetadata("path", path)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeConfigMissing, "open config file").WithMetadata("path", path)
	}
	defer fh.Close()

	f := &File{}
	sc := bufio.NewScanner(fh)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := f.applyLine(line); err != nil {
			f.Problems = append(f.Problems, apperrors.Wrapf(err, apperrors.CodeConfigParse, "line %d", lineNo).
				WithMetadata("path", path))
		}
	}
	if err := sc.Err(); err != nil {
		return f, apperrors.Wrap(err, apperrors.CodeConfigParse, "read config file")
	}
	return f, nil
}

func (f *File) applyLine(line string) error {
	kv, err := godotenv.Unmarshal(line)
	if err != nil {
		return err
	}
	if len(kv) != 1 {
		return fmt.Errorf("expected key=value, got %q", line)
	}
	for key, value := range kv {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("missing key in %q", line)
		}
		return f.apply(strings.ToLower(key), strings.TrimSpace(value))
	}
	return nil
}

func (f *File) apply(key, value string) error {
	switch key {
	case KeyTopLeft, KeyBottomRight:
		p, err := region.ParsePoint(value)
		if err != nil {
			return err
		}
		if key == KeyTopLeft {
			f.TopLeft = &p
		} else {
			f.BottomRight = &p
		}
	case KeyTargetWords:
		f.TargetWords = SplitList(value)
	case KeyScanInterval:
		s, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("scan_interval: %w", err)
		}
		if s <= 0 {
			return fmt.Errorf("scan_interval must be positive, got %v", s)
		}
		d := Seconds(s)
		if d < MinScanInterval {
			return fmt.Errorf("scan_interval %v below minimum %s", s, MinScanInterval)
		}
		f.ScanInterval = &d
	case KeyReverseLogic:
		n, err := strconv.Atoi(value)
		if err != nil || (n != 0 && n != 1) {
			return fmt.Errorf("reverse_logic must be 0 or 1, got %q", value)
		}
		b := n == 1
		f.ReverseLogic = &b
	}
	return nil
}

// SaveFile writes f in the format LoadFile reads. Problems are not persisted.
func SaveFile(path string, f *File) error {
	if path == "" {
		return apperrors.New(apperrors.CodeConfigMissing, "no config file specified")
	}
	var b strings.Builder
	if f.TopLeft != nil {
		fmt.Fprintf(&b, "%s=%s\n", KeyTopLeft, f.TopLeft)
	}
	if f.BottomRight != nil {
		fmt.Fprintf(&b, "%s=%s\n", KeyBottomRight, f.BottomRight)
	}
	if f.TargetWords != nil {
		fmt.Fprintf(&b, "%s=%s\n", KeyTargetWords, strings.Join(f.TargetWords, ","))
	}
	if f.ScanInterval != nil {
		fmt.Fprintf(&b, "%s=%s\n", KeyScanInterval, strconv.FormatFloat(f.ScanInterval.Seconds(), 'f', -1, 64))
	}
	if f.ReverseLogic != nil {
		v := 0
		if *f.ReverseLogic {
			v = 1
		}
		fmt.Fprintf(&b, "%s=%d\n", KeyReverseLogic, v)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "write config file").WithMetadata("path", path)
	}
	return nil
}
