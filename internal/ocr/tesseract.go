package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/GriffinCanCode/scan-sentry/internal/errors"
)

// Tesseract implements Engine with a gosseract client configured for a
// single uniform block of text.
type Tesseract struct {
	clientFactory func() *gosseract.Client
	languages     []string

	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract constructs a Tesseract-backed engine. The client is created
// lazily on first use and reused afterwards, since loading the model
// dominates the cost of small captures.
func NewTesseract(languages ...string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{clientFactory: gosseract.NewClient, languages: languages}
}

// Recognize implements Engine.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeRecognition, "encode image for ocr")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	c, err := t.ensureClient()
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeRecognition, "init tesseract")
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeRecognition, "set image")
	}
	text, err := c.Text()
	if err != nil {
		// A failed Text() can leave the client in a bad state; start fresh next time.
		t.resetLocked()
		return "", apperrors.Wrap(err, apperrors.CodeRecognition, "recognize text")
	}
	return text, nil
}

func (t *Tesseract) ensureClient() (*gosseract.Client, error) {
	if t.client != nil {
		return t.client, nil
	}
	c := t.clientFactory()
	if err := c.SetLanguage(t.languages...); err != nil {
		c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		c.Close()
		return nil, fmt.Errorf("set page segmentation: %w", err)
	}
	slog.Debug("tesseract client ready", "version", c.Version(), "languages", t.languages)
	t.client = c
	return c, nil
}

func (t *Tesseract) resetLocked() {
	if t.client != nil {
		_ = t.client.Close()
		t.client = nil
	}
}

// Close releases the underlying client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	return nil
}
