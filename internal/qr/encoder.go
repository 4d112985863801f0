package qr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/farellandr/ticketgate/internal/monitoring"
)

const (
	DefaultSize = 256

	dataURLPrefix = "data:image/png;base64,"
	probePayload  = "ticketgate-probe"
)

var ErrUnavailable = errors.New("qr encoder unavailable")

// Image is an encoded QR code. Degraded images are placeholders that no
// scanner can read back.
type Image struct {
	PNG      []byte
	DataURL  string
	Degraded bool
}

type EncodeFunc func(content string, size int) ([]byte, error)

type Option func(*Encoder)

func WithEncodeFunc(fn EncodeFunc) Option {
	return func(e *Encoder) {
		e.encode = fn
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Encoder) {
		e.logger = logger
	}
}

// Encoder turns payload strings into PNG QR codes. It becomes usable once
// its background probe finishes; Encode blocks until then.
type Encoder struct {
	encode EncodeFunc
	logger zerolog.Logger

	ready chan struct{}
	err   error
}

func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		encode: encodeMedium,
		logger: zerolog.Nop(),
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	go e.init()

	return e
}

func encodeMedium(content string, size int) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, size)
}

func (e *Encoder) init() {
	defer close(e.ready)

	if _, err := e.encode(probePayload, 64); err != nil {
		e.err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		e.logger.Warn().Err(err).Msg("qr encoder unavailable, tickets will carry placeholder images")
		return
	}

	e.logger.Debug().Msg("qr encoder ready")
}

// Ready is closed once initialisation has finished, successfully or not.
func (e *Encoder) Ready() <-chan struct{} {
	return e.ready
}

// Err reports the initialisation failure, if any. It is only meaningful
// after Ready is closed.
func (e *Encoder) Err() error {
	select {
	case <-e.ready:
		return e.err
	default:
		return nil
	}
}

// Encode renders payload as a square PNG of roughly size pixels. The only
// error it returns is ctx's; encoding failures degrade to a placeholder.
func (e *Encoder) Encode(ctx context.Context, payload string, size int) (Image, error) {
	select {
	case <-e.ready:
	case <-ctx.Done():
		return Image{}, ctx.Err()
	}

	if size <= 0 {
		size = DefaultSize
	}

	if e.err == nil {
		png, err := e.encode(payload, size)
		if err == nil {
			return newImage(png, false), nil
		}
		e.logger.Warn().Err(err).Int("payload_len", len(payload)).Msg("qr encode failed, using placeholder")
	}

	monitoring.RecordQRDegraded()

	return newImage(Placeholder(payload, size), true), nil
}

func newImage(png []byte, degraded bool) Image {
	return Image{
		PNG:      png,
		DataURL:  dataURLPrefix + base64.StdEncoding.EncodeToString(png),
		Degraded: degraded,
	}
}
