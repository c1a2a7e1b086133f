// Package input turns text and key combinations into ordered key
// transitions on a Sink
package input

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/bnema/eitype/internal/keymap"
	"github.com/charmbracelet/log"
)

var (
	// ErrSinkClosed is returned when operating on a closed sink
	ErrSinkClosed = errors.New("sink is closed")
)

// DefaultDelay is the pause between press and release and between characters
const DefaultDelay = 5 * time.Millisecond

// Sink receives key transitions. Key and Frame may only queue; Flush makes
// queued transitions visible and Dispatch services whatever the other end
// sent in the meantime.
type Sink interface {
	Key(code uint32, pressed bool) error
	Frame() error
	Flush() error
	Dispatch() error
}

// Driver types text and key combinations on a Sink one key at a time
type Driver struct {
	sink  Sink
	delay time.Duration
	log   *log.Logger
	sleep func(time.Duration)
}

// Option configures a Driver
type Option func(*Driver)

// WithLogger sets the logger used for skipped characters and progress
func WithLogger(l *log.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

// WithSleep replaces time.Sleep, for tests
func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Driver) {
		d.sleep = sleep
	}
}

// NewDriver creates a driver that waits delay between press and release
// and again after every character
func NewDriver(sink Sink, delay time.Duration, opts ...Option) *Driver {
	d := &Driver{
		sink:  sink,
		delay: delay,
		log:   log.New(io.Discard),
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TypeText types text one character at a time. Characters without a key
// on the layout are skipped. The first sink error aborts typing.
func (d *Driver) TypeText(text string) error {
	typed, skipped := 0, 0
	for _, r := range text {
		info, ok := keymap.CharToKey(r)
		if !ok {
			d.log.Debug("skipping unmapped character", "char", strconv.QuoteRune(r))
			skipped++
			continue
		}
		if err := d.pressKey(info); err != nil {
			return fmt.Errorf("failed to type %s: %w", strconv.QuoteRune(r), err)
		}
		d.sleep(d.delay)
		typed++
	}
	d.log.Debug("typed text", "characters", typed, "skipped", skipped)
	return nil
}

// SendCombo presses a combination such as "ctrl+shift+t": modifiers in
// order, the key, then everything released in reverse. Nothing is sent if
// the combination does not parse.
func (d *Driver) SendCombo(spec string) error {
	combo, err := keymap.ParseCombo(spec)
	if err != nil {
		return err
	}
	d.log.Debug("sending combo", "combo", spec, "modifiers", combo.Modifiers, "key", combo.Key)

	for _, m := range combo.Modifiers {
		if err := d.transition(m, true); err != nil {
			return err
		}
	}
	if err := d.transition(combo.Key, true); err != nil {
		return err
	}
	if err := d.sink.Flush(); err != nil {
		return err
	}

	d.sleep(d.delay)

	if err := d.transition(combo.Key, false); err != nil {
		return err
	}
	for _, m := range slices.Backward(combo.Modifiers) {
		if err := d.transition(m, false); err != nil {
			return err
		}
	}
	if err := d.sink.Flush(); err != nil {
		return err
	}
	return d.sink.Dispatch()
}

// pressKey is one key transaction: press (with shift if needed), flush,
// wait, release, flush, dispatch
func (d *Driver) pressKey(info keymap.KeyInfo) error {
	if info.Shift {
		if err := d.transition(keymap.KEY_LEFTSHIFT, true); err != nil {
			return err
		}
	}
	if err := d.transition(info.Code, true); err != nil {
		return err
	}
	if err := d.sink.Flush(); err != nil {
		return err
	}

	d.sleep(d.delay)

	if err := d.transition(info.Code, false); err != nil {
		return err
	}
	if info.Shift {
		if err := d.transition(keymap.KEY_LEFTSHIFT, false); err != nil {
			return err
		}
	}
	if err := d.sink.Flush(); err != nil {
		return err
	}
	return d.sink.Dispatch()
}

// transition sends one key state change followed by its own frame
func (d *Driver) transition(code uint32, pressed bool) error {
	if err := d.sink.Key(code, pressed); err != nil {
		return err
	}
	return d.sink.Frame()
}
