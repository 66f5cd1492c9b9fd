package deck

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/deckctl/internal/display"
	"github.com/danmuck/deckctl/internal/observability"
	"github.com/danmuck/deckctl/internal/protocol"
	"github.com/danmuck/deckctl/internal/protocol/frame"
	"github.com/danmuck/deckctl/internal/protocol/ticket"
	"github.com/danmuck/deckctl/internal/transport"
)

var (
	ErrClosed         = errors.New("deck: transport disconnected")
	ErrRequestTimeout = errors.New("deck: no reply within timeout")
	ErrNotReady       = errors.New("deck: engine not connected")
)

// State is the engine lifecycle. Disconnected is terminal for one Open; the
// caller decides whether to open again.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	}
	return "disconnected"
}

// Listener receives input events. Listeners run synchronously on the receive
// goroutine; anything slow must be offloaded by the listener itself.
type Listener func(protocol.InputEvent)

// Deck multiplexes commands awaiting replies, unsolicited input events, and
// bulk display payloads over one half-duplex transport.
type Deck struct {
	cfg    Config
	tr     transport.Transport
	limits frame.Limits
	log    zerolog.Logger

	// writeMu serializes encode+write so concurrent senders never interleave
	// frame bytes on the stream. Reads belong to the receive loop alone.
	writeMu sync.Mutex

	tickets *ticket.Registry
	decoder *frame.Decoder
	events  *protocol.EventDecoder

	listenerMu sync.RWMutex
	listeners  []Listener

	state     atomic.Int32
	closeOnce sync.Once
	readDone  chan struct{}
}

// Open starts the receive loop on t and probes the device with a serial
// number query. On probe failure the transport is closed and an error
// returned; the caller may retry with NextBackoffDelay.
func Open(t transport.Transport, cfg Config) (*Deck, error) {
	if cfg.ConnectTimeout <= 0 || cfg.CommandTimeout <= 0 {
		def := DefaultConfig()
		if cfg.ConnectTimeout <= 0 {
			cfg.ConnectTimeout = def.ConnectTimeout
		}
		if cfg.CommandTimeout <= 0 {
			cfg.CommandTimeout = def.CommandTimeout
		}
	}

	d := &Deck{
		cfg:      cfg,
		tr:       t,
		limits:   frame.DefaultLimits(),
		log:      log.With().Str("component", "deck").Logger(),
		tickets:  ticket.NewRegistry(),
		decoder:  frame.NewDecoder(frame.DefaultLimits()),
		events:   protocol.NewEventDecoder(),
		readDone: make(chan struct{}),
	}
	d.state.Store(int32(StateConnecting))
	go d.readLoop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if _, err := d.SendCommand(ctx, protocol.MsgGetSerial, nil); err != nil {
		d.Close()
		return nil, fmt.Errorf("deck: probe failed: %w", err)
	}

	d.state.Store(int32(StateReady))
	d.log.Info().Msg("deck ready")
	return d, nil
}

// State returns the engine lifecycle state.
func (d *Deck) State() State {
	return State(d.state.Load())
}

// OnEvent registers a listener for input events. Registration order is
// dispatch order.
func (d *Deck) OnEvent(fn Listener) {
	d.listenerMu.Lock()
	d.listeners = append(d.listeners, fn)
	d.listenerMu.Unlock()
}

// Close tears the engine down: every suspended SendCommand fails with
// ErrClosed and the transport is closed. Idempotent.
func (d *Deck) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.state.Store(int32(StateDisconnected))
		err = d.tr.Close()
		d.tickets.ExpireAll(ErrClosed)
	})
	<-d.readDone
	return err
}

// SendCommand writes one correlated command frame and suspends the caller
// until the matching reply arrives or the deadline passes. When ctx has no
// deadline, Config.CommandTimeout applies.
func (d *Deck) SendCommand(ctx context.Context, mt protocol.MessageType, payload []byte) ([]byte, error) {
	if !mt.Correlated() {
		return nil, fmt.Errorf("%w: %s", protocol.ErrNotCorrelated, mt)
	}
	if d.State() == StateDisconnected {
		return nil, ErrClosed
	}

	tk, err := d.tickets.Allocate()
	if err != nil {
		return nil, err
	}
	ch := make(chan ticket.Result, 1)
	d.tickets.Register(tk, ch)

	buf, err := frame.Encode(mt, tk, payload, d.limits)
	if err != nil {
		d.tickets.Expire(tk)
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.CommandTimeout)
		defer cancel()
	}

	d.writeMu.Lock()
	_, werr := d.tr.Write(buf)
	d.writeMu.Unlock()
	if werr != nil {
		d.tickets.Expire(tk)
		return nil, fmt.Errorf("%w: %v", ErrClosed, werr)
	}

	d.log.Trace().Stringer("type", mt).Uint8("ticket", tk).Int("len", len(payload)).Msg("command sent")

	select {
	case res := <-ch:
		return res.Payload, res.Err
	case <-ctx.Done():
		d.tickets.Expire(tk)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s ticket %d", ErrRequestTimeout, mt, tk)
		}
		return nil, ctx.Err()
	}
}

// SendDisplayUpdate pushes pixels to one display region. Fire-and-forget:
// the device does not acknowledge individual chunks. The write lock is held
// across the whole chunk sequence so concurrent updates never interleave.
func (d *Deck) SendDisplayUpdate(target display.Target, pixels *display.PixelBuffer) error {
	if d.State() == StateDisconnected {
		return ErrClosed
	}

	frames, err := display.EncodeUpdate(target, pixels)
	if err != nil {
		return err
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	for _, f := range frames {
		buf, err := frame.EncodeFrame(f, d.limits)
		if err != nil {
			return err
		}
		if _, err := d.tr.Write(buf); err != nil {
			return fmt.Errorf("%w: %v", ErrClosed, err)
		}
	}
	d.log.Debug().Str("target", target.Name).Int("frames", len(frames)).Msg("display update sent")
	return nil
}

// readLoop owns all transport reads: feed bytes to the frame decoder, route
// replies to the ticket registry, everything else through the event decoder
// to listeners. Exits on the first read error, failing all pending requests.
func (d *Deck) readLoop() {
	defer close(d.readDone)

	buf := make([]byte, 4096)
	for {
		n, err := d.tr.Read(buf)
		if n > 0 {
			frames, ferr := d.decoder.Feed(buf[:n])
			if ferr != nil {
				observability.RecordFramingError()
				d.log.Warn().Err(ferr).Uint64("skipped", d.decoder.Skipped()).Msg("framing fault, resynchronized")
			}
			for _, f := range frames {
				d.dispatch(f)
			}
		}
		if err != nil {
			d.fail(err)
			return
		}
	}
}

func (d *Deck) fail(cause error) {
	d.closeOnce.Do(func() {
		d.state.Store(int32(StateDisconnected))
		d.tr.Close()
		d.tickets.ExpireAll(ErrClosed)
		d.log.Warn().Err(cause).Msg("transport disconnected")
	})
	d.state.Store(int32(StateDisconnected))
}

func (d *Deck) dispatch(f frame.Frame) {
	observability.RecordFrameDecoded()

	if f.Type.Correlated() {
		if !d.tickets.Resolve(f.Ticket, f.Payload) {
			observability.RecordUnmatchedReply()
			d.log.Debug().Stringer("type", f.Type).Uint8("ticket", f.Ticket).Msg("unmatched reply dropped")
		}
		return
	}

	ev, err := d.events.Decode(f.Type, f.Payload)
	if err != nil {
		d.log.Warn().Err(err).Stringer("type", f.Type).Msg("malformed event payload")
		return
	}

	switch ev.(type) {
	case protocol.TickEvent:
		d.log.Trace().Msg("tick")
		return
	case protocol.UnknownEvent:
		observability.RecordUnknownMessage()
		d.log.Debug().Stringer("type", f.Type).Int("len", len(f.Payload)).Msg("unknown message type")
	}

	observability.RecordEvent(eventKind(ev))
	d.listenerMu.RLock()
	listeners := d.listeners
	d.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func eventKind(ev protocol.InputEvent) string {
	switch e := ev.(type) {
	case protocol.ButtonEvent:
		return "button"
	case protocol.KnobEvent:
		return "knob"
	case protocol.TouchEvent:
		return e.Phase.String()
	case protocol.UnknownEvent:
		return "unknown"
	}
	return "other"
}
