package deck

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/deckctl/internal/display"
	"github.com/danmuck/deckctl/internal/protocol"
	"github.com/danmuck/deckctl/internal/protocol/frame"
	"github.com/danmuck/deckctl/internal/testutil/loopback"
	"github.com/danmuck/deckctl/internal/testutil/testlog"
)

const testSerial = "LDL-0001"

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ConnectTimeout = 2 * time.Second
	cfg.CommandTimeout = 2 * time.Second
	return cfg
}

// startDevice drives the far end of the loopback pair: decode frames from the
// engine and answer them through handle. A nil reply swallows the frame.
func startDevice(ep *loopback.Endpoint, handle func(frame.Frame) *frame.Frame) {
	go func() {
		dec := frame.NewDecoder(frame.DefaultLimits())
		buf := make([]byte, 4096)
		for {
			n, err := ep.Read(buf)
			if n > 0 {
				frames, _ := dec.Feed(buf[:n])
				for _, f := range frames {
					reply := handle(f)
					if reply == nil {
						continue
					}
					raw, encErr := frame.EncodeFrame(*reply, frame.DefaultLimits())
					if encErr != nil {
						return
					}
					if _, err := ep.Write(raw); err != nil {
						return
					}
				}
			}
			if err != nil {
				return
			}
		}
	}()
}

// probeHandler answers the liveness probe so Open can succeed.
func probeHandler(f frame.Frame) *frame.Frame {
	if f.Type == protocol.MsgGetSerial {
		return &frame.Frame{Type: f.Type, Ticket: f.Ticket, Payload: []byte(testSerial)}
	}
	return nil
}

func sendToEngine(t *testing.T, ep *loopback.Endpoint, f frame.Frame) {
	t.Helper()
	raw, err := frame.EncodeFrame(f, frame.DefaultLimits())
	require.NoError(t, err)
	_, err = ep.Write(raw)
	require.NoError(t, err)
}

func TestOpenProbesDevice(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	startDevice(dev, probeHandler)

	d, err := Open(host, testConfig())
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, StateReady, d.State())

	serial, err := d.SerialNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, testSerial, serial)
}

func TestCommandReplyCorrelation(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	startDevice(dev, func(f frame.Frame) *frame.Frame {
		if f.Type != protocol.MsgGetSerial {
			return nil
		}
		if len(f.Payload) == 1 && f.Payload[0] == 0x01 {
			return &frame.Frame{Type: f.Type, Ticket: f.Ticket, Payload: []byte{0x00}}
		}
		return probeHandler(f)
	})

	d, err := Open(host, testConfig())
	require.NoError(t, err)
	defer d.Close()

	reply, err := d.SendCommand(context.Background(), protocol.MsgGetSerial, []byte{0x01})
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, reply)
}

func TestRequestTimeoutFreesTicket(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	startDevice(dev, func(f frame.Frame) *frame.Frame {
		if f.Type == protocol.MsgReset {
			return nil // swallow
		}
		return probeHandler(f)
	})

	cfg := testConfig()
	cfg.CommandTimeout = 100 * time.Millisecond
	d, err := Open(host, cfg)
	require.NoError(t, err)
	defer d.Close()

	_, err = d.SendCommand(context.Background(), protocol.MsgReset, nil)
	require.ErrorIs(t, err, ErrRequestTimeout)

	// Engine still serviceable after the timeout.
	serial, err := d.SerialNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, testSerial, serial)
}

func TestSendCommandRejectsUncorrelatedType(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	startDevice(dev, probeHandler)

	d, err := Open(host, testConfig())
	require.NoError(t, err)
	defer d.Close()

	_, err = d.SendCommand(context.Background(), protocol.MsgWriteChunk, nil)
	require.ErrorIs(t, err, protocol.ErrNotCorrelated)
}

func TestEventDispatch(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	startDevice(dev, probeHandler)

	d, err := Open(host, testConfig())
	require.NoError(t, err)
	defer d.Close()

	events := make(chan protocol.InputEvent, 8)
	d.OnEvent(func(ev protocol.InputEvent) { events <- ev })

	sendToEngine(t, dev, frame.Frame{
		Type:    protocol.MsgTouch,
		Payload: []byte{0x01, 0x2C, 0x00, 0x87, 0x05}, // x=300 y=135 id=5
	})
	sendToEngine(t, dev, frame.Frame{
		Type:    protocol.MsgButtonPress,
		Payload: []byte{byte(protocol.Circle), 0x00},
	})

	ev := <-events
	touch, ok := ev.(protocol.TouchEvent)
	require.True(t, ok, "expected TouchEvent, got %T", ev)
	require.Equal(t, protocol.TouchStart, touch.Phase)
	require.Equal(t, uint16(300), touch.X)
	require.Equal(t, uint16(135), touch.Y)
	require.Equal(t, byte(5), touch.ID)

	ev = <-events
	button, ok := ev.(protocol.ButtonEvent)
	require.True(t, ok, "expected ButtonEvent, got %T", ev)
	require.Equal(t, protocol.Circle, button.Button)
	require.True(t, button.Pressed)
}

func TestUnmatchedReplyIsNonFatal(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	startDevice(dev, probeHandler)

	d, err := Open(host, testConfig())
	require.NoError(t, err)
	defer d.Close()

	// Reply frame for a ticket nobody is waiting on.
	sendToEngine(t, dev, frame.Frame{
		Type:    protocol.MsgGetVersion,
		Ticket:  0xC3,
		Payload: []byte{1, 2, 3},
	})

	serial, err := d.SerialNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, testSerial, serial)
}

func TestDisconnectFailsAllPending(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	startDevice(dev, func(f frame.Frame) *frame.Frame {
		if f.Type == protocol.MsgReset {
			return nil // leave pending
		}
		return probeHandler(f)
	})

	d, err := Open(host, testConfig())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := d.SendCommand(ctx, protocol.MsgReset, nil)
			errs <- err
		}()
	}

	time.Sleep(100 * time.Millisecond) // let both commands register
	dev.Close()
	wg.Wait()
	close(errs)

	for err := range errs {
		require.ErrorIs(t, err, ErrClosed)
	}
	require.Eventually(t, func() bool {
		return d.State() == StateDisconnected
	}, time.Second, 10*time.Millisecond)
}

func TestCloseWakesSuspendedCallers(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	startDevice(dev, func(f frame.Frame) *frame.Frame {
		if f.Type == protocol.MsgReset {
			return nil
		}
		return probeHandler(f)
	})

	d, err := Open(host, testConfig())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := d.SendCommand(ctx, protocol.MsgReset, nil)
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, d.Close())
	require.ErrorIs(t, <-done, ErrClosed)

	_, err = d.SendCommand(context.Background(), protocol.MsgGetSerial, nil)
	require.ErrorIs(t, err, ErrClosed)
}

func TestSendDisplayUpdateChunksArrive(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()

	type upload struct {
		chunks int
		commit frame.Frame
	}
	uploads := make(chan upload, 1)
	var chunks int
	startDevice(dev, func(f frame.Frame) *frame.Frame {
		switch f.Type {
		case protocol.MsgWriteChunk:
			chunks++
		case protocol.MsgCommit:
			uploads <- upload{chunks: chunks, commit: f}
		}
		return probeHandler(f)
	})

	d, err := Open(host, testConfig())
	require.NoError(t, err)
	defer d.Close()

	target, err := display.Tile(0)
	require.NoError(t, err)
	buf := display.NewPixelBuffer(target.Width, target.Height)
	require.NoError(t, d.SendDisplayUpdate(target, buf))

	select {
	case got := <-uploads:
		wantChunks := (target.Width*target.Height*2 + display.MaxChunkData - 1) / display.MaxChunkData
		require.Equal(t, wantChunks, got.chunks)
		require.Equal(t, []byte{target.ID}, got.commit.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("commit frame never arrived")
	}
}

func TestSendDisplayUpdateDimensionMismatch(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	startDevice(dev, probeHandler)

	d, err := Open(host, testConfig())
	require.NoError(t, err)
	defer d.Close()

	err = d.SendDisplayUpdate(display.Center, display.NewPixelBuffer(5, 5))
	require.ErrorIs(t, err, display.ErrDimensionMismatch)
}

// startCapturingDevice acknowledges every correlated command with an empty
// reply and records frames of the given type for inspection.
func startCapturingDevice(dev *loopback.Endpoint, capture protocol.MessageType, sent chan<- frame.Frame) {
	startDevice(dev, func(f frame.Frame) *frame.Frame {
		if f.Type == capture {
			sent <- f
			return &frame.Frame{Type: f.Type, Ticket: f.Ticket}
		}
		return probeHandler(f)
	})
}

func TestSetBrightnessClampsToDeviceRange(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	sent := make(chan frame.Frame, 8)
	startCapturingDevice(dev, protocol.MsgSetBrightness, sent)

	d, err := Open(host, testConfig())
	require.NoError(t, err)
	defer d.Close()

	cases := []struct {
		percent int
		want    byte
	}{
		{150, 0x0A},
		{100, 0x0A},
		{70, 0x07},
		{0, 0x00},
		{-5, 0x00},
	}
	for _, tc := range cases {
		require.NoError(t, d.SetBrightness(context.Background(), tc.percent))
		f := <-sent
		require.Equal(t, []byte{tc.want}, f.Payload, "percent %d", tc.percent)
	}
}

func TestVibrateRejectsUnknownPattern(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	sent := make(chan frame.Frame, 1)
	startCapturingDevice(dev, protocol.MsgSetVibration, sent)

	d, err := Open(host, testConfig())
	require.NoError(t, err)
	defer d.Close()

	err = d.Vibrate(context.Background(), protocol.HapticPattern(0x7F))
	require.ErrorIs(t, err, protocol.ErrUnknownHaptic)
	select {
	case f := <-sent:
		t.Fatalf("rejected pattern reached the wire: %+v", f)
	default:
	}

	require.NoError(t, d.Vibrate(context.Background(), protocol.HapticShort))
	f := <-sent
	require.Equal(t, []byte{byte(protocol.HapticShort)}, f.Payload)
}

func TestSetButtonColorValidatesButton(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	sent := make(chan frame.Frame, 1)
	startCapturingDevice(dev, protocol.MsgSetButtonColor, sent)

	d, err := Open(host, testConfig())
	require.NoError(t, err)
	defer d.Close()

	err = d.SetButtonColor(context.Background(), protocol.Button(0xEE), 1, 2, 3)
	require.ErrorIs(t, err, protocol.ErrUnknownButton)
	select {
	case f := <-sent:
		t.Fatalf("rejected button reached the wire: %+v", f)
	default:
	}

	require.NoError(t, d.SetButtonColor(context.Background(), protocol.KnobTL, 0x10, 0x20, 0x30))
	f := <-sent
	require.Equal(t, []byte{byte(protocol.KnobTL), 0x10, 0x20, 0x30}, f.Payload)
}

func TestFirmwareVersionFormatsReply(t *testing.T) {
	testlog.Start(t)
	host, dev := loopback.Pair()
	replies := make(chan []byte, 2)
	startDevice(dev, func(f frame.Frame) *frame.Frame {
		if f.Type == protocol.MsgGetVersion {
			return &frame.Frame{Type: f.Type, Ticket: f.Ticket, Payload: <-replies}
		}
		return probeHandler(f)
	})

	d, err := Open(host, testConfig())
	require.NoError(t, err)
	defer d.Close()

	replies <- []byte{1, 4, 2}
	version, err := d.FirmwareVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.4.2", version)

	replies <- []byte{9}
	_, err = d.FirmwareVersion(context.Background())
	require.ErrorIs(t, err, protocol.ErrInvalidPayload)
}

func TestNextBackoffDelayNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       false,
	}
	require.Equal(t, 250*time.Millisecond, NextBackoffDelay(cfg, 1, nil))
	require.Equal(t, 500*time.Millisecond, NextBackoffDelay(cfg, 2, nil))
	require.Equal(t, time.Second, NextBackoffDelay(cfg, 3, nil))
	require.Equal(t, 5*time.Second, NextBackoffDelay(cfg, 6, nil))
}
