package relay

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/danmuck/inkrelay/internal/protocol"
	"github.com/danmuck/inkrelay/internal/surface"
	"github.com/danmuck/inkrelay/internal/surface/recorder"
	"github.com/danmuck/inkrelay/internal/testutil/testlog"
)

type byteFeed struct {
	data []byte
}

func (f *byteFeed) TryReadByte() (byte, bool) {
	if len(f.data) == 0 {
		return 0, false
	}
	b := f.data[0]
	f.data = f.data[1:]
	return b, true
}

func (f *byteFeed) push(s string) { f.data = append(f.data, s...) }

type harness struct {
	feed    *byteFeed
	out     *bytes.Buffer
	surface *recorder.Surface
	store   *recorder.Store
	session *Session
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		feed: &byteFeed{},
		out:  &bytes.Buffer{},
		surface: recorder.New(surface.Readings{
			Temperature:    23,
			Touchpads:      [3]int{0, 1, 0},
			BatteryVoltage: 3.7,
			PanelState:     1,
		}),
		store: &recorder.Store{Ready: true, Result: 1},
	}
	s, err := NewSession(DefaultConfig(), h.feed, h.out, NewDispatcher(h.surface, h.store), opts...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	h.session = s
	return h
}

// send pushes input and steps until the session goes idle, returning the outcomes of
// every consumed frame.
func (h *harness) send(t *testing.T, input string) []Outcome {
	t.Helper()
	h.feed.push(input)
	var frames []Outcome
	for i := 0; i < len(input)+8; i++ {
		outcome, err := h.session.Step()
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		switch outcome {
		case OutcomeIdle:
			return frames
		case OutcomePending:
		default:
			frames = append(frames, outcome)
		}
	}
	t.Fatalf("session did not go idle")
	return nil
}

func TestPixelFrameDrawsWithoutResponse(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	got := h.send(t, "#0(5,5,1)*")
	if !reflect.DeepEqual(got, []Outcome{OutcomeDispatched}) {
		t.Fatalf("unexpected outcomes: %v", got)
	}
	calls := h.surface.Calls()
	if len(calls) != 1 || calls[0].Name != "DrawPixel" || !reflect.DeepEqual(calls[0].Args, []int{5, 5, 1}) {
		t.Fatalf("unexpected calls:\n%s", h.surface.Summary())
	}
	if h.out.Len() != 0 {
		t.Fatalf("pixel must not respond, got %q", h.out.String())
	}
}

func TestNoiseAroundFrameIsIgnored(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.send(t, "garbage\r\n#0(5,5,1)*tail")
	if n := len(h.surface.Calls()); n != 1 {
		t.Fatalf("expected one call, got %d:\n%s", n, h.surface.Summary())
	}
}

func TestBatteryQueryRespondsWithoutMutation(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	got := h.send(t, "#P?*")
	if !reflect.DeepEqual(got, []Outcome{OutcomeResponded}) {
		t.Fatalf("unexpected outcomes: %v", got)
	}
	if h.out.String() != "#P(3.7)*\r\n" {
		t.Fatalf("unexpected response: %q", h.out.String())
	}
	if m := h.surface.Mutations(); len(m) != 0 {
		t.Fatalf("query mutated surface: %+v", m)
	}
}

func TestQueriesRequireQueryFlag(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.send(t, "#N?*#R?*#N(x)*")
	if h.out.String() != "#N(23)*\r\n#R(1)*\r\n" {
		t.Fatalf("unexpected responses: %q", h.out.String())
	}
}

func TestPingRespondsOK(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.send(t, "#?*")
	if h.out.String() != "OK\r\n" {
		t.Fatalf("unexpected ping response: %q", h.out.String())
	}
}

func TestUnknownOpcodeIsIgnored(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	got := h.send(t, "#Z?*")
	if !reflect.DeepEqual(got, []Outcome{OutcomeIgnored}) {
		t.Fatalf("unexpected outcomes: %v", got)
	}
	if len(h.surface.Calls()) != 0 || h.out.Len() != 0 {
		t.Fatalf("unknown opcode had effects: calls=%d out=%q", len(h.surface.Calls()), h.out.String())
	}
	if h.session.Stats().Ignored != 1 {
		t.Fatalf("unexpected stats: %+v", h.session.Stats())
	}
}

func TestMismatchedArgumentsAreDropped(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	got := h.send(t, "#0(5,5)*#C(41)*")
	if !reflect.DeepEqual(got, []Outcome{OutcomeDropped, OutcomeDropped}) {
		t.Fatalf("unexpected outcomes: %v", got)
	}
	if len(h.surface.Calls()) != 0 {
		t.Fatalf("dropped frame reached surface:\n%s", h.surface.Summary())
	}
}

func TestDegenerateFrameIsConsumed(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	got := h.send(t, "#*#K1*")
	if !reflect.DeepEqual(got, []Outcome{OutcomeDegenerate, OutcomeDispatched}) {
		t.Fatalf("unexpected outcomes: %v", got)
	}
	calls := h.surface.Calls()
	if len(calls) != 1 || calls[0].Name != "Clear" {
		t.Fatalf("unexpected calls:\n%s", h.surface.Summary())
	}
}

func TestRotationIsMaskedToQuarterTurns(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.send(t, "#G(7)*#G(-1)*#G(2)*")
	var got []int
	for _, c := range h.surface.Calls() {
		got = append(got, c.Args[0])
	}
	if !reflect.DeepEqual(got, []int{3, 3, 2}) {
		t.Fatalf("unexpected rotations: %v", got)
	}
}

func TestFlagOpcodes(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.send(t, "#K1*#K0*#L1*#FT*#FF*#Fx*#Q(1)*#Q(2)*#M*#M(0,0,0)*")
	want := "Clear()\nRefresh()\nSetTextWrap(1)\nSetTextWrap(0)\nPowerOn()\nPowerOff()\nRefreshPartial()\nRefreshPartial()\n"
	if got := h.surface.Summary(); got != want {
		t.Fatalf("unexpected calls:\n%s", got)
	}
}

func TestSelectModeAndQuery(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.send(t, "#I(1)*#I(5)*#J?*")
	if h.out.String() != "#J(1)*\r\n" {
		t.Fatalf("unexpected mode response: %q", h.out.String())
	}
	selects := 0
	for _, c := range h.surface.Mutations() {
		if c.Name == "SelectMode" {
			selects++
		}
	}
	if selects != 1 {
		t.Fatalf("out of range mode must be ignored:\n%s", h.surface.Summary())
	}
}

func TestPrintDecodesHexText(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.send(t, `#E(10,20)*#D(2)*#C("48656C6C6F")*`)
	want := "SetCursor(10,20)\nSetTextSize(2)\nPrint(\"Hello\")\n"
	if got := h.surface.Summary(); got != want {
		t.Fatalf("unexpected calls:\n%s", got)
	}
}

func TestTouchpadChannelGate(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.send(t, "#O(1)*#O(3)*#O(-1)*")
	if h.out.String() != "#O(1)*\r\n" {
		t.Fatalf("unexpected touchpad responses: %q", h.out.String())
	}
}

func TestImageStoreUnavailable(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.store.Ready = false
	h.send(t, `#H(0,0,"612E626D70")*`)
	if h.out.String() != "#H(-1)*\r\n" {
		t.Fatalf("unexpected response: %q", h.out.String())
	}
	if len(h.store.Drawn) != 0 {
		t.Fatalf("image drawn without store: %+v", h.store.Drawn)
	}
}

func TestImageAndAliasRespondUnderImageOpcode(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.send(t, `#H(10,20,"612E626D70")*#S(0,0,"622E706E67")*`)
	if h.out.String() != "#H(1)*\r\n#H(1)*\r\n" {
		t.Fatalf("unexpected responses: %q", h.out.String())
	}
	if len(h.store.Drawn) != 2 {
		t.Fatalf("expected two draws, got %+v", h.store.Drawn)
	}
	first := h.store.Drawn[0]
	if string(first.Text) != "a.bmp" || !reflect.DeepEqual(first.Args, []int{10, 20}) {
		t.Fatalf("unexpected draw: %+v", first)
	}
	if string(h.store.Drawn[1].Text) != "b.png" {
		t.Fatalf("unexpected alias draw: %+v", h.store.Drawn[1])
	}
}

func TestNilStoreAnswersUnavailable(t *testing.T) {
	testlog.Start(t)
	d := NewDispatcher(recorder.New(surface.Readings{}), nil)
	resp, ok := d.Dispatch(commandFor(t, protocol.OpImage, `(0,0,"61")`))
	if !ok || resp.Value.Int != StoreUnavailable || resp.Opcode != protocol.OpImage {
		t.Fatalf("unexpected response: %+v ok=%v", resp, ok)
	}
}

type failingWriter struct{}

var errWire = errors.New("wire down")

func (failingWriter) Write([]byte) (int, error) { return 0, errWire }

func TestWriteFailureIsReported(t *testing.T) {
	testlog.Start(t)
	feed := &byteFeed{}
	feed.push("#P?*")
	s, err := NewSession(DefaultConfig(), feed, failingWriter{}, NewDispatcher(recorder.New(surface.Readings{}), nil))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	var last error
	for i := 0; i < 4; i++ {
		_, last = s.Step()
	}
	if !errors.Is(last, errWire) {
		t.Fatalf("expected wrapped write error, got %v", last)
	}
	if s.Stats().WriteFails != 1 {
		t.Fatalf("unexpected stats: %+v", s.Stats())
	}
}

type traceLog struct {
	events []Event
}

func (l *traceLog) Trace(ev Event) {
	ev.Args = append([]byte(nil), ev.Args...)
	ev.Response = append([]byte(nil), ev.Response...)
	l.events = append(l.events, ev)
}

func TestTracerSeesEveryConsumedFrame(t *testing.T) {
	testlog.Start(t)
	tl := &traceLog{}
	h := newHarness(t, WithTracer(tl))
	h.send(t, "#P?*#Z*#0(1)*")
	if len(tl.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(tl.events))
	}
	if tl.events[0].Outcome != OutcomeResponded || string(tl.events[0].Response) != "#P(3.7)*\r\n" {
		t.Fatalf("unexpected first event: %+v", tl.events[0])
	}
	if tl.events[1].Outcome != OutcomeIgnored || tl.events[2].Outcome != OutcomeDropped {
		t.Fatalf("unexpected events: %+v", tl.events)
	}
	if string(tl.events[2].Args) != "(1)" {
		t.Fatalf("unexpected args: %q", tl.events[2].Args)
	}
}

func TestBootClearsAndRefreshes(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.session.Boot()
	if got := h.surface.Summary(); got != "Clear()\nRefresh()\n" {
		t.Fatalf("unexpected boot calls:\n%s", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	testlog.Start(t)
	h := newHarness(t)
	h.feed.push("#0(1,2,3)*")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := h.session.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	stats := h.session.Stats()
	if stats.Bytes != 10 || stats.Dispatched != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestNewSessionRejectsNilSource(t *testing.T) {
	testlog.Start(t)
	if _, err := NewSession(DefaultConfig(), nil, nil, nil); !errors.Is(err, ErrNilSource) {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
}
