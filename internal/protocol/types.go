package protocol

const (
	StartMarker byte = '#'
	EndMarker   byte = '*'
	OpenArgs    byte = '('
	CloseArgs   byte = ')'
	QueryFlag   byte = '?'
	Quote       byte = '"'
)

// LineTerminator follows every response written back to the host.
const LineTerminator = "\r\n"

// Opcode selects one peripheral operation. Opcodes are case sensitive.
type Opcode byte

func (op Opcode) String() string {
	return string(rune(op))
}

const (
	OpPing          Opcode = '?'
	OpPixel         Opcode = '0'
	OpLine          Opcode = '1'
	OpFastVLine     Opcode = '2'
	OpFastHLine     Opcode = '3'
	OpRect          Opcode = '4'
	OpCircle        Opcode = '5'
	OpTriangle      Opcode = '6'
	OpRoundRect     Opcode = '7'
	OpFillRect      Opcode = '8'
	OpFillCircle    Opcode = '9'
	OpFillTriangle  Opcode = 'A'
	OpFillRoundRect Opcode = 'B'
	OpPrint         Opcode = 'C'
	OpTextSize      Opcode = 'D'
	OpCursor        Opcode = 'E'
	OpTextWrap      Opcode = 'F'
	OpRotation      Opcode = 'G'
	OpImage         Opcode = 'H'
	OpSelectMode    Opcode = 'I'
	OpModeQuery     Opcode = 'J'
	OpClear         Opcode = 'K'
	OpRefresh       Opcode = 'L'
	OpPartial       Opcode = 'M'
	OpTemperature   Opcode = 'N'
	OpTouchpad      Opcode = 'O'
	OpBattery       Opcode = 'P'
	OpPower         Opcode = 'Q'
	OpPanelState    Opcode = 'R'
	OpImageAlias    Opcode = 'S'
	OpThickLine     Opcode = 'T'
	OpEllipse       Opcode = 'U'
	OpFillEllipse   Opcode = 'V'
)

// Frame is one extracted `#...*` message: the opcode and the raw bytes that followed it.
type Frame struct {
	Opcode Opcode
	Args   []byte
}

// OpcodeName returns a stable lowercase label, used for logs and metric labels.
func OpcodeName(op Opcode) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "unknown"
}

var opcodeNames = map[Opcode]string{
	OpPing:          "ping",
	OpPixel:         "pixel",
	OpLine:          "line",
	OpFastVLine:     "vline",
	OpFastHLine:     "hline",
	OpRect:          "rect",
	OpCircle:        "circle",
	OpTriangle:      "triangle",
	OpRoundRect:     "round_rect",
	OpFillRect:      "fill_rect",
	OpFillCircle:    "fill_circle",
	OpFillTriangle:  "fill_triangle",
	OpFillRoundRect: "fill_round_rect",
	OpPrint:         "print",
	OpTextSize:      "text_size",
	OpCursor:        "cursor",
	OpTextWrap:      "text_wrap",
	OpRotation:      "rotation",
	OpImage:         "image",
	OpSelectMode:    "select_mode",
	OpModeQuery:     "mode",
	OpClear:         "clear",
	OpRefresh:       "refresh",
	OpPartial:       "partial",
	OpTemperature:   "temperature",
	OpTouchpad:      "touchpad",
	OpBattery:       "battery",
	OpPower:         "power",
	OpPanelState:    "panel_state",
	OpImageAlias:    "image_alias",
	OpThickLine:     "thick_line",
	OpEllipse:       "ellipse",
	OpFillEllipse:   "fill_ellipse",
}
