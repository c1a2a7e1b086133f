package keymap

// Linux input event codes (linux/input-event-codes.h)
const (
	KEY_ESC        uint32 = 1
	KEY_1          uint32 = 2
	KEY_2          uint32 = 3
	KEY_3          uint32 = 4
	KEY_4          uint32 = 5
	KEY_5          uint32 = 6
	KEY_6          uint32 = 7
	KEY_7          uint32 = 8
	KEY_8          uint32 = 9
	KEY_9          uint32 = 10
	KEY_0          uint32 = 11
	KEY_MINUS      uint32 = 12 // - and _
	KEY_EQUAL      uint32 = 13 // = and +
	KEY_BACKSPACE  uint32 = 14
	KEY_TAB        uint32 = 15
	KEY_Q          uint32 = 16
	KEY_W          uint32 = 17
	KEY_E          uint32 = 18
	KEY_R          uint32 = 19
	KEY_T          uint32 = 20
	KEY_Y          uint32 = 21
	KEY_U          uint32 = 22
	KEY_I          uint32 = 23
	KEY_O          uint32 = 24
	KEY_P          uint32 = 25
	KEY_LEFTBRACE  uint32 = 26 // [ and {
	KEY_RIGHTBRACE uint32 = 27 // ] and }
	KEY_ENTER      uint32 = 28
	KEY_LEFTCTRL   uint32 = 29
	KEY_A          uint32 = 30
	KEY_S          uint32 = 31
	KEY_D          uint32 = 32
	KEY_F          uint32 = 33
	KEY_G          uint32 = 34
	KEY_H          uint32 = 35
	KEY_J          uint32 = 36
	KEY_K          uint32 = 37
	KEY_L          uint32 = 38
	KEY_SEMICOLON  uint32 = 39 // ; and :
	KEY_APOSTROPHE uint32 = 40 // ' and "
	KEY_GRAVE      uint32 = 41 // ` and ~
	KEY_LEFTSHIFT  uint32 = 42
	KEY_BACKSLASH  uint32 = 43 // \ and |
	KEY_Z          uint32 = 44
	KEY_X          uint32 = 45
	KEY_C          uint32 = 46
	KEY_V          uint32 = 47
	KEY_B          uint32 = 48
	KEY_N          uint32 = 49
	KEY_M          uint32 = 50
	KEY_COMMA      uint32 = 51 // , and <
	KEY_DOT        uint32 = 52 // . and >
	KEY_SLASH      uint32 = 53 // / and ?
	KEY_LEFTALT    uint32 = 56
	KEY_SPACE      uint32 = 57
	KEY_F1         uint32 = 59
	KEY_F2         uint32 = 60
	KEY_F3         uint32 = 61
	KEY_F4         uint32 = 62
	KEY_F5         uint32 = 63
	KEY_F6         uint32 = 64
	KEY_F7         uint32 = 65
	KEY_F8         uint32 = 66
	KEY_F9         uint32 = 67
	KEY_F10        uint32 = 68
	KEY_F11        uint32 = 87
	KEY_F12        uint32 = 88
	KEY_HOME       uint32 = 102
	KEY_UP         uint32 = 103
	KEY_PAGEUP     uint32 = 104
	KEY_LEFT       uint32 = 105
	KEY_RIGHT      uint32 = 106
	KEY_END        uint32 = 107
	KEY_DOWN       uint32 = 108
	KEY_PAGEDOWN   uint32 = 109
	KEY_INSERT     uint32 = 110
	KEY_DELETE     uint32 = 111
	KEY_LEFTMETA   uint32 = 125
)

var letterCodes = [26]uint32{
	KEY_A, KEY_B, KEY_C, KEY_D, KEY_E, KEY_F, KEY_G, KEY_H, KEY_I,
	KEY_J, KEY_K, KEY_L, KEY_M, KEY_N, KEY_O, KEY_P, KEY_Q, KEY_R,
	KEY_S, KEY_T, KEY_U, KEY_V, KEY_W, KEY_X, KEY_Y, KEY_Z,
}

// US layout punctuation
var punctuation = map[rune]KeyInfo{
	'-':  {Code: KEY_MINUS},
	'=':  {Code: KEY_EQUAL},
	'[':  {Code: KEY_LEFTBRACE},
	']':  {Code: KEY_RIGHTBRACE},
	'\\': {Code: KEY_BACKSLASH},
	';':  {Code: KEY_SEMICOLON},
	'\'': {Code: KEY_APOSTROPHE},
	'`':  {Code: KEY_GRAVE},
	',':  {Code: KEY_COMMA},
	'.':  {Code: KEY_DOT},
	'/':  {Code: KEY_SLASH},

	'!': {Code: KEY_1, Shift: true},
	'@': {Code: KEY_2, Shift: true},
	'#': {Code: KEY_3, Shift: true},
	'$': {Code: KEY_4, Shift: true},
	'%': {Code: KEY_5, Shift: true},
	'^': {Code: KEY_6, Shift: true},
	'&': {Code: KEY_7, Shift: true},
	'*': {Code: KEY_8, Shift: true},
	'(': {Code: KEY_9, Shift: true},
	')': {Code: KEY_0, Shift: true},
	'_': {Code: KEY_MINUS, Shift: true},
	'+': {Code: KEY_EQUAL, Shift: true},
	'{': {Code: KEY_LEFTBRACE, Shift: true},
	'}': {Code: KEY_RIGHTBRACE, Shift: true},
	'|': {Code: KEY_BACKSLASH, Shift: true},
	':': {Code: KEY_SEMICOLON, Shift: true},
	'"': {Code: KEY_APOSTROPHE, Shift: true},
	'~': {Code: KEY_GRAVE, Shift: true},
	'<': {Code: KEY_COMMA, Shift: true},
	'>': {Code: KEY_DOT, Shift: true},
	'?': {Code: KEY_SLASH, Shift: true},
}

var modifierNames = map[string]uint32{
	"ctrl":    KEY_LEFTCTRL,
	"control": KEY_LEFTCTRL,
	"shift":   KEY_LEFTSHIFT,
	"alt":     KEY_LEFTALT,
	"super":   KEY_LEFTMETA,
	"meta":    KEY_LEFTMETA,
}

var namedKeys = map[string]uint32{
	"enter":     KEY_ENTER,
	"return":    KEY_ENTER,
	"tab":       KEY_TAB,
	"space":     KEY_SPACE,
	"esc":       KEY_ESC,
	"escape":    KEY_ESC,
	"backspace": KEY_BACKSPACE,
	"delete":    KEY_DELETE,
	"del":       KEY_DELETE,
	"insert":    KEY_INSERT,
	"home":      KEY_HOME,
	"end":       KEY_END,
	"pageup":    KEY_PAGEUP,
	"pagedown":  KEY_PAGEDOWN,
	"up":        KEY_UP,
	"down":      KEY_DOWN,
	"left":      KEY_LEFT,
	"right":     KEY_RIGHT,
	"f1":        KEY_F1,
	"f2":        KEY_F2,
	"f3":        KEY_F3,
	"f4":        KEY_F4,
	"f5":        KEY_F5,
	"f6":        KEY_F6,
	"f7":        KEY_F7,
	"f8":        KEY_F8,
	"f9":        KEY_F9,
	"f10":       KEY_F10,
	"f11":       KEY_F11,
	"f12":       KEY_F12,
}
