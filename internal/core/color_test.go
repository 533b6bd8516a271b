package core

import (
	"errors"
	"testing"
)

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in  string
		out Color
		ok  bool
	}{
		{"#0000FF", Color{0, 0, 255}, true},
		{"0000ff", Color{0, 0, 255}, true},
		{" #ff8800 ", Color{255, 136, 0}, true},
		{"#808080", Color{128, 128, 128}, true},
		{"#12345", Color{}, false},
		{"#GGGGGG", Color{}, false},
		{"", Color{}, false},
	}
	for _, tc := range cases {
		got, err := ParseHexColor(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %+v, got %+v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if !errors.Is(err, ErrInvalidColor) {
			t.Fatalf("%q expected ErrInvalidColor, got %v", tc.in, err)
		}
	}
}

func TestNormalizeHex(t *testing.T) {
	got, err := NormalizeHex("ff8800")
	if err != nil || got != "#FF8800" {
		t.Fatalf("expected #FF8800, got %q (err=%v)", got, err)
	}
}

func TestEmojiColor(t *testing.T) {
	c := EmojiIntensity{ColorHex: "#FF0000", Opacity: 2}.Color()
	if c.R != 255 || c.A != 1 {
		t.Fatalf("unexpected rgba %+v", c)
	}
	fallback := EmojiIntensity{ColorHex: "nope", Opacity: 0.5}.Color()
	if fallback.B != 255 || fallback.A != 0.5 {
		t.Fatalf("expected blue fallback, got %+v", fallback)
	}
}
