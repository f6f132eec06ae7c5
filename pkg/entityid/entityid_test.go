package entityid

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "grv123", want: 123},
		{in: "GRV123", want: 123},
		{in: "123", want: 123},
		{in: "grv0", want: 0},
		{in: " grv123", wantErr: true},
		{in: "grv123 ", wantErr: true},
		{in: "", wantErr: true},
		{in: "grv", wantErr: true},
		{in: "grv12a", wantErr: true},
		{in: "syn123", wantErr: true},
		{in: "grv-5", wantErr: true},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrIDInvalid) {
				t.Fatalf("Parse(%q): expected ErrIDInvalid, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(42); got != "grv42" {
		t.Fatalf("Format(42) = %q", got)
	}
}

func TestEquals(t *testing.T) {
	if !Equals("grv7", "7") {
		t.Fatalf("expected grv7 == 7")
	}
	if !Equals("GRV7", "grv7") {
		t.Fatalf("expected case-insensitive match")
	}
	if Equals("grv7", "grv8") {
		t.Fatalf("expected mismatch")
	}
	if Equals("bogus", "grv7") {
		t.Fatalf("expected invalid id to never match")
	}
}
