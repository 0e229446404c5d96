package domain

import "testing"

func TestKeyNormalized(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "grouped key",
			raw:  "ABCDE-FGHJK-MNPQR-TUVWX-Y2346",
			want: "ABCDEFGHJKMNPQRTUVWXY2346",
		},
		{
			name: "lowercase with spaces",
			raw:  " abcde fghjk mnpqr tuvwx y2346 ",
			want: "ABCDEFGHJKMNPQRTUVWXY2346",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewKey(tt.raw, "").Normalized()
			if got != tt.want {
				t.Errorf("Normalized() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyFormatted(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "already grouped",
			raw:  "ABCDE-FGHJK-MNPQR-TUVWX-Y2346",
			want: "ABCDE-FGHJK-MNPQR-TUVWX-Y2346",
		},
		{
			name: "compact",
			raw:  "abcdefghjkmnpqrtuvwxy2346",
			want: "ABCDE-FGHJK-MNPQR-TUVWX-Y2346",
		},
		{
			name: "wrong length returned as entered",
			raw:  "XXXXX",
			want: "XXXXX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewKey(tt.raw, "").Formatted()
			if got != tt.want {
				t.Errorf("Formatted() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyIsValidFormat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{
			name: "valid grouped key",
			raw:  "ABCDE-FGHJK-MNPQR-TUVWX-Y2346",
			want: true,
		},
		{
			name: "too short",
			raw:  "XXXXX",
			want: false,
		},
		{
			name: "character outside alphabet",
			raw:  "ABCDE-FGHJK-MNPQR-TUVWX-Y234O",
			want: false,
		},
		{
			name: "digit outside alphabet",
			raw:  "ABCDE-FGHJK-MNPQR-TUVWX-Y2345",
			want: false,
		},
		{
			name: "empty",
			raw:  "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewKey(tt.raw, "").IsValidFormat()
			if got != tt.want {
				t.Errorf("IsValidFormat(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
