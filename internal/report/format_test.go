package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/vitals/internal/source"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name  string
		nanos float64
		want  string
	}{
		{name: "sub-microsecond stays ns", nanos: 999, want: "999.0 ns"},
		{name: "microsecond boundary", nanos: 1000, want: "1.0 us"},
		{name: "millisecond", nanos: 1_500_000, want: "1.5 ms"},
		{name: "second", nanos: 2_000_000_000, want: "2.0 s"},
		{name: "just below a minute stays seconds", nanos: 59_000_000_000, want: "59.0 s"},
		{name: "minute", nanos: 61_000_000_000, want: "1.0 m"},
		{name: "ninety seconds", nanos: 90_000_000_000, want: "1.5 m"},
		{name: "hour", nanos: 2 * 3600 * 1e9, want: "2.0 h"},
		{name: "day", nanos: 48 * 3600 * 1e9, want: "2.0 d"},
		{name: "zero", nanos: 0, want: "0.0 ns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.nanos))
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want string
	}{
		{name: "zero", v: 0, want: "0 bytes"},
		{name: "below a kilobyte", v: 1023, want: "1023 bytes"},
		{name: "kilobyte boundary", v: 1024, want: "1 kB"},
		{name: "truncated kilobytes", v: 2047, want: "1 kB"},
		{name: "megabyte boundary", v: 1024 * 1024, want: "1 MB"},
		{name: "gigabytes stay MB", v: 3 * 1024 * 1024 * 1024, want: "3072 MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.v))
		})
	}
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, " 12.34 %", FormatPercentage(0.1234))
	assert.Equal(t, "100.00 %", FormatPercentage(1))
	assert.Equal(t, "  0.00 %", FormatPercentage(0))
	assert.Len(t, FormatPercentage(0.5), 8, "width is fixed for values up to 100%")
}

func TestTopFrame(t *testing.T) {
	_, ok := TopFrame(nil)
	assert.False(t, ok)

	key, ok := TopFrame([]source.Frame{
		{Type: "java.util.HashMap", Method: "put", Descriptor: "(II)V"},
		{Type: "Lower", Method: "frame", Descriptor: "()V"},
	})
	require.True(t, ok)
	assert.Equal(t, "HashMap.put(int, int)", key, "only the top frame contributes")
}

func TestFormatFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame source.Frame
		want  string
	}{
		{
			name:  "plain function name renders verbatim",
			frame: source.Frame{Function: "runtime.mallocgc"},
			want:  "runtime.mallocgc",
		},
		{
			name:  "type is shortened to last segment",
			frame: source.Frame{Type: "java.lang.String", Method: "valueOf", Descriptor: "(I)Ljava/lang/String;"},
			want:  "String.valueOf(int)",
		},
		{
			name:  "long parameter list elides",
			frame: source.Frame{Type: "A", Method: "m", Descriptor: "(Ljava/lang/String;Ljava/lang/Object;)V"},
			want:  "A.m(...)",
		},
		{
			name:  "no parameters",
			frame: source.Frame{Type: "Runner", Method: "run", Descriptor: "()V"},
			want:  "Runner.run()",
		},
		{
			name:  "array parameter",
			frame: source.Frame{Type: "Arrays", Method: "fill", Descriptor: "([B)V"},
			want:  "Arrays.fill(byte[])",
		},
		{
			name:  "malformed descriptor yields empty parameter list",
			frame: source.Frame{Type: "Broken", Method: "m", Descriptor: "no-parens"},
			want:  "Broken.m()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFrame(tt.frame))
		})
	}
}

func TestDecodeDescriptors(t *testing.T) {
	tests := []struct {
		name       string
		descriptor string
		want       []string
	}{
		{
			name:       "primitives",
			descriptor: "IJZDFSCB",
			want:       []string{"int", "long", "boolean", "double", "float", "short", "char", "byte"},
		},
		{
			name:       "object type",
			descriptor: "Ljava.lang.String;",
			want:       []string{"java.lang.String"},
		},
		{
			name:       "nested array",
			descriptor: "[[I",
			want:       []string{"int[][]"},
		},
		{
			name:       "object array after primitive",
			descriptor: "I[Ljava.lang.Object;",
			want:       []string{"int", "java.lang.Object[]"},
		},
		{
			name:       "unknown tag decodes to sentinel",
			descriptor: "X",
			want:       []string{descriptorSentinel},
		},
		{
			name:       "unterminated object type decodes to sentinel",
			descriptor: "Ljava.lang.String",
			want:       []string{descriptorSentinel},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeDescriptors(tt.descriptor))
		})
	}
}
