package report

import (
	"fmt"
	"strings"

	"github.com/rileyhilliard/vitals/internal/source"
)

// timespanUnit is one step of the duration ladder. amount is the divisor
// that moves a value into the next unit up.
type timespanUnit struct {
	text   string
	amount float64
}

var timespanUnits = []timespanUnit{
	{"ns", 1000},
	{"us", 1000},
	{"ms", 1000},
	{"s", 60},
	{"m", 60},
	{"h", 24},
	{"d", 7},
}

// FormatDuration renders a nanosecond magnitude with one decimal place,
// climbing the unit ladder while the scaled value still fills the next
// unit. Each step compares against that unit's own divisor, so 61 s climbs
// to "1.0 m" while 59 s stays "59.0 s".
func FormatDuration(nanos float64) string {
	t := nanos
	unit := timespanUnits[0]
	for _, u := range timespanUnits {
		unit = u
		if t < u.amount {
			break
		}
		t = t / u.amount
	}
	return fmt.Sprintf("%.1f %s", t, unit.text)
}

// FormatBytes renders a byte magnitude with integer truncation:
// "N bytes" below 1 kB, "N kB" below 1 MB, "N MB" above.
func FormatBytes(v float64) string {
	bytes := int64(v)
	if bytes >= 1024*1024 {
		return fmt.Sprintf("%d MB", bytes/(1024*1024))
	}
	if bytes >= 1024 {
		return fmt.Sprintf("%d kB", bytes/1024)
	}
	return fmt.Sprintf("%d bytes", bytes)
}

// FormatPercentage renders a 0..1 ratio as a fixed-width percentage with
// two decimals, e.g. " 12.34 %".
func FormatPercentage(v float64) string {
	return fmt.Sprintf("%6.2f %%", v*100)
}

// descriptorSentinel substitutes for a parameter type tag the decoder does
// not recognize. Unrecognized encodings are absorbed here and never
// propagate.
const descriptorSentinel = "<unknown-descriptor-type>"

// TopFrame formats the first frame of a stack sample into a display key.
// ok is false for an empty stack.
func TopFrame(stack []source.Frame) (key string, ok bool) {
	if len(stack) == 0 {
		return "", false
	}
	return FormatFrame(stack[0]), true
}

// FormatFrame renders a frame as "Type.method(Param, Param)". Frames that
// carry a plain function name (the loopback source) render it verbatim.
// Parameter types come from the frame's encoded descriptor; a joined
// parameter list longer than ten characters elides to "...".
func FormatFrame(f source.Frame) string {
	if f.Function != "" {
		return f.Function
	}
	typeName := f.Type
	if i := strings.LastIndex(typeName, "."); i >= 0 {
		typeName = typeName[i+1:]
	}
	var sb strings.Builder
	sb.WriteString(typeName)
	sb.WriteString(".")
	sb.WriteString(f.Method)
	sb.WriteString("(")
	sb.WriteString(formatParams(f.Descriptor))
	sb.WriteString(")")
	return sb.String()
}

// formatParams extracts and joins the parameter type names of an encoded
// method descriptor such as "(ILjava/lang/String;)V".
func formatParams(descriptor string) string {
	md := strings.ReplaceAll(descriptor, "/", ".")
	open := strings.Index(md, "(")
	end := strings.LastIndex(md, ")")
	if open < 0 || end <= open {
		return ""
	}
	var short []string
	for _, qualified := range decodeDescriptors(md[open+1 : end]) {
		if i := strings.LastIndex(qualified, "."); i >= 0 {
			qualified = qualified[i+1:]
		}
		short = append(short, qualified)
	}
	joined := strings.Join(short, ", ")
	if len(joined) > 10 {
		return "..."
	}
	return joined
}

// decodeDescriptors expands a parameter descriptor string into type names.
// Unknown tags decode to the sentinel rather than failing the frame.
func decodeDescriptors(descriptor string) []string {
	var descriptors []string
	for index := 0; index < len(descriptor); index++ {
		arrayBrackets := ""
		for index < len(descriptor) && descriptor[index] == '[' {
			arrayBrackets += "[]"
			index++
		}
		if index >= len(descriptor) {
			break
		}
		var typ string
		switch descriptor[index] {
		case 'L':
			endIndex := strings.Index(descriptor[index:], ";")
			if endIndex < 0 {
				typ = descriptorSentinel
				index = len(descriptor)
				break
			}
			typ = descriptor[index+1 : index+endIndex]
			index += endIndex
		case 'I':
			typ = "int"
		case 'J':
			typ = "long"
		case 'Z':
			typ = "boolean"
		case 'D':
			typ = "double"
		case 'F':
			typ = "float"
		case 'S':
			typ = "short"
		case 'C':
			typ = "char"
		case 'B':
			typ = "byte"
		default:
			typ = descriptorSentinel
		}
		descriptors = append(descriptors, typ+arrayBrackets)
	}
	return descriptors
}
