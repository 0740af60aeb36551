// Package report turns aggregated dashboard state into the next fixed-width
// text block. The template is static; placeholders are overwritten in place
// and padded to at least their own width, so box borders never shift.
package report

import (
	"regexp"
	"strconv"

	"github.com/rileyhilliard/vitals/internal/aggregate"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/logger"
)

// Binding associates a placeholder name with the field that feeds it.
type Binding struct {
	Name  string
	Field *aggregate.Field
}

// Template is a static multi-line layout with $NAME placeholders. A
// placeholder name may repeat; each occurrence consumes the next ranked
// record of the bound field, which is how the top-N tables render.
type Template struct {
	text     string
	bindings []Binding
	log      logger.Logger
}

// placeholderPattern matches the $NAME tokens a template may contain.
var placeholderPattern = regexp.MustCompile(`\$[A-Z][A-Z0-9_]*`)

// NewTemplate creates a template over the given layout text. Bindings are
// registered explicitly with Bind, in display order.
func NewTemplate(text string, log logger.Logger) *Template {
	if log == nil {
		log = logger.Noop()
	}
	return &Template{text: text, log: log}
}

// Bind registers a field for a placeholder name. Binding order is the order
// fields are consulted during a render pass.
func (t *Template) Bind(name string, f *aggregate.Field) {
	t.bindings = append(t.bindings, Binding{Name: name, Field: f})
}

// Bindings returns the registered bindings in order.
func (t *Template) Bindings() []Binding {
	return t.bindings
}

// Render produces the next report block. Placeholders are located
// left-to-right; each occurrence consumes the next entry from its field's
// ranked export, with the cursor reset at the start of every pass.
// A template placeholder with no registered field fails the pass.
func (t *Template) Render() (string, error) {
	if err := t.validate(); err != nil {
		return "", err
	}
	buf := []rune(t.text)
	for _, b := range t.bindings {
		writeParam(buf, b.Name, b.Field)
	}
	return string(buf), nil
}

// validate checks that every placeholder in the template has a binding.
func (t *Template) validate() error {
	bound := make(map[string]bool, len(t.bindings))
	for _, b := range t.bindings {
		bound[b.Name] = true
	}
	for _, token := range placeholderPattern.FindAllString(t.text, -1) {
		if !bound[token[1:]] {
			return errors.New(errors.ErrRender,
				"No field registered for placeholder "+token,
				"Register the field with Bind before rendering")
		}
	}
	return nil
}

// writeParam substitutes every occurrence of $name in buf with successive
// ranked records of the field. The written text is padded with spaces to at
// least the token width; longer text overwrites the characters that follow.
func writeParam(buf []rune, name string, f *aggregate.Field) {
	token := []rune("$" + name)
	records := f.Ranked()
	next := 0
	lastIndex := 0
	for {
		index := runeIndex(buf, token, lastIndex)
		if index < 0 {
			return
		}
		lastIndex = index + 1
		var rec *aggregate.Record
		if next < len(records) {
			rec = records[next]
			next++
		}
		text := []rune(displayText(f, rec))
		width := len(text)
		if width < len(token) {
			width = len(token)
		}
		for i := 0; i < width && index+i < len(buf); i++ {
			c := ' '
			if i < len(text) {
				c = text[i]
			}
			buf[index+i] = c
		}
	}
}

// runeIndex finds token in buf at or after from, returning -1 when absent.
func runeIndex(buf, token []rune, from int) int {
	for i := from; i+len(token) <= len(buf); i++ {
		match := true
		for j := range token {
			if buf[i+j] != token[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// displayText resolves a record to its display string: first the statistic
// selection (Max, then Count, then Average, then Total overriding in that
// order), then Integer coercion, then the field's unit format. A missing
// record renders empty, except that Count fields render "0". A record whose
// selected statistic needs numbers it never received renders "N/A".
func displayText(f *aggregate.Field, rec *aggregate.Record) string {
	if rec == nil {
		// Count fields read "0" before their first sample; everything
		// else stays blank. Normalized share columns stay blank too, a
		// zero share of nothing is not meaningful.
		if f.Has(aggregate.Count) && !f.Has(aggregate.Normalized) {
			return "0"
		}
		return ""
	}

	// Raw last-observed value or key, used when no statistic is declared.
	var num float64
	var str string
	hasNum := false
	hasStr := false
	switch {
	case rec.Keyed():
		str, hasStr = rec.Key(), true
	default:
		if v, ok := rec.Last(); ok {
			num, hasNum = v, true
		} else if rec.Label() != "" {
			str, hasStr = rec.Label(), true
		}
	}

	// Statistic selection. Later options override earlier ones, matching
	// the declared priority.
	statDeclared := false
	isInt := false
	if f.Has(aggregate.Max) {
		statDeclared = true
		num, hasNum, hasStr = rec.Max(), rec.HasNumbers(), false
	}
	if f.Has(aggregate.Count) {
		statDeclared = true
		num, hasNum, hasStr = float64(rec.Count()), true, false
		isInt = true
	}
	if f.Has(aggregate.Average) {
		statDeclared = true
		num, hasNum, hasStr = rec.Average(), rec.HasNumbers(), false
		isInt = false
	}
	if f.Has(aggregate.Total) {
		statDeclared = true
		num, hasNum, hasStr = rec.Total(), rec.HasNumbers(), false
		isInt = false
	}
	if statDeclared && !hasNum {
		return "N/A"
	}

	if hasStr {
		return str
	}
	if !hasNum {
		return "N/A"
	}

	if f.Has(aggregate.Integer) {
		num = float64(int64(num))
		isInt = true
	}
	return formatMagnitude(f, num, isInt)
}

// formatMagnitude applies the field's unit-formatting policy to a numeric
// magnitude.
func formatMagnitude(f *aggregate.Field, v float64, isInt bool) string {
	switch {
	case f.Has(aggregate.Bytes):
		return FormatBytes(v)
	case f.Has(aggregate.Duration):
		return FormatDuration(v)
	case f.Has(aggregate.BytesPerSecond):
		return FormatBytes(v) + "/s"
	case f.Has(aggregate.Normalized):
		return FormatPercentage(v / f.Norm())
	case f.Has(aggregate.Percentage):
		return FormatPercentage(v)
	}
	if isInt {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
