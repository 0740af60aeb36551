// Package aggregate implements the rolling per-metric statistics behind the
// dashboard. A Field is a named aggregation slot declared once at startup
// with a fixed set of statistic policies; it owns one Record per key. Scalar
// time-series fields hold a single record keyed by the field itself, while
// keyed fields (top allocation sites, hot functions) hold one record per
// externally supplied key.
//
// Records accumulate monotonically and are never evicted, so a keyed field
// on a long-lived connection grows with the number of distinct keys. That is
// a deliberate match of the observed source behavior; the growth is logged
// once at debug level when a field passes warnRecordCount keys.
package aggregate

import (
	"sort"

	"github.com/rileyhilliard/vitals/internal/logger"
)

// Option is a statistic or formatting policy declared on a Field.
type Option int

const (
	// Count displays the number of samples.
	Count Option = iota
	// Average displays total/count.
	Average
	// Max displays the largest sample.
	Max
	// Total displays the running sum, and switches ranking to total-descending.
	Total
	// Normalized divides the displayed magnitude by the field-wide
	// denominator and renders it as a percentage share.
	Normalized
	// Bytes formats the magnitude as bytes/kB/MB.
	Bytes
	// Duration formats a nanosecond magnitude with an auto-scaled unit.
	Duration
	// Percentage formats the magnitude as a fixed-width percentage.
	Percentage
	// BytesPerSecond formats as Bytes with a "/s" suffix.
	BytesPerSecond
	// Integer truncates the magnitude before formatting.
	Integer
)

// warnRecordCount is the keyed-record population at which resource growth
// is logged.
const warnRecordCount = 10_000

// scalarKey is the internal map key for a field's own (unkeyed) record.
const scalarKey = "\x00self"

// Record is the accumulated aggregate for one key within a Field.
// Count is at least 1 from the moment the record exists.
type Record struct {
	key    string
	keyed  bool
	count  int64
	total  float64
	max    float64
	num    float64
	hasNum bool
	label  string
}

// Key returns the histogram key, or "" for a field's own scalar record.
func (r *Record) Key() string { return r.key }

// Keyed reports whether the record belongs to a keyed histogram.
func (r *Record) Keyed() bool { return r.keyed }

// Count returns the number of samples accumulated.
func (r *Record) Count() int64 { return r.count }

// Total returns the running sum of numeric samples.
func (r *Record) Total() float64 { return r.total }

// Max returns the largest numeric sample seen.
func (r *Record) Max() float64 { return r.max }

// Average returns total/count.
func (r *Record) Average() float64 { return r.total / float64(r.count) }

// Last returns the most recent numeric sample. ok is false when the record
// has only ever seen labels.
func (r *Record) Last() (v float64, ok bool) { return r.num, r.hasNum }

// Label returns the most recent label sample, or "" if none.
func (r *Record) Label() string { return r.label }

// HasNumbers reports whether any numeric sample has been recorded.
func (r *Record) HasNumbers() bool { return r.hasNum }

// Field is a named aggregation slot with a fixed, ordered set of options.
// Fields are not safe for concurrent use; all mutation and export happens
// on the dashboard's single dispatch flow.
type Field struct {
	name    string
	options []Option
	records map[string]*Record
	order   []*Record // insertion order, for stable tie-breaks
	norm    float64
	warned  bool
	log     logger.Logger
}

// New declares a field with the given options. The option set is fixed for
// the field's lifetime.
func New(name string, options ...Option) *Field {
	return &Field{
		name:    name,
		options: options,
		records: make(map[string]*Record),
		log:     logger.Default(),
	}
}

// SetLogger replaces the logger used for resource-growth diagnostics.
func (f *Field) SetLogger(log logger.Logger) {
	f.log = log
}

// Name returns the field's declared name.
func (f *Field) Name() string { return f.name }

// Has reports whether the field declares the given option.
func (f *Field) Has(o Option) bool {
	for _, opt := range f.options {
		if opt == o {
			return true
		}
	}
	return false
}

// Len returns the number of records in the field.
func (f *Field) Len() int { return len(f.records) }

// AddSample records a numeric sample on the field's own scalar record.
func (f *Field) AddSample(v float64) {
	r := f.record(scalarKey, false)
	r.count++
	r.total += v
	r.num = v
	r.hasNum = true
	if v > r.max {
		r.max = v
	}
}

// AddLabel records a label sample on the field's own scalar record. The
// label replaces any previous one; only the sample count accumulates.
func (f *Field) AddLabel(s string) {
	r := f.record(scalarKey, false)
	r.count++
	r.label = s
}

// AddKeyedSample records a numeric sample against an externally supplied
// key, creating the key's record on first use.
func (f *Field) AddKeyedSample(key string, v float64) {
	r := f.record(key, true)
	r.count++
	r.total += v
	r.num = v
	r.hasNum = true
	if v > r.max {
		r.max = v
	}
}

// record returns the record for key, creating it at count zero. Callers
// increment the count immediately, so an existing record's count is never
// observed at zero.
func (f *Field) record(key string, keyed bool) *Record {
	if r, ok := f.records[key]; ok {
		return r
	}
	r := &Record{keyed: keyed}
	if keyed {
		r.key = key
	}
	f.records[key] = r
	f.order = append(f.order, r)
	if keyed && !f.warned && len(f.records) > warnRecordCount {
		f.warned = true
		f.log.Debug("field %s holds %d keys with no eviction; memory grows with key cardinality", f.name, len(f.records))
	}
	return r
}

// Ranked exports the field's records in display order: count descending,
// re-sorted by total descending when the field declares Total. Both sorts
// are stable, so insertion order breaks ties. When the field declares
// Normalized, Ranked also computes the normalization denominator used by
// the renderer (sum of totals when Total is declared, plus sum of counts
// when Count is declared).
func (f *Field) Ranked() []*Record {
	records := make([]*Record, len(f.order))
	copy(records, f.order)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].count > records[j].count
	})
	if f.Has(Total) {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].total > records[j].total
		})
	}
	if f.Has(Normalized) {
		f.norm = 0
		for _, r := range records {
			if f.Has(Total) {
				f.norm += r.total
			}
			if f.Has(Count) {
				f.norm += float64(r.count)
			}
		}
	}
	return records
}

// Norm returns the normalization denominator computed by the last Ranked
// call. Zero until a Normalized field has been exported.
func (f *Field) Norm() float64 { return f.norm }
