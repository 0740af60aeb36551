// Package dashboard assembles telemetry events into the fixed-width
// health report and keeps it current as events arrive.
package dashboard

import (
	"time"

	"github.com/rileyhilliard/vitals/internal/aggregate"
	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/report"
	"github.com/rileyhilliard/vitals/internal/source"
)

const templateText = `=================== HEALTH REPORT === $FLUSH_TIME         ====================
| GC: $GC_NAME            Phys. memory: $PHYS_MEM   Alloc Rate: $ALLOC_RATE  |
| OC Count    : $OC_COUNT Initial Heap: $INIT_HEAP  Total Alloc: $TOT_ALLOC  |
| OC Pause Avg: $OC_AVG   Used Heap   : $USED_HEAP  Thread Count: $THREADS   |
| OC Pause Max: $OC_MAX   Commit. Heap: $COM_HEAP   Class Count : $CLASSES   |
| YC Count    : $YC_COUNT CPU Machine   : $MACH_CPU Pause Count: $PAUSES     |
| YC Pause Avg: $YC_AVG   CPU Proc User : $USR_CPU  Max Pause  : $MAX_PAUSE  |
| YC Pause Max: $YC_MAX   CPU Proc Sys  : $SYS_CPU  Max Compile: $MAX_COMPILE|
|--- Top Allocation Methods ------------------------------- -----------------|
| $ALLOCATION_TOP_FRAME                                             $AL_PCT  |
| $ALLOCATION_TOP_FRAME                                             $AL_PCT  |
| $ALLOCATION_TOP_FRAME                                             $AL_PCT  |
| $ALLOCATION_TOP_FRAME                                             $AL_PCT  |
| $ALLOCATION_TOP_FRAME                                             $AL_PCT  |
|--- Hot Methods ------------------------------------------------------------|
| $EXECUTION_TOP_FRAME                                              $EX_PCT  |
| $EXECUTION_TOP_FRAME                                              $EX_PCT  |
| $EXECUTION_TOP_FRAME                                              $EX_PCT  |
| $EXECUTION_TOP_FRAME                                              $EX_PCT  |
| $EXECUTION_TOP_FRAME                                              $EX_PCT  |
==============================================================================`

const flushTimeLayout = "2006-01-02 15:04:05"

// Dashboard owns one field per report placeholder and routes incoming
// events to the fields they feed. It is not safe for concurrent use;
// the supervisor serializes Handle and Render on one goroutine.
type Dashboard struct {
	log logger.Logger
	tpl *report.Template

	flushTime *aggregate.Field
	gcName    *aggregate.Field

	ocCount *aggregate.Field
	ocAvg   *aggregate.Field
	ocMax   *aggregate.Field
	ycCount *aggregate.Field
	ycAvg   *aggregate.Field
	ycMax   *aggregate.Field

	physMem  *aggregate.Field
	initHeap *aggregate.Field
	usedHeap *aggregate.Field
	comHeap  *aggregate.Field

	machCPU *aggregate.Field
	usrCPU  *aggregate.Field
	sysCPU  *aggregate.Field

	allocRate *aggregate.Field
	totAlloc  *aggregate.Field
	threads   *aggregate.Field
	classes   *aggregate.Field

	pauses     *aggregate.Field
	maxPause   *aggregate.Field
	maxCompile *aggregate.Field

	allocTopFrame *aggregate.Field
	allocShare    *aggregate.Field
	execTopFrame  *aggregate.Field
	execShare     *aggregate.Field

	pauseBegin map[int64]time.Time

	totalAllocated float64
	firstAlloc     time.Time

	handlers map[source.Kind]func(source.Event)
}

// New builds a dashboard with empty fields bound to the report template.
func New(log logger.Logger) *Dashboard {
	if log == nil {
		log = logger.Noop()
	}
	d := &Dashboard{
		log:        log,
		pauseBegin: make(map[int64]time.Time),

		flushTime: aggregate.New("FLUSH_TIME"),
		gcName:    aggregate.New("GC_NAME"),

		ocCount: aggregate.New("OC_COUNT", aggregate.Count),
		ocAvg:   aggregate.New("OC_AVG", aggregate.Average, aggregate.Duration),
		ocMax:   aggregate.New("OC_MAX", aggregate.Max, aggregate.Duration),
		ycCount: aggregate.New("YC_COUNT", aggregate.Count),
		ycAvg:   aggregate.New("YC_AVG", aggregate.Average, aggregate.Duration),
		ycMax:   aggregate.New("YC_MAX", aggregate.Max, aggregate.Duration),

		physMem:  aggregate.New("PHYS_MEM", aggregate.Bytes),
		initHeap: aggregate.New("INIT_HEAP", aggregate.Bytes),
		usedHeap: aggregate.New("USED_HEAP", aggregate.Bytes),
		comHeap:  aggregate.New("COM_HEAP", aggregate.Bytes),

		machCPU: aggregate.New("MACH_CPU", aggregate.Percentage),
		usrCPU:  aggregate.New("USR_CPU", aggregate.Percentage),
		sysCPU:  aggregate.New("SYS_CPU", aggregate.Percentage),

		allocRate: aggregate.New("ALLOC_RATE", aggregate.BytesPerSecond),
		totAlloc:  aggregate.New("TOT_ALLOC", aggregate.Total, aggregate.Bytes),
		threads:   aggregate.New("THREADS", aggregate.Integer),
		classes:   aggregate.New("CLASSES", aggregate.Integer),

		pauses:     aggregate.New("PAUSES", aggregate.Count),
		maxPause:   aggregate.New("MAX_PAUSE", aggregate.Max, aggregate.Duration),
		maxCompile: aggregate.New("MAX_COMPILE", aggregate.Max, aggregate.Duration),

		allocTopFrame: aggregate.New("ALLOCATION_TOP_FRAME"),
		allocShare:    aggregate.New("AL_PCT", aggregate.Normalized, aggregate.Total),
		execTopFrame:  aggregate.New("EXECUTION_TOP_FRAME"),
		execShare:     aggregate.New("EX_PCT", aggregate.Normalized, aggregate.Count),
	}
	for _, f := range d.fields() {
		f.SetLogger(log)
	}

	tpl := report.NewTemplate(templateText, log)
	for _, f := range d.fields() {
		tpl.Bind(f.Name(), f)
	}
	d.tpl = tpl

	d.handlers = map[source.Kind]func(source.Event){
		source.KindCPULoad:          d.onCPULoad,
		source.KindYoungGC:          d.onYoungGC,
		source.KindOldGC:            d.onOldGC,
		source.KindHeapSummary:      d.onHeapSummary,
		source.KindPhysicalMemory:   d.onPhysicalMemory,
		source.KindGCConfig:         d.onGCConfig,
		source.KindHeapConfig:       d.onHeapConfig,
		source.KindPauseBegin:       d.onPauseBegin,
		source.KindPauseEnd:         d.onPauseEnd,
		source.KindAllocationSample: d.onAllocationSample,
		source.KindExecutionSample:  d.onExecutionSample,
		source.KindThreadStats:      d.onThreadStats,
		source.KindClassStats:       d.onClassStats,
		source.KindCompilation:      d.onCompilation,
		source.KindFlush:            d.onFlush,
	}
	return d
}

func (d *Dashboard) fields() []*aggregate.Field {
	return []*aggregate.Field{
		d.flushTime, d.gcName,
		d.ocCount, d.ocAvg, d.ocMax,
		d.ycCount, d.ycAvg, d.ycMax,
		d.physMem, d.initHeap, d.usedHeap, d.comHeap,
		d.machCPU, d.usrCPU, d.sysCPU,
		d.allocRate, d.totAlloc, d.threads, d.classes,
		d.pauses, d.maxPause, d.maxCompile,
		d.allocTopFrame, d.allocShare,
		d.execTopFrame, d.execShare,
	}
}

// Handle folds one event into the dashboard state. Events of unknown
// kinds are ignored so newer producers stay compatible.
func (d *Dashboard) Handle(ev source.Event) {
	if h, ok := d.handlers[ev.Kind]; ok {
		h(ev)
	} else {
		d.log.Debug("dropping event of unknown kind %q", ev.Kind)
	}
}

// Render produces the current report block. The output always has the
// same line count and line widths as the template.
func (d *Dashboard) Render() (string, error) {
	return d.tpl.Render()
}

func (d *Dashboard) onCPULoad(ev source.Event) {
	d.machCPU.AddSample(ev.Value("machineTotal"))
	d.usrCPU.AddSample(ev.Value("processUser"))
	d.sysCPU.AddSample(ev.Value("processSystem"))
}

func (d *Dashboard) onYoungGC(ev source.Event) {
	dur := ev.Value("duration")
	d.ycCount.AddSample(dur)
	d.ycAvg.AddSample(dur)
	d.ycMax.AddSample(dur)
}

func (d *Dashboard) onOldGC(ev source.Event) {
	dur := ev.Value("duration")
	d.ocCount.AddSample(dur)
	d.ocAvg.AddSample(dur)
	d.ocMax.AddSample(dur)
}

func (d *Dashboard) onHeapSummary(ev source.Event) {
	d.usedHeap.AddSample(ev.Value("heapUsed"))
	d.comHeap.AddSample(ev.Value("committedSize"))
}

func (d *Dashboard) onPhysicalMemory(ev source.Event) {
	d.physMem.AddSample(ev.Value("totalSize"))
}

func (d *Dashboard) onGCConfig(ev source.Event) {
	name := ev.Label("collector")
	if young := ev.Label("youngCollector"); young != "" {
		name += "/" + young
	}
	d.gcName.AddLabel(name)
}

func (d *Dashboard) onHeapConfig(ev source.Event) {
	d.initHeap.AddSample(ev.Value("initialSize"))
}

func (d *Dashboard) onPauseBegin(ev source.Event) {
	d.pauseBegin[int64(ev.Value("pauseId"))] = ev.Time
}

func (d *Dashboard) onPauseEnd(ev source.Event) {
	id := int64(ev.Value("pauseId"))
	begin, ok := d.pauseBegin[id]
	if !ok {
		d.log.Debug("pause end without matching begin, id %d", id)
		return
	}
	delete(d.pauseBegin, id)
	dur := float64(ev.Time.Sub(begin).Nanoseconds())
	d.pauses.AddSample(dur)
	d.maxPause.AddSample(dur)
}

func (d *Dashboard) onAllocationSample(ev source.Event) {
	weight := ev.Value("weight")
	if frame, ok := report.TopFrame(ev.Stack); ok {
		d.allocTopFrame.AddKeyedSample(frame, weight)
		d.allocShare.AddKeyedSample(frame, weight)
	}
	d.totAlloc.AddSample(weight)

	d.totalAllocated += weight
	if d.firstAlloc.IsZero() {
		d.firstAlloc = ev.Time
		return
	}
	elapsed := ev.Time.Sub(d.firstAlloc).Milliseconds()
	if elapsed > 0 {
		d.allocRate.AddSample(1000 * d.totalAllocated / float64(elapsed))
	}
}

func (d *Dashboard) onExecutionSample(ev source.Event) {
	if frame, ok := report.TopFrame(ev.Stack); ok {
		d.execTopFrame.AddKeyedSample(frame, 1)
		d.execShare.AddKeyedSample(frame, 1)
	}
}

func (d *Dashboard) onThreadStats(ev source.Event) {
	d.threads.AddSample(ev.Value("activeCount"))
}

func (d *Dashboard) onClassStats(ev source.Event) {
	d.classes.AddSample(ev.Value("loadedClassCount") - ev.Value("unloadedClassCount"))
}

func (d *Dashboard) onCompilation(ev source.Event) {
	d.maxCompile.AddSample(ev.Value("duration"))
}

func (d *Dashboard) onFlush(ev source.Event) {
	d.flushTime.AddLabel(ev.Time.Format(flushTimeLayout))
}
