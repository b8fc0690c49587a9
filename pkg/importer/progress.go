package importer

import "fmt"

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseParsing   Phase = "parsing"
	PhaseStarting  Phase = "starting"
	PhaseUploading Phase = "uploading"
	PhaseFinishing Phase = "finishing"
	PhaseDone      Phase = "done"
	PhaseError     Phase = "error"
)

type Progress struct {
	Phase            Phase   `json:"phase"`
	Percent          float64 `json:"progressPercent"`
	Message          string  `json:"message"`
	RecordsProcessed int     `json:"recordsProcessed"`
	TotalRecords     int     `json:"totalRecords"`
	BatchesSent      int     `json:"batchesSent"`
	TotalBatches     int     `json:"totalBatches"`
}

// ProgressFunc is called synchronously from the pipeline goroutine.
type ProgressFunc func(Progress)

const (
	parseWeight      = 30.0
	startPercent     = 32.0
	uploadBase       = 35.0
	uploadWeight     = 55.0
	finishingPercent = 95.0
	donePercent      = 100.0
)

func parsePercent(read, estimate int) float64 {
	if estimate <= 0 {
		return 0
	}
	p := float64(read) / float64(estimate)
	if p > 1 {
		p = 1
	}
	return p * parseWeight
}

func uploadPercent(sent, total int) float64 {
	if total == 0 {
		return uploadBase + uploadWeight
	}
	return uploadBase + uploadWeight*float64(sent)/float64(total)
}

// tracker keeps the last emitted state so every event is complete.
type tracker struct {
	fn   ProgressFunc
	last Progress
}

func (t *tracker) emit(update func(*Progress)) {
	update(&t.last)
	if t.fn != nil {
		t.fn(t.last)
	}
}

func (t *tracker) parsing(read, estimate int) {
	t.emit(func(p *Progress) {
		p.Phase = PhaseParsing
		p.Percent = parsePercent(read, estimate)
		p.Message = fmt.Sprintf("Parsen: %d records...", read)
		p.RecordsProcessed = read
		p.TotalRecords = estimate
	})
}

func (t *tracker) fail(msg string) {
	t.emit(func(p *Progress) {
		p.Phase = PhaseError
		p.Percent = 0
		p.Message = msg
	})
}
