package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
)

// ProgressTracker renders download progress and implements
// internal.ProgressReporter
type ProgressTracker struct {
	bar       *pb.ProgressBar
	quiet     bool
	output    io.Writer
	startTime time.Time
	total     int64
	current   int64
	filename  string
	mutex     sync.Mutex
}

// DownloadSummary contains final download statistics
type DownloadSummary struct {
	TotalBytes   int64
	TotalTime    time.Duration
	AverageSpeed float64 // bytes per second
	Filename     string
}

// NewProgressTracker creates a tracker writing to stderr; quiet suppresses
// all output while still counting bytes
func NewProgressTracker(quiet bool) *ProgressTracker {
	return NewProgressTrackerWithOutput(os.Stderr, quiet)
}

// NewProgressTrackerWithOutput creates a tracker rendering to output
func NewProgressTrackerWithOutput(output io.Writer, quiet bool) *ProgressTracker {
	return &ProgressTracker{
		quiet:  quiet,
		output: output,
	}
}

// Start begins tracking a transfer of total bytes; total < 0 means unknown
func (p *ProgressTracker) Start(total int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if total < 0 {
		total = 0
	}
	p.total = total
	p.current = 0
	p.startTime = time.Now()

	if !p.quiet {
		tmpl := `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}`
		bar := pb.New64(total).SetTemplate(pb.ProgressBarTemplate(tmpl))
		bar.SetWriter(p.output)
		bar.Set(pb.Bytes, true)
		bar.Set(pb.SIBytesPrefix, true)
		bar.Set("prefix", "Downloading: ")
		p.bar = bar.Start()
	}
}

// Wrap returns a writer that reports every write to the tracker
func (p *ProgressTracker) Wrap(w io.Writer) io.Writer {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.bar != nil {
		w = p.bar.NewProxyWriter(w)
	}
	return &countingWriter{writer: w, tracker: p}
}

func (p *ProgressTracker) add(n int) {
	p.mutex.Lock()
	p.current += int64(n)
	p.mutex.Unlock()
}

// Finish completes the progress bar
func (p *ProgressTracker) Finish() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.bar != nil {
		p.bar.Finish()
	}
}

// SetFilename sets the filename reported in the summary
func (p *ProgressTracker) SetFilename(filename string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.filename = filename
}

// Summary returns statistics for the most recent transfer and prints them
// unless quiet
func (p *ProgressTracker) Summary() *DownloadSummary {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	totalTime := time.Since(p.startTime)
	var averageSpeed float64
	if seconds := totalTime.Seconds(); seconds > 0 {
		averageSpeed = float64(p.current) / seconds
	}

	summary := &DownloadSummary{
		TotalBytes:   p.current,
		TotalTime:    totalTime,
		AverageSpeed: averageSpeed,
		Filename:     p.filename,
	}

	if !p.quiet {
		p.displaySummary(summary)
	}
	return summary
}

// BytesTransferred returns the number of bytes written so far
func (p *ProgressTracker) BytesTransferred() int64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.current
}

// IsQuiet returns whether the tracker is in quiet mode
func (p *ProgressTracker) IsQuiet() bool {
	return p.quiet
}

func (p *ProgressTracker) displaySummary(summary *DownloadSummary) {
	fmt.Fprintf(p.output, "Total size: %s\n", FormatBytes(summary.TotalBytes))
	fmt.Fprintf(p.output, "Total time: %v\n", summary.TotalTime.Round(time.Millisecond))
	fmt.Fprintf(p.output, "Average speed: %s/s\n", FormatBytes(int64(summary.AverageSpeed)))
	if summary.Filename != "" {
		fmt.Fprintf(p.output, "Saved to: %s\n", summary.Filename)
	}
}

type countingWriter struct {
	writer  io.Writer
	tracker *ProgressTracker
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.writer.Write(b)
	c.tracker.add(n)
	return n, err
}

// FormatBytes formats byte count as human-readable string
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
