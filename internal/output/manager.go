package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tanq16/streamz/internal/utils"
)

type Entry struct {
	ID          int
	Label       string
	Status      string
	Message     string
	Received    int64
	Total       int64
	Complete    bool
	StartTime   time.Time
	LastUpdated time.Time
	Error       error
	// TransferStart is the time of the first progress report.
	TransferStart time.Time
}

type ErrorReport struct {
	Label string
	Error error
	Time  time.Time
}

// Manager tracks the state of every download and redraws it on an
// interactive terminal. On a plain writer it only prints final states.
type Manager struct {
	out         io.Writer
	interactive bool

	mutex       sync.RWMutex
	entries     map[int]*Entry
	count       int
	numLines    int
	errors      []ErrorReport
	doneCh      chan struct{}
	displayTick time.Duration
	displayWg   sync.WaitGroup
	stopOnce    sync.Once
}

func NewManager() *Manager {
	return NewManagerWithWriter(os.Stdout, IsInteractive())
}

func NewManagerWithWriter(out io.Writer, interactive bool) *Manager {
	return &Manager{
		out:         out,
		interactive: interactive,
		entries:     make(map[int]*Entry),
		doneCh:      make(chan struct{}),
		displayTick: 300 * time.Millisecond,
	}
}

func (m *Manager) Register(label string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.count++
	m.entries[m.count] = &Entry{
		ID:          m.count,
		Label:       label,
		Status:      StatusPending,
		StartTime:   time.Now(),
		LastUpdated: time.Now(),
	}
	return m.count
}

func (m *Manager) update(id int, fn func(e *Entry)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if e, ok := m.entries[id]; ok && !e.Complete {
		fn(e)
		e.LastUpdated = time.Now()
	}
}

func (m *Manager) SetMessage(id int, message string) {
	m.update(id, func(e *Entry) {
		e.Message = message
		if e.Status == StatusPending {
			e.Status = StatusActive
		}
	})
}

func (m *Manager) SetLabel(id int, label string) {
	m.update(id, func(e *Entry) { e.Label = label })
}

func (m *Manager) SetProgress(id int, received, total int64) {
	m.update(id, func(e *Entry) {
		if e.TransferStart.IsZero() {
			e.TransferStart = time.Now()
		}
		e.Status = StatusActive
		e.Received = received
		e.Total = total
	})
}

func (m *Manager) Warn(id int, message string) {
	m.update(id, func(e *Entry) {
		e.Status = StatusWarning
		e.Message = message
	})
}

func (m *Manager) Complete(id int, message string) {
	var line string
	m.update(id, func(e *Entry) {
		if message == "" {
			message = fmt.Sprintf("Completed %s", e.Label)
		}
		e.Message = message
		e.Complete = true
		e.Status = StatusSuccess
		line = m.entryLine(e)
	})
	m.printPlain(line)
}

func (m *Manager) ReportError(id int, err error) {
	var line string
	m.update(id, func(e *Entry) {
		e.Complete = true
		e.Status = StatusError
		e.Error = err
		e.Message = fmt.Sprintf("Failed %s", e.Label)
		m.errors = append(m.errors, ErrorReport{Label: e.Label, Error: err, Time: time.Now()})
		line = m.entryLine(e)
	})
	m.printPlain(line)
}

// Get returns a copy of the entry.
func (m *Manager) Get(id int) (Entry, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Counts returns the number of succeeded and failed entries.
func (m *Manager) Counts() (success, failures int) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, e := range m.entries {
		switch e.Status {
		case StatusSuccess:
			success++
		case StatusError:
			failures++
		}
	}
	return success, failures
}

func (m *Manager) printPlain(line string) {
	if m.interactive || line == "" {
		return
	}
	fmt.Fprintln(m.out, line)
}

func GetStatusIndicator(status string) string {
	switch status {
	case StatusSuccess:
		return successStyle.Render(StyleSymbols["pass"])
	case StatusError:
		return errorStyle.Render(StyleSymbols["fail"])
	case StatusWarning:
		return warningStyle.Render(StyleSymbols["warning"])
	case StatusPending:
		return pendingStyle.Render(StyleSymbols["pending"])
	default:
		return infoStyle.Render(StyleSymbols["bullet"])
	}
}

func (m *Manager) entryLine(e *Entry) string {
	elapsed := time.Since(e.StartTime).Round(time.Second)
	if e.Complete {
		elapsed = e.LastUpdated.Sub(e.StartTime).Round(time.Second)
	}
	message := e.Message
	if message == "" {
		message = e.Label
	}
	return fmt.Sprintf("  %s %s %s", GetStatusIndicator(e.Status), debugStyle.Render(elapsed.String()), FStatus(e.Status, message))
}

// progressLine renders the bar followed by the average rate since the
// first progress report.
func progressLine(e *Entry, now time.Time) string {
	speed := utils.FormatSpeed(e.Received, now.Sub(e.TransferStart).Seconds())
	return fmt.Sprintf("%s %s %s", ProgressBar(e.Received, e.Total, 30), StyleSymbols["bullet"], speed)
}

func (m *Manager) sortEntries() (active, pending, completed []*Entry) {
	var all []*Entry
	for _, e := range m.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	for _, e := range all {
		switch {
		case e.Complete:
			completed = append(completed, e)
		case e.Status == StatusPending:
			pending = append(pending, e)
		default:
			active = append(active, e)
		}
	}
	return active, pending, completed
}

func (m *Manager) updateDisplay() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	width, height := getTerminalSize()
	availableLines := height - 3
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	active, pending, completed := m.sortEntries()

	needed := 2*len(active) + len(pending) + len(completed)
	if needed > availableLines {
		keep := max(availableLines-(needed-len(completed)), 0)
		if len(completed) > keep {
			completed = completed[len(completed)-keep:]
		}
	}

	lineCount := 0
	emit := func(line string) bool {
		if lineCount >= availableLines {
			return false
		}
		fmt.Fprintln(m.out, line)
		lineCount++
		return true
	}
	for _, e := range active {
		if !emit(truncate(m.entryLine(e), width+64)) {
			break
		}
		if e.Received > 0 || e.Total > 0 {
			emit("      " + streamStyle.Render(progressLine(e, time.Now())))
		}
	}
	for range pending {
		emit("  " + GetStatusIndicator(StatusPending) + " " + pendingStyle.Render("Waiting..."))
	}
	if len(completed) > 10 {
		emit(infoStyle.Render(fmt.Sprintf("  %d downloads completed with varying hidden status ...", len(completed)-8)))
		completed = completed[len(completed)-8:]
	}
	for _, e := range completed {
		emit(m.entryLine(e))
	}
	m.numLines = lineCount
}

func (m *Manager) StartDisplay() {
	if !m.interactive {
		return
	}
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.updateDisplay()
				return
			}
		}
	}()
}

// StopDisplay draws the final state and prints the summary.
func (m *Manager) StopDisplay() {
	m.stopOnce.Do(func() {
		close(m.doneCh)
		m.displayWg.Wait()
		m.ShowSummary()
	})
}

func (m *Manager) ShowSummary() {
	success, failures := m.Counts()
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	total := len(m.entries)
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  "+success2Style.Render(fmt.Sprintf("Completed %d of %d", success, total)))
	if failures > 0 {
		fmt.Fprintln(m.out, "  "+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failures, total)))
	}
	if len(m.errors) > 0 {
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, "  "+errorStyle.Bold(true).Render("Errors:"))
		for i, report := range m.errors {
			fmt.Fprintf(m.out, "    %s %s %s\n",
				errorStyle.Render(fmt.Sprintf("%d.", i+1)),
				debugStyle.Render(fmt.Sprintf("[%s]", report.Time.Format("15:04:05"))),
				errorStyle.Render(report.Label))
			fmt.Fprintf(m.out, "      %s\n", errorStyle.Render(fmt.Sprintf("Error: %v", report.Error)))
		}
	}
	fmt.Fprintln(m.out)
}

// Lines returns the rendered entries, one per line, without redraw codes.
func (m *Manager) Lines() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	active, pending, completed := m.sortEntries()
	var lines []string
	for _, group := range [][]*Entry{active, pending, completed} {
		for _, e := range group {
			lines = append(lines, strings.TrimSpace(m.entryLine(e)))
		}
	}
	return lines
}
