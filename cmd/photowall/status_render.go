package main

import (
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"photowall/internal/daemonctl"
	"photowall/internal/ipc"
	"photowall/internal/journal"
	"photowall/internal/slots"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var titleCaser = cases.Title(language.English)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// stateLabel renders a slot state for humans, e.g. NEW_ASSIGNMENT as "New Assignment".
func stateLabel(state slots.State) string {
	return titleCaser.String(strings.ReplaceAll(strings.ToLower(state.String()), "_", " "))
}

func stateKind(state slots.State) statusKind {
	switch state {
	case slots.StateIdle:
		return statusOK
	case slots.StateFailed:
		return statusError
	case slots.StateDirty, slots.StateInit:
		return statusWarn
	default:
		return statusInfo
	}
}

func renderStatus(out io.Writer, snap *daemonctl.Snapshot, now time.Time, colorize bool) {
	status := snap.Daemon
	var lines []string
	lines = append(lines, renderSectionHeader("Daemon", colorize)...)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
		if !status.StartedAt.IsZero() {
			lines = append(lines, renderStatusLine("Uptime", statusInfo, now.Sub(status.StartedAt).Truncate(time.Second).String(), colorize))
		}
		if status.Paused {
			lines = append(lines, renderStatusLine("Auto-advance", statusWarn, "paused", colorize))
		} else {
			lines = append(lines, renderStatusLine("Auto-advance", statusOK, "active", colorize))
		}
		if len(status.Blacklisted) > 0 {
			lines = append(lines, renderStatusLine("Blacklisted dirs", statusWarn, strconv.Itoa(len(status.Blacklisted)), colorize))
		}
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "not running", colorize))
	}

	if len(snap.Checks) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Environment", colorize)...)
		for _, check := range snap.Checks {
			kind := statusOK
			if !check.Passed {
				kind = statusError
				if check.Optional {
					kind = statusWarn
				}
			}
			lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
		}
	}

	if len(snap.Outcome) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("History", colorize)...)
		for _, outcome := range []journal.Outcome{journal.OutcomeDelivered, journal.OutcomeMismatch, journal.OutcomePlaceholder, journal.OutcomeFailed} {
			count := snap.Outcome[outcome]
			kind := statusInfo
			if outcome == journal.OutcomeFailed && count > 0 {
				kind = statusWarn
			}
			lines = append(lines, renderStatusLine(titleCaser.String(string(outcome)), kind, strconv.Itoa(count), colorize))
		}
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))

	if len(status.Surfaces) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Join(renderSectionHeader("Frames", colorize), "\n"))
		fmt.Fprintln(out, renderSurfaces(status.Surfaces))
	}
	if len(status.Slots) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Join(renderSectionHeader("Slots", colorize), "\n"))
		fmt.Fprintln(out, renderSlots(status.Slots, now))
	}
}

func renderSurfaces(surfaces []ipc.Surface) string {
	rows := make([][]string, 0, len(surfaces))
	for _, s := range surfaces {
		grid := "-"
		if s.Rows > 0 && s.Columns > 0 {
			grid = fmt.Sprintf("%dx%d", s.Rows, s.Columns)
		}
		rows = append(rows, []string{s.Name, grid, strconv.Itoa(s.Slots), yesNo(s.Visible)})
	}
	return renderTable([]column{
		{Header: "Frame"},
		{Header: "Grid"},
		{Header: "Slots", Right: true},
		{Header: "Visible"},
	}, rows)
}

func renderSlots(list []ipc.Slot, now time.Time) string {
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		shown := "-"
		if !s.DeliveredAt.IsZero() {
			shown = now.Sub(s.DeliveredAt).Truncate(time.Second).String() + " ago"
		}
		photo := "-"
		if s.AssignedPath != "" {
			photo = s.AssignedPath
		}
		rows = append(rows, []string{
			s.ID,
			stateLabel(s.State),
			photo,
			shown,
			strconv.Itoa(s.FailureCount),
			yesNo(s.Sticky),
		})
	}
	return renderTable([]column{
		{Header: "Slot"},
		{Header: "State"},
		{Header: "Photo", MaxWidth: 48},
		{Header: "Shown"},
		{Header: "Failures", Right: true},
		{Header: "Sticky"},
	}, rows)
}

func renderHistory(entries []journal.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		detail := e.Message
		if e.ErrorKind != "" {
			detail = e.ErrorKind + ": " + detail
		}
		photo := "-"
		if e.Path != "" {
			photo = path.Base(e.Path)
		}
		rows = append(rows, []string{
			e.At.Local().Format("2006-01-02 15:04:05"),
			e.SlotID,
			string(e.Outcome),
			photo,
			e.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}
	return renderTable([]column{
		{Header: "Time"},
		{Header: "Slot"},
		{Header: "Outcome"},
		{Header: "Photo", MaxWidth: 32},
		{Header: "Took", Right: true},
		{Header: "Detail", MaxWidth: 48},
	}, rows)
}
