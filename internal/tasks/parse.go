package tasks

import (
	"encoding/csv"
	"errors"
	"io"
	"slices"
	"strings"

	"startctl/internal/startup"
)

// Task is one row of the verbose schtasks listing.
type Task struct {
	Path     string
	Status   string
	Author   string
	Command  string
	Comment  string
	Triggers []string
}

// Name returns the last segment of the task path.
func (t Task) Name() string {
	if i := strings.LastIndex(t.Path, `\`); i >= 0 {
		return t.Path[i+1:]
	}
	return t.Path
}

// AtStartup reports whether any trigger fires at logon or boot.
func (t Task) AtStartup() bool {
	for _, trig := range t.Triggers {
		lower := strings.ToLower(trig)
		for _, kw := range []string{"logon", "boot", "startup", "start up"} {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

type columns struct {
	name     int
	status   int
	author   int
	command  int
	comment  int
	triggers []int
}

func findColumns(header []string) (columns, bool) {
	c := columns{name: -1, status: -1, author: -1, command: -1, comment: -1}
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case h == "TaskName":
			c.name = i
		case h == "Status":
			c.status = i
		case h == "Author":
			c.author = i
		case h == "Task To Run":
			c.command = i
		case h == "Comment":
			c.comment = i
		case h == "Schedule Type", h == "Schedule", strings.Contains(h, "Trigger"):
			c.triggers = append(c.triggers, i)
		}
	}
	return c, c.name >= 0
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	v := strings.TrimSpace(record[i])
	if v == "N/A" {
		return ""
	}
	return v
}

// ParseCSV reads the output of `schtasks /query /fo CSV /v`. Rows that are
// too short, blank or repeat the header are skipped. Output without a
// TaskName column yields no tasks.
func ParseCSV(r io.Reader) ([]Task, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cols, ok := findColumns(header)
	if !ok {
		return nil, nil
	}

	var tasks []Task
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, err
		}

		path := field(record, cols.name)
		if path == "" || path == header[cols.name] {
			continue
		}

		t := Task{
			Path:    path,
			Status:  field(record, cols.status),
			Author:  field(record, cols.author),
			Command: field(record, cols.command),
			Comment: field(record, cols.comment),
		}
		for _, i := range cols.triggers {
			if v := field(record, i); v != "" {
				t.Triggers = append(t.Triggers, v)
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ParseStatus maps a schtasks status column to an entry status. Anything
// other than Disabled counts as enabled.
func ParseStatus(s string) startup.Status {
	if strings.EqualFold(s, "Disabled") {
		return startup.StatusDisabled
	}
	return startup.StatusEnabled
}

// Entries converts startup tasks to entries, dropping excluded namespaces.
// The result is sorted by name with duplicate names collapsed.
func Entries(tasks []Task, excluded []string) []*startup.Entry {
	var entries []*startup.Entry
	for _, t := range tasks {
		if isExcluded(t, excluded) || !t.AtStartup() {
			continue
		}
		command := t.Command
		if command == "" {
			command = "Scheduled Task: " + t.Path
		}
		e := startup.NewEntry(t.Name(), startup.ScheduledTask, t.Path, command, ParseStatus(t.Status))
		e.Publisher = t.Author
		e.Description = t.Comment
		entries = append(entries, e)
	}

	slices.SortStableFunc(entries, func(a, b *startup.Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return slices.CompactFunc(entries, func(a, b *startup.Entry) bool {
		return a.Name == b.Name
	})
}

func isExcluded(t Task, excluded []string) bool {
	if strings.HasPrefix(t.Name(), "Microsoft") {
		return true
	}
	for _, prefix := range excluded {
		if len(t.Path) >= len(prefix) && strings.EqualFold(t.Path[:len(prefix)], prefix) {
			return true
		}
	}
	return false
}
