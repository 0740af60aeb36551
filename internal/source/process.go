package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rileyhilliard/vitals/internal/errors"
)

// Process describes a running process that may expose a recording
// repository.
type Process struct {
	PID  int
	Name string
	// Repository is the path to the process's recording repository, or ""
	// when the process is not instrumented.
	Repository string
}

// String renders the process the way the help listing shows it.
func (p Process) String() string {
	marker := "     "
	if p.Repository != "" {
		marker = "[REC]"
	}
	return fmt.Sprintf("%-5d %s %s", p.PID, marker, p.Name)
}

// ListProcesses enumerates running processes in ascending pid order. Only
// Linux exposes the /proc layout this reads; elsewhere the listing is
// empty. The enumeration order is what makes first-match resolution
// deterministic on a single host, but it is not a documented priority.
func ListProcesses() []Process {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil
	}
	var pids []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	var list []Process
	for _, pid := range pids {
		name := displayName(pid)
		if name == "" {
			continue
		}
		p := Process{PID: pid, Name: name}
		repo := repositoryPath(pid)
		if info, err := os.Stat(repo); err == nil && info.IsDir() {
			p.Repository = repo
		}
		list = append(list, p)
	}
	return list
}

// FindRepository resolves a process matcher — a numeric pid or a
// display-name suffix — to the matched process's recording repository.
// The first match in enumeration order wins.
func FindRepository(target string) (string, error) {
	for _, p := range ListProcesses() {
		if target != strconv.Itoa(p.PID) && !strings.HasSuffix(p.Name, target) {
			continue
		}
		if p.Repository == "" {
			return "", errors.New(errors.ErrResolve,
				fmt.Sprintf("Process %d (%s) has no recording repository", p.PID, p.Name),
				"Start the process with recording enabled")
		}
		return p.Repository, nil
	}
	return "", errors.New(errors.ErrResolve,
		"Could not open: "+target,
		"Pass a pid, process name, host:port, recording file, or 'self'")
}

// repositoryPath is where an instrumented process publishes its recording
// repository.
func repositoryPath(pid int) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("vitals-%d", pid))
}

// displayName reads a process's command line, falling back to its comm
// name for kernel threads and unreadable entries.
func displayName(pid int) string {
	cmdline, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err == nil && len(cmdline) > 0 {
		return strings.TrimSpace(strings.ReplaceAll(string(cmdline), "\x00", " "))
	}
	comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(comm))
}
