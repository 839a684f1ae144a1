// Package stats reads host figures for the stats endpoint: load average,
// memory-used percent, disk-used percent, and service uptime. Every field
// is best-effort and independently optional; this is a pass-through to OS
// queries, not business logic.
package stats

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

var startTime = time.Now()

// Host is the stats endpoint payload. Pointer fields are null in the JSON
// when the underlying query failed.
type Host struct {
	LoadAvg         *float64 `json:"loadavg"`
	MemUsedPercent  *float64 `json:"memUsedPercent"`
	DiskUsedPercent *float64 `json:"diskUsedPercent"`
	UptimeSeconds   int64    `json:"uptimeSeconds"`
	GOOS            string   `json:"os"`
}

// Collect gathers the current host stats.
func Collect(ctx context.Context) Host {
	h := Host{
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		GOOS:          runtime.GOOS,
	}
	h.LoadAvg = loadAvg(ctx)
	h.MemUsedPercent = memUsedPercent()
	h.DiskUsedPercent = diskUsedPercent(ctx)
	return h
}

func loadAvg(ctx context.Context) *float64 {
	switch runtime.GOOS {
	case "linux":
		data, err := os.ReadFile("/proc/loadavg")
		if err != nil {
			return nil
		}
		return ParseLoadAvg(string(data))
	case "darwin":
		out := runCmd(ctx, "sysctl", "-n", "vm.loadavg")
		// "{ 1.78 2.01 2.11 }"
		out = strings.Trim(out, "{} ")
		return ParseLoadAvg(out)
	}
	return nil
}

// ParseLoadAvg extracts the one-minute load from loadavg output.
func ParseLoadAvg(s string) *float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	return &v
}

func memUsedPercent() *float64 {
	if runtime.GOOS != "linux" {
		return nil
	}
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return nil
	}
	return ParseMemInfo(string(data))
}

// ParseMemInfo computes used-memory percent from /proc/meminfo content,
// using MemAvailable when present and MemFree otherwise.
func ParseMemInfo(s string) *float64 {
	var total, available, free float64
	for _, line := range strings.Split(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			total = v
		case "MemAvailable":
			available = v
		case "MemFree":
			free = v
		}
	}
	if total <= 0 {
		return nil
	}
	avail := available
	if avail == 0 {
		avail = free
	}
	pct := (total - avail) / total * 100
	return &pct
}

func diskUsedPercent(ctx context.Context) *float64 {
	out := runCmd(ctx, "df", "-P", "/")
	if out == "" {
		return nil
	}
	return ParseDFPercent(out)
}

// ParseDFPercent extracts the use percentage from `df -P` output.
func ParseDFPercent(s string) *float64 {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) < 2 {
		return nil
	}
	fields := strings.Fields(lines[1])
	if len(fields) < 5 {
		return nil
	}
	pctField := strings.TrimSuffix(fields[4], "%")
	v, err := strconv.ParseFloat(pctField, 64)
	if err != nil {
		return nil
	}
	return &v
}

func runCmd(ctx context.Context, name string, args ...string) string {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(out.String())
}
