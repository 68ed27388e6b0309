package core

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"
)

// SystemStatus は状態確認エンドポイント向けの集約ステータス。
type SystemStatus struct {
	Auth struct {
		Authenticated bool   `json:"authenticated"`
		Username      string `json:"username,omitempty"`
		Observers     int    `json:"observers"`
	} `json:"auth"`
	Presence struct {
		Online int `json:"online"`
	} `json:"presence"`
	Memory struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectSystemStatus で現在のステータスを集約する。presence は nil 可
// (デモ構成では Redis を使わない)。
func CollectSystemStatus(ctx context.Context, state *AuthState, presence *PresenceStore, startedAt time.Time) (SystemStatus, error) {
	var st SystemStatus

	if state != nil {
		username, ok := state.CurrentUser()
		st.Auth.Authenticated = ok
		if ok {
			st.Auth.Username = username
		}
		st.Auth.Observers = state.ObserverCount()
	}

	if presence != nil {
		online, _ := presence.Online(ctx) // ignore error to keep best-effort
		st.Presence.Online = len(online)
	}

	// Memory (best-effort from /proc/meminfo)
	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}

	return st, nil
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		// convert KiB -> bytes
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
