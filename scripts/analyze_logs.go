package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logLine struct {
	Level   string `json:"level"`
	Time    string `json:"time"`
	Message string `json:"message"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
}

type LogStats struct {
	Lines            int
	Unparsed         int
	TotalErrors      int
	Sweeps           int
	NewlyAbandoned   int
	Email2Sent       int
	Email3Sent       int
	Expired          int
	RemindersSent    int
	DispatchFailures int
	DiscountsApplied int
	DiscountsDenied  int
	CartsRecovered   int
	SkippedSnapshots int
	Requests         map[string]int
	ErrorPatterns    map[string]int
}

var sweepPattern = regexp.MustCompile(`newly_abandoned=(\d+) email2=(\d+) email3=(\d+) expired=(\d+)`)

func main() {
	logFile := flag.String("file", "./logs/app.log", "JSON log file written by the service")
	top := flag.Int("top", 5, "number of entries in ranked sections")
	flag.Parse()

	stats := &LogStats{
		Requests:      make(map[string]int),
		ErrorPatterns: make(map[string]int),
	}
	if err := analyze(*logFile, stats); err != nil {
		fmt.Printf("Error reading log file %s: %v\n", *logFile, err)
		os.Exit(1)
	}
	printReport(stats, *top)
}

func analyze(path string, stats *LogStats) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		stats.Lines++
		var line logLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			stats.Unparsed++
			continue
		}
		record(line, stats)
	}
	return scanner.Err()
}

func record(line logLine, stats *LogStats) {
	msg := line.Message

	if line.Message == "request" && line.Path != "" {
		stats.Requests[line.Path]++
		return
	}
	if line.Level == "error" {
		stats.TotalErrors++
		stats.ErrorPatterns[errorPattern(msg)]++
	}

	switch {
	case strings.HasPrefix(msg, "Abandoned cart sweep:"):
		stats.Sweeps++
		if m := sweepPattern.FindStringSubmatch(msg); m != nil {
			stats.NewlyAbandoned += atoi(m[1])
			stats.Email2Sent += atoi(m[2])
			stats.Email3Sent += atoi(m[3])
			stats.Expired += atoi(m[4])
		}
	case strings.HasPrefix(msg, "Sent reminder"):
		stats.RemindersSent++
	case strings.HasPrefix(msg, "Failed to dispatch reminder"):
		stats.DispatchFailures++
	case strings.HasPrefix(msg, "Discount code") && strings.Contains(msg, "applied to order"):
		stats.DiscountsApplied++
	case strings.HasPrefix(msg, "Discount code") && strings.Contains(msg, "rejected"):
		stats.DiscountsDenied++
	case strings.HasPrefix(msg, "Cart") && strings.Contains(msg, "recovered by order"):
		stats.CartsRecovered++
	case strings.HasPrefix(msg, "Skipping cart snapshot"):
		stats.SkippedSnapshots++
	}
}

// errorPattern drops the variable tail after the first colon.
func errorPattern(msg string) string {
	if i := strings.Index(msg, ":"); i > 0 {
		return strings.TrimSpace(msg[:i])
	}
	return msg
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func printReport(stats *LogStats, top int) {
	fmt.Println("\n=== Cart Recovery Log Report ===")
	fmt.Println("Generated:", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Printf("Lines read: %d (unparsed: %d)\n", stats.Lines, stats.Unparsed)

	fmt.Println("\n1. Sweeps:")
	fmt.Printf("   Runs: %d\n", stats.Sweeps)
	fmt.Printf("   Newly abandoned: %d\n", stats.NewlyAbandoned)
	fmt.Printf("   Second reminders: %d\n", stats.Email2Sent)
	fmt.Printf("   Third reminders: %d\n", stats.Email3Sent)
	fmt.Printf("   Expired: %d\n", stats.Expired)

	fmt.Println("\n2. Reminder Emails:")
	fmt.Printf("   Sent: %d\n", stats.RemindersSent)
	fmt.Printf("   Dispatch failures: %d\n", stats.DispatchFailures)

	fmt.Println("\n3. Discounts:")
	fmt.Printf("   Applied: %d\n", stats.DiscountsApplied)
	fmt.Printf("   Rejected: %d\n", stats.DiscountsDenied)
	fmt.Printf("   Carts recovered: %d\n", stats.CartsRecovered)
	fmt.Printf("   Snapshots skipped (bad user id): %d\n", stats.SkippedSnapshots)

	fmt.Println("\n4. Busiest Endpoints:")
	printTop(stats.Requests, top, "requests")

	fmt.Printf("\n5. Most Common Errors (total %d):\n", stats.TotalErrors)
	printTop(stats.ErrorPatterns, top, "occurrences")
}

func printTop(counts map[string]int, limit int, unit string) {
	type entry struct {
		key   string
		count int
	}

	var entries []entry
	for key, count := range counts {
		entries = append(entries, entry{key, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count == entries[j].count {
			return entries[i].key < entries[j].key
		}
		return entries[i].count > entries[j].count
	})

	for i, e := range entries {
		if i >= limit {
			break
		}
		fmt.Printf("   %s: %d %s\n", e.key, e.count, unit)
	}
}
