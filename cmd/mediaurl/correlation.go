package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
)

var (
	correlationIDValue   atomic.Value
	metricsTextfileValue atomic.Value
)

func init() {
	correlationIDValue.Store("")
	metricsTextfileValue.Store("")
}

// newCorrelationID derives a stable id from the argument vector so identical
// invocations can be joined across logs and JSON output.
func newCorrelationID(arguments []string) string {
	if len(arguments) == 0 {
		return "000000000000000000000000"
	}
	normalized := make([]string, 0, len(arguments))
	for _, arg := range arguments {
		normalized = append(normalized, strings.TrimSpace(arg))
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "\x1f")))
	return hex.EncodeToString(sum[:12])
}

func setCurrentCorrelationID(correlationID string) {
	correlationIDValue.Store(strings.TrimSpace(correlationID))
}

func currentCorrelationID() string {
	value, _ := correlationIDValue.Load().(string)
	return strings.TrimSpace(value)
}

func setMetricsTextfile(path string) {
	metricsTextfileValue.Store(strings.TrimSpace(path))
}

func currentMetricsTextfile() string {
	value, _ := metricsTextfileValue.Load().(string)
	return value
}

func writeExplain(text string) int {
	fmt.Println(text)
	return exitOK
}
