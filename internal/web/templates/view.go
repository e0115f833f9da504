// Package templates holds the templ components of the web UI. The *_templ.go
// files are generated by `templ generate` from the .templ sources.
package templates

import (
	"strconv"
	"time"

	"github.com/AriZeto/data-engineering-test-ArielZeto/internal/core"
)

// IndexData is the view model of the upload page.
type IndexData struct {
	Runs           []core.Report
	HistoryEnabled bool
	KeyRequired    bool
	MaxFileSize    int64
}

func formatBytes(n int64) string {
	const mb = 1024 * 1024
	if n >= mb && n%mb == 0 {
		return strconv.FormatInt(n/mb, 10) + " MB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

func startedAt(r core.Report) string {
	return r.StartedAt.Format("2006-01-02 15:04:05")
}

func duration(r core.Report) string {
	return r.Duration.Round(time.Millisecond).String()
}

func runStatus(r core.Report) string {
	if r.Succeeded() {
		return "ok"
	}
	return "failed: " + r.Error
}
