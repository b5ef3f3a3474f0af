package server

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"resumerank/internal/utils"
)

func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

// writeServerInfo prints the route table and the active protections
func (s *Server) writeServerInfo(out io.Writer) {
	base := strings.TrimSuffix(s.BasePath, "/")

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "Available endpoints:")
	for _, route := range []struct{ method, path, desc string }{
		{"GET", "/health", "Health check"},
		{"GET", base + "/status", "Model, circuit breaker and rate limit status"},
		{"POST", base + "/dashboard/extract-criteria", "Job description to criteria (field: file)"},
		{"POST", base + "/dashboard/score-resumes", "Resumes to CSV scores (fields: criteria, files)"},
	} {
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", route.method, route.path, route.desc)
	}
	_ = tw.Flush()

	if n := len(s.APIKeys); n > 0 {
		_, _ = fmt.Fprintf(out, "API authentication: ENABLED (%d keys, send X-API-Key)\n", n)
	} else {
		_, _ = fmt.Fprintln(out, "API authentication: DISABLED, dashboard endpoints are public")
	}

	if s.MaxRequestSize > 0 {
		_, _ = fmt.Fprintf(out, "Upload limit: %s per request, %d files per batch\n",
			utils.FormatFileSize(s.MaxRequestSize), s.MaxUploadFiles)
	} else {
		_, _ = fmt.Fprintln(out, "Upload limit: DISABLED")
	}

	if rl := s.RateLimit; rl != nil && rl.Enabled {
		var keys []string
		if rl.ByAPIKey {
			keys = append(keys, "api key")
		}
		if rl.ByIP {
			keys = append(keys, "ip")
		}
		_, _ = fmt.Fprintf(out, "Rate limiting: %d requests/min, burst %d, keyed by %s\n",
			rl.RequestsPerMin, rl.BurstCapacity, strings.Join(keys, ", "))
	} else {
		_, _ = fmt.Fprintln(out, "Rate limiting: DISABLED")
	}
}
