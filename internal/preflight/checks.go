package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"photowall/internal/config"
	"photowall/internal/faults"
	"photowall/internal/logging"
	"photowall/internal/rotation"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckPhotoSource draws one candidate from the configured rotation source to
// confirm the photo directory holds at least one image.
func CheckPhotoSource(cfg *config.Config) Result {
	const name = "Photo library"
	source, err := rotation.FromConfig(cfg, logging.NewNop())
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	path, err := source.Next()
	if err != nil {
		if errors.Is(err, faults.ErrSourceExhausted) {
			return Result{Name: name, Detail: "no images found"}
		}
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "found " + path}
}

// CheckBindAddress validates a host:port listen address without binding it.
func CheckBindAddress(bind string) Result {
	const name = "Metrics listener"
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", bind, err)}
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: invalid port)", bind)}
	}
	if host != "" && host != "localhost" && net.ParseIP(host) == nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: invalid host)", bind)}
	}
	return Result{Name: name, Passed: true, Detail: bind}
}

// CheckMetricsEndpoint probes the running daemon's health endpoint.
func CheckMetricsEndpoint(ctx context.Context, bind string) Result {
	const name = "Metrics endpoint"

	bind = strings.TrimSpace(bind)
	if bind == "" {
		return Result{Name: name, Passed: true, Optional: true, Detail: "Disabled"}
	}
	base := bind
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, strings.TrimRight(base, "/")+"/healthz", nil)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("probe failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: summarizeProbeError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("unhealthy (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: "Reachable"}
}

func summarizeProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out"
	}
	return "not reachable (daemon stopped?)"
}
