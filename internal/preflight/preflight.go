package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"airdate/internal/config"
	"airdate/internal/creds"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir),
		CheckDiskSpace("Data directory space", cfg.Paths.DataDir),
		CheckCredentials(cfg),
		CheckUploadEndpoint(ctx, cfg.YouTube.UploadURL),
	}
	return results
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
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
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// minFreeBytes is the low-water mark below which the queue database and
// log writes become risky.
const minFreeBytes = 256 << 20

// CheckDiskSpace verifies the filesystem backing the path has headroom left.
func CheckDiskSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (only %d MiB free)", path, free>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MiB free)", path, free>>20)}
}

// CheckCredentials verifies a usable upload credential is installed.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Upload credentials"
	status := creds.NewManager(cfg).Describe()
	if !status.Configured {
		return Result{Name: name, Detail: fmt.Sprintf("no usable token at %s", cfg.YouTube.TokenPath)}
	}
	detail := "token installed"
	if !status.Expiry.IsZero() {
		detail = fmt.Sprintf("token installed, access token expires %s", status.Expiry.Format(time.RFC3339))
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckUploadEndpoint verifies the upload host answers at all. Any HTTP
// response counts; an unauthenticated probe is expected to be rejected.
func CheckUploadEndpoint(ctx context.Context, uploadURL string) Result {
	const name = "Upload endpoint"
	url := strings.TrimSpace(uploadURL)
	if url == "" {
		return Result{Name: name, Detail: "missing upload url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("probe failed (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%d)", resp.StatusCode)}
}
