// Package update checks GitHub for a newer nestdump release.
package update

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/pthm/nestdump/internal/version"
)

const (
	// ReleasesURL is the GitHub API endpoint for the latest release.
	ReleasesURL = "https://api.github.com/repos/pthm/nestdump/releases/latest"

	cacheTTL  = 24 * time.Hour
	cacheFile = "update-check.json"
)

// Info contains update check results
type Info struct {
	LatestVersion   string    `json:"latest_version"`
	CurrentVersion  string    `json:"current_version"`
	ReleaseURL      string    `json:"release_url"`
	CheckedAt       time.Time `json:"checked_at"`
	UpdateAvailable bool      `json:"update_available"`
}

// githubRelease represents the GitHub API response
type githubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Checker fetches the latest release, caching the answer for a day.
type Checker struct {
	URL      string
	Client   *http.Client
	CacheDir string // empty disables the cache
	Now      func() time.Time
}

// NewChecker returns a Checker for the nestdump releases, cached under the
// user cache directory.
func NewChecker() *Checker {
	dir, err := cacheDir()
	if err != nil {
		dir = ""
	}
	return &Checker{
		URL:      ReleasesURL,
		Client:   &http.Client{Timeout: 5 * time.Second},
		CacheDir: dir,
		Now:      time.Now,
	}
}

// Check compares the running version with the latest release, using the
// cache when it is younger than a day.
func (c *Checker) Check(ctx context.Context) (*Info, error) {
	current := version.Short()

	if info, err := c.loadCache(); err == nil && c.Now().Sub(info.CheckedAt) < cacheTTL {
		info.CurrentVersion = current
		info.UpdateAvailable = compareVersions(current, info.LatestVersion) < 0
		return info, nil
	}

	info, err := c.fetch(ctx, current)
	if err != nil {
		return nil, err
	}

	// Cache failures only cost a refetch.
	_ = c.saveCache(info)
	return info, nil
}

func (c *Checker) fetch(ctx context.Context, current string) (*Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "nestdump/"+current)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	return &Info{
		LatestVersion:   latest,
		CurrentVersion:  current,
		ReleaseURL:      release.HTMLURL,
		CheckedAt:       c.Now(),
		UpdateAvailable: compareVersions(current, latest) < 0,
	}, nil
}

// cacheDir returns the cache directory path
func cacheDir() (string, error) {
	// Use XDG_CACHE_HOME if set, otherwise ~/.cache
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, "nestdump"), nil
}

func (c *Checker) loadCache() (*Info, error) {
	if c.CacheDir == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(filepath.Join(c.CacheDir, cacheFile))
	if err != nil {
		return nil, err
	}

	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Checker) saveCache(info *Info) error {
	if c.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.CacheDir, cacheFile), data, 0o644)
}

// compareVersions compares two semver strings
// Returns -1 if a < b, 0 if a == b, 1 if a > b
func compareVersions(a, b string) int {
	a = strings.TrimPrefix(a, "v")
	b = strings.TrimPrefix(b, "v")

	// dev builds are always "latest"
	if a == "dev" {
		return 1
	}
	if b == "dev" {
		return -1
	}

	partsA := strings.Split(a, ".")
	partsB := strings.Split(b, ".")

	for i := 0; i < max(len(partsA), len(partsB)); i++ {
		numA, numB := versionPart(partsA, i), versionPart(partsB, i)
		if numA < numB {
			return -1
		}
		if numA > numB {
			return 1
		}
	}
	return 0
}

// versionPart returns the numeric value of parts[i], ignoring pre-release
// suffixes like "-beta".
func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, _ := strconv.Atoi(strings.SplitN(parts[i], "-", 2)[0])
	return n
}
