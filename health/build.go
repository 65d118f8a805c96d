package health

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

type BuildInfo struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time"`
	GoVersion string    `json:"go_version"`
}

// loadBuildInfo reads BUILD_* environment variables, then lets a build.info
// file in the working directory override them.
func loadBuildInfo() *BuildInfo {
	info := &BuildInfo{
		Version:   envOrDefault("BUILD_VERSION", "dev"),
		GitCommit: envOrDefault("BUILD_COMMIT", "unknown"),
		GoVersion: runtime.Version(),
	}

	if buildTime, err := time.Parse(time.RFC3339, os.Getenv("BUILD_TIME")); err == nil {
		info.BuildTime = buildTime
	}

	if data, err := os.ReadFile("build.info"); err == nil {
		info.merge(parseBuildInfo(string(data)))
	}

	return info
}

func (b *BuildInfo) merge(other *BuildInfo) {
	if other.Version != "" {
		b.Version = other.Version
	}
	if other.GitCommit != "" {
		b.GitCommit = other.GitCommit
	}
	if !other.BuildTime.IsZero() {
		b.BuildTime = other.BuildTime
	}
}

func (b *BuildInfo) String() string {
	commit := b.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}

	if b.BuildTime.IsZero() {
		return fmt.Sprintf("%s-%s %s", b.Version, commit, b.GoVersion)
	}
	return fmt.Sprintf("%s-%s (%s) %s", b.Version, commit, b.BuildTime.Format("2006-01-02"), b.GoVersion)
}

func parseBuildInfo(content string) *BuildInfo {
	info := &BuildInfo{}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "VERSION":
			info.Version = value
		case "GIT_COMMIT":
			info.GitCommit = value
		case "BUILD_TIME":
			if buildTime, err := time.Parse(time.RFC3339, value); err == nil {
				info.BuildTime = buildTime
			}
		}
	}

	return info
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
