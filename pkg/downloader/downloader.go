// Package downloader installs and updates the blocksecops CLI from its
// GitHub releases, so editor plugins can bootstrap the scanner without
// asking the user to install it by hand.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"

	"github.com/blocksecops/editor-sdk/pkg/core"
	sdkerrors "github.com/blocksecops/editor-sdk/pkg/errors"
)

// Default release repository for the CLI.
const (
	DefaultOwner = "blocksecops"
	DefaultRepo  = "blocksecops-cli"

	// BinaryName is the installed executable name (".exe" appended on
	// Windows).
	BinaryName = "blocksecops"

	// versionMarker records the installed release tag next to the binary.
	versionMarker = ".version"
)

// Downloader fetches CLI releases from GitHub.
type Downloader struct {
	owner      string
	repo       string
	installDir string
	client     *github.Client
	httpClient *http.Client
	logger     core.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithToken authenticates GitHub API calls, raising the rate limit and
// allowing private release repositories.
func WithToken(token string) Option {
	return func(d *Downloader) {
		if token == "" {
			return
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		d.client = github.NewClient(oauth2.NewClient(context.Background(), ts))
	}
}

// WithRepo overrides the release repository.
func WithRepo(owner, repo string) Option {
	return func(d *Downloader) {
		d.owner = owner
		d.repo = repo
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// WithHTTPClient overrides the client used for asset downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) {
		d.httpClient = c
	}
}

// New creates a Downloader that installs into installDir.
func New(installDir string, opts ...Option) *Downloader {
	d := &Downloader{
		owner:      DefaultOwner,
		repo:       DefaultRepo,
		installDir: installDir,
		client:     github.NewClient(nil),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = core.LoggerOrNop(d.logger)
	return d
}

// BinaryPath returns where the installed binary lives.
func (d *Downloader) BinaryPath() string {
	return filepath.Join(d.installDir, binaryFileName(runtime.GOOS))
}

// InstalledVersion returns the release tag recorded by the last install,
// or "" when nothing is installed.
func (d *Downloader) InstalledVersion() string {
	data, err := os.ReadFile(filepath.Join(d.installDir, versionMarker))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// LatestVersion returns the tag of the latest published release.
func (d *Downloader) LatestVersion(ctx context.Context) (string, error) {
	release, _, err := d.client.Repositories.GetLatestRelease(ctx, d.owner, d.repo)
	if err != nil {
		return "", sdkerrors.E(sdkerrors.KindNetwork, "downloader.LatestVersion", err)
	}
	return release.GetTagName(), nil
}

// EnsureLatest installs or updates the CLI and returns the binary path.
// When the installed version already matches the latest release, nothing
// is downloaded.
func (d *Downloader) EnsureLatest(ctx context.Context) (string, error) {
	const op = "downloader.EnsureLatest"

	release, _, err := d.client.Repositories.GetLatestRelease(ctx, d.owner, d.repo)
	if err != nil {
		return "", sdkerrors.E(sdkerrors.KindNetwork, op, err)
	}

	tag := release.GetTagName()
	binPath := d.BinaryPath()
	if installed := d.InstalledVersion(); installed == tag {
		if _, err := os.Stat(binPath); err == nil {
			d.logger.Debug("cli %s already installed at %s", tag, binPath)
			return binPath, nil
		}
	}

	wantName := AssetName(runtime.GOOS, runtime.GOARCH)
	asset := SelectAsset(release.Assets, wantName)
	if asset == nil {
		return "", sdkerrors.E(sdkerrors.KindNetwork, op,
			fmt.Sprintf("release %s has no asset %q", tag, wantName))
	}

	d.logger.Info("downloading %s %s (%s)", BinaryName, tag, wantName)
	if err := d.download(ctx, asset.GetBrowserDownloadURL(), binPath); err != nil {
		return "", sdkerrors.E(sdkerrors.KindNetwork, op, err)
	}

	marker := filepath.Join(d.installDir, versionMarker)
	if err := os.WriteFile(marker, []byte(tag+"\n"), 0644); err != nil {
		return "", sdkerrors.E(sdkerrors.KindInternal, op, err)
	}

	return binPath, nil
}

// download fetches url into dest atomically: a temp file in the install
// directory followed by a rename.
func (d *Downloader) download(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(d.installDir, 0755); err != nil {
		return fmt.Errorf("create install directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(d.installDir, BinaryName+".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0755); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dest)
}

// AssetName returns the release asset name for a platform, matching the
// CLI's release naming convention.
func AssetName(goos, goarch string) string {
	name := fmt.Sprintf("%s-%s-%s", BinaryName, goos, goarch)
	if goos == "windows" {
		name += ".exe"
	}
	return name
}

// SelectAsset finds the named asset in a release, or nil.
func SelectAsset(assets []*github.ReleaseAsset, name string) *github.ReleaseAsset {
	for _, asset := range assets {
		if asset.GetName() == name {
			return asset
		}
	}
	return nil
}

func binaryFileName(goos string) string {
	if goos == "windows" {
		return BinaryName + ".exe"
	}
	return BinaryName
}
