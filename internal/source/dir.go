package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/hookmux/hookmux/internal/extension"
)

// DefaultPollInterval is how often Dir re-scans its root while watching.
const DefaultPollInterval = 2 * time.Second

// scanRetries bounds the transient-failure retries per watch poll.
const scanRetries = 3

// Dir is a package source over a directory of package directories, each
// containing a hookmux.yaml manifest. Invalid package directories are
// logged and skipped, never failing the whole scan.
type Dir struct {
	root     string
	interval time.Duration
	logger   *slog.Logger
}

// DirOption configures a Dir.
type DirOption func(*Dir)

// WithPollInterval sets the watch polling interval.
func WithPollInterval(interval time.Duration) DirOption {
	return func(d *Dir) { d.interval = interval }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DirOption {
	return func(d *Dir) { d.logger = logger }
}

// NewDir creates a directory package source rooted at root.
func NewDir(root string, opts ...DirOption) *Dir {
	d := &Dir{
		root:     root,
		interval: DefaultPollInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Find returns one snapshot of the packages under the root directory, in
// directory order.
func (d *Dir) Find(ctx context.Context) ([]extension.Package, error) {
	pkgs, _, err := d.scan(ctx)
	return pkgs, err
}

// Watch polls the root directory and invokes fn with the initial package
// list and again whenever the set of manifests changes. Transient scan
// failures are retried with fibonacci backoff; exhausting the retries is
// terminal. The returned stop function permanently ends the polling.
func (d *Dir) Watch(fn func(pkgs []extension.Package, err error)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	go d.poll(ctx, fn)
	return cancel
}

func (d *Dir) poll(ctx context.Context, fn func(pkgs []extension.Package, err error)) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	var last string
	seeded := false
	for {
		pkgs, print, err := d.scanWithRetry(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			fn(nil, err)
			return
		}
		if !seeded || print != last {
			seeded = true
			last = print
			fn(pkgs, nil)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// scanWithRetry retries transient scan failures before giving up.
func (d *Dir) scanWithRetry(ctx context.Context) ([]extension.Package, string, error) {
	var (
		pkgs  []extension.Package
		print string
	)
	backoff := retry.WithMaxRetries(scanRetries, retry.NewFibonacci(d.interval/4))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var scanErr error
		pkgs, print, scanErr = d.scan(ctx)
		if scanErr != nil {
			d.logger.Warn("package scan failed, retrying", "dir", d.root, "error", scanErr)
			return retry.RetryableError(scanErr)
		}
		return nil
	})
	return pkgs, print, err
}

// scan reads the root directory and builds the current package list plus a
// fingerprint of the manifest set, used to detect changes between polls.
func (d *Dir) scan(_ context.Context) ([]extension.Package, string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", nil // no packages directory yet
		}
		return nil, "", oops.Code("SOURCE_SCAN_FAILED").With("dir", d.root).Wrap(err)
	}

	var (
		pkgs   []extension.Package
		stamps []string
	)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		pkgDir := filepath.Join(d.root, entry.Name())
		manifestPath := filepath.Join(pkgDir, ManifestName)

		data, err := os.ReadFile(manifestPath) //nolint:gosec // manifestPath is constructed from ReadDir entries
		if err != nil {
			d.logger.Warn("skipping package without manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		if err := ValidateSchema(data); err != nil {
			d.logger.Warn("skipping package with malformed manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			d.logger.Warn("skipping package with invalid manifest",
				"dir", entry.Name(),
				"error", err)
			continue
		}

		info, err := os.Stat(manifestPath)
		if err != nil {
			continue
		}

		pkgs = append(pkgs, &dirPackage{
			id:       entry.Name(),
			dir:      pkgDir,
			manifest: manifest,
		})
		stamps = append(stamps, fmt.Sprintf("%s@%s:%d:%d",
			entry.Name(), manifest.Version, info.ModTime().UnixNano(), info.Size()))
	}

	return pkgs, strings.Join(stamps, ";"), nil
}

// dirPackage implements extension.Package for one package directory. Its
// loader reads the file named by a descriptor's entry field and returns the
// contents as a string.
type dirPackage struct {
	id       string
	dir      string
	manifest *Manifest
}

func (p *dirPackage) ID() string { return p.id }

func (p *dirPackage) Metadata() extension.Metadata {
	return extension.Metadata{
		ID:      p.id,
		Name:    p.manifest.Name,
		Author:  p.manifest.Author,
		Version: p.manifest.Version,
		Summary: p.manifest.Summary,
	}
}

func (p *dirPackage) Extensions() []extension.Descriptor {
	descs := make([]extension.Descriptor, 0, len(p.manifest.Extensions))
	for _, spec := range p.manifest.Extensions {
		descs = append(descs, extension.Descriptor{
			Hook:   spec.Hook,
			Name:   spec.Name,
			Fields: spec.Fields,
		})
	}
	return descs
}

func (p *dirPackage) Load(_ context.Context, desc extension.Descriptor) (any, error) {
	entry, ok := desc.Fields["entry"].(string)
	if !ok || entry == "" {
		return nil, oops.Code("ENTRY_MISSING").
			With("package", p.id).
			With("extension", desc.Name).
			Errorf("descriptor has no entry field")
	}
	if !filepath.IsLocal(entry) {
		return nil, oops.Code("ENTRY_INVALID").
			With("package", p.id).
			With("entry", entry).
			Errorf("entry must stay inside the package directory")
	}

	data, err := os.ReadFile(filepath.Join(p.dir, entry)) //nolint:gosec // entry is confined by IsLocal
	if err != nil {
		return nil, oops.Code("ENTRY_READ_FAILED").
			With("package", p.id).
			With("entry", entry).
			Wrap(err)
	}
	return string(data), nil
}
