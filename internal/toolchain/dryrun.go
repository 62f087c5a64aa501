package toolchain

import (
	"context"
	"log/slog"
	"sort"

	"git.home.luguber.info/inful/targetbuilder/internal/binaries"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

// DryRun reports the products of every binary without running anything.
type DryRun struct {
	products
	logger *slog.Logger
}

// NewDryRun returns a driver for platform p.
func NewDryRun(p rules.Platform) *DryRun {
	return &DryRun{products: newProducts(p), logger: slog.Default()}
}

// WithLogger replaces the driver's logger.
func (d *DryRun) WithLogger(l *slog.Logger) *DryRun {
	if l != nil {
		d.logger = l
	}
	return d
}

// BuildProducts implements Toolchain.
func (d *DryRun) BuildProducts(b *binaries.Binary) map[string]rules.BuildProductType {
	return d.list(b)
}

// SetupBundleDependencies implements Toolchain.
func (d *DryRun) SetupBundleDependencies(bs []*binaries.Binary, appName string) {
	d.setupBundles(bs, appName)
}

// Compile implements Toolchain.
func (d *DryRun) Compile(_ context.Context, b *binaries.Binary, _ Env) ([]string, error) {
	var out []string
	for path := range d.list(b) {
		out = append(out, path)
	}
	sort.Strings(out)
	d.logger.Info("Would compile binary",
		logfields.Binary(b.PrimaryOutput()),
		logfields.Count(len(b.Modules)))
	return out, nil
}
