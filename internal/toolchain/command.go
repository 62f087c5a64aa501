package toolchain

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"

	"git.home.luguber.info/inful/targetbuilder/internal/binaries"
	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

// Command runs a configured driver executable once per binary. Arguments
// may reference the variables of Variables; they are also exported to the
// driver's environment with a TB_ prefix.
type Command struct {
	products
	path   string
	args   []string
	logger *slog.Logger
}

// NewCommand returns a driver invoking path with args.
func NewCommand(p rules.Platform, path string, args []string) *Command {
	return &Command{products: newProducts(p), path: path, args: args, logger: slog.Default()}
}

// WithLogger replaces the driver's logger.
func (c *Command) WithLogger(l *slog.Logger) *Command {
	if l != nil {
		c.logger = l
	}
	return c
}

// BuildProducts implements Toolchain.
func (c *Command) BuildProducts(b *binaries.Binary) map[string]rules.BuildProductType {
	return c.list(b)
}

// SetupBundleDependencies implements Toolchain.
func (c *Command) SetupBundleDependencies(bs []*binaries.Binary, appName string) {
	c.setupBundles(bs, appName)
}

// Compile implements Toolchain. A started compile runs to completion; ctx
// only carries values, its cancellation is ignored.
func (c *Command) Compile(ctx context.Context, b *binaries.Binary, env Env) ([]string, error) {
	vars := Variables(b, env)
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = rules.ExpandVariables(a, vars)
	}

	cmd := exec.CommandContext(context.WithoutCancel(ctx), c.path, args...)
	cmd.Env = os.Environ()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Env = append(cmd.Env, "TB_"+strings.ToUpper(k)+"="+vars[k])
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("Invoking toolchain", logfields.Binary(b.PrimaryOutput()), slog.String("command", c.path))
	err := cmd.Run()
	if out := stdout.String(); out != "" {
		c.logger.Debug("toolchain stdout", logfields.Binary(b.PrimaryOutput()), "output", out)
	}
	if out := stderr.String(); out != "" {
		c.logger.Warn("toolchain stderr", logfields.Binary(b.PrimaryOutput()), "error_output", out)
	}
	if err != nil {
		builder := errors.WrapError(err, errors.CategoryExternal, fmt.Sprintf("compile %s", b.PrimaryOutput()))
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			builder = builder.WithExitCode(exitErr.ExitCode())
		}
		return nil, builder.Build()
	}

	produced := make([]string, 0)
	for path := range c.list(b) {
		produced = append(produced, path)
	}
	sort.Strings(produced)
	return produced, nil
}
