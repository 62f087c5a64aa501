package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTarget        = "target"
	KeyPlatform      = "platform"
	KeyConfiguration = "configuration"
	KeyModule        = "module"
	KeyBinary        = "binary"
	KeyPlugin        = "plugin"
	KeyStage         = "stage"
	KeyDurationMS    = "duration_ms"
	KeyPath          = "path"
	KeyCount         = "count"
	KeyBuildID       = "build_id"
	KeyExitCode      = "exit_code"
	KeyError         = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Target(name string) slog.Attr     { return slog.String(KeyTarget, name) }
func Platform(p string) slog.Attr      { return slog.String(KeyPlatform, p) }
func Configuration(c string) slog.Attr { return slog.String(KeyConfiguration, c) }
func Module(name string) slog.Attr     { return slog.String(KeyModule, name) }
func Binary(path string) slog.Attr     { return slog.String(KeyBinary, path) }
func Plugin(name string) slog.Attr     { return slog.String(KeyPlugin, name) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func ExitCode(code int) slog.Attr      { return slog.Int(KeyExitCode, code) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
