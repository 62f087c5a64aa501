// Package git derives a version marker from the engine's git checkout when
// no Build.version file exists.
package git
