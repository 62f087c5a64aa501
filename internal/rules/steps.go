package rules

import "strings"

// CustomBuildSteps maps a host platform name to the shell commands to run on it.
type CustomBuildSteps map[string][]string

// HasHostPlatform reports whether any commands are declared for the host.
func (s CustomBuildSteps) HasHostPlatform(host Platform) bool {
	_, ok := s[string(host)]
	return ok
}

// Commands returns the host's commands with $(Name) variables expanded.
// Unknown variables are left in place.
func (s CustomBuildSteps) Commands(host Platform, vars map[string]string) ([]string, bool) {
	cmds, ok := s[string(host)]
	if !ok || len(cmds) == 0 {
		return nil, false
	}
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = ExpandVariables(c, vars)
	}
	return out, true
}

// ExpandVariables replaces $(Name) occurrences from vars.
func ExpandVariables(s string, vars map[string]string) string {
	if !strings.Contains(s, "$(") {
		return s
	}
	for k, v := range vars {
		s = strings.ReplaceAll(s, "$("+k+")", v)
	}
	return s
}
