// Package rules holds the declaration types read from YAML files: target rules,
// module rules, plugin descriptors and the project descriptor, plus the enums
// shared by every stage of a build.
package rules
