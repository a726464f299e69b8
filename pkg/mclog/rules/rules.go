// Package rules provides declarative diagnostic processors.
// It allows users to describe error signatures and the guidance to show for
// them in YAML files, without writing Go code.
package rules

import "github.com/mclog/mclog-go/pkg/mclog"

// RuleFile represents the structure of a YAML rule file.
// Each file becomes one diagnostic processor; its rules are evaluated in
// declaration order.
//
// Example YAML file:
//
//	version: 1
//	id: server_startup
//	rules:
//	  - id: port_in_use
//	    title: Port Already In Use
//	    match: '\*\*\*\* FAILED TO BIND TO PORT!'
//	    summary: Another process is already listening on the server port.
//	    fixes:
//	      - Stop the other server or change server-port in server.properties
//	  - id: out_of_memory
//	    title: Out of Memory
//	    match: 'java\.lang\.OutOfMemoryError: (?P<kind>.+)'
//	    summary: 'The JVM ran out of memory (${kind}).'
type RuleFile struct {
	// Version is the rule file format version. Currently only version 1 is supported.
	Version int `yaml:"version"`

	// ID is the processor identifier. Defaults to "rules".
	ID string `yaml:"id,omitempty"`

	// Order positions the processor within the process stage.
	Order int `yaml:"order,omitempty"`

	// Rules is the list of rule definitions.
	Rules []Rule `yaml:"rules"`
}

// Rule describes one error signature and the diagnostic shown for it.
//
// Summary templates may reference capture groups of Match with $1 or
// ${name}, following regexp.Expand.
type Rule struct {
	// ID is a unique identifier for this rule. When the rule fires, the ID is
	// marked as a detection tag on the log.
	ID string `yaml:"id"`

	// Title is the bold header of the diagnostic.
	Title string `yaml:"title"`

	// Match is the outer regular expression that decides whether the rule
	// fires.
	Match string `yaml:"match"`

	Summary string   `yaml:"summary,omitempty"`
	Fixes   []string `yaml:"fixes,omitempty"`
	Example string   `yaml:"example,omitempty"`

	// Causes is an optional cascade of more specific explanations. The first
	// cause whose pattern matches replaces Summary, and Fixes and Example
	// when it declares them. When no cause matches, the rule's own text is
	// used.
	Causes []Cause `yaml:"causes,omitempty"`

	// Loader restricts the rule to logs whose detected loader equals this
	// value.
	Loader mclog.LoaderType `yaml:"loader,omitempty"`

	// Requires restricts the rule to logs where at least one of these
	// detection tags was already marked in this pass.
	Requires []string `yaml:"requires,omitempty"`

	// Advisory rules add their message without flagging a problem.
	Advisory bool `yaml:"advisory,omitempty"`
}

// Cause is one branch of a rule's explanation cascade. Its Summary may
// reference capture groups of its own Match.
type Cause struct {
	Match   string   `yaml:"match"`
	Summary string   `yaml:"summary"`
	Fixes   []string `yaml:"fixes,omitempty"`
	Example string   `yaml:"example,omitempty"`
}

// DefaultProcessorID is used when a rule file does not set an id.
const DefaultProcessorID = "rules"
