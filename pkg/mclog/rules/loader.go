package rules

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mclog/mclog-go/internal/safefile"
)

// sanitizePathError removes the path from os.PathError so error messages
// don't expose file system paths to users.
func sanitizePathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", pathErr.Op, pathErr.Err)
	}
	return err
}

const (
	// MaxRuleFileSize is the maximum allowed size for a rule file (1MB).
	MaxRuleFileSize = 1 * 1024 * 1024

	// MaxPatternLength is the maximum allowed length for a single regex
	// (512 bytes). Applies to rule and cause patterns alike.
	MaxPatternLength = 512

	// MaxRuleCount is the maximum number of rules allowed in a rule file.
	MaxRuleCount = 1000

	// SupportedVersion is the currently supported rule file format version.
	SupportedVersion = 1
)

// Load reads and parses a rule file from the given path.
// Only regular files are accepted; symlinks, FIFOs and devices are rejected.
//
// Example:
//
//	rf, err := rules.Load("rules.yaml")
//	if err != nil {
//	    log.Fatalf("failed to load rule file: %v", err)
//	}
func Load(path string) (*RuleFile, error) {
	data, err := safefile.ReadRegular(path, MaxRuleFileSize)
	if err != nil {
		if errors.Is(err, safefile.ErrNotRegularFile) {
			return nil, errors.New("rule file must be a regular file (not FIFO, device, or special file)")
		}
		if errors.Is(err, safefile.ErrTooLarge) {
			return nil, fmt.Errorf("rule file too large (max %d bytes)", MaxRuleFileSize)
		}
		return nil, fmt.Errorf("failed to read rule file: %w", sanitizePathError(err))
	}
	return LoadBytes(data)
}

// LoadBytes parses a rule file from a byte slice.
func LoadBytes(data []byte) (*RuleFile, error) {
	if len(data) == 0 {
		return nil, errors.New("rule file is empty")
	}
	if len(data) > MaxRuleFileSize {
		return nil, fmt.Errorf("rule file too large: %d bytes (max %d)", len(data), MaxRuleFileSize)
	}

	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := rf.Validate(); err != nil {
		return nil, err
	}

	return &rf, nil
}

// Validate performs schema-level validation on the rule file.
// It checks for:
//   - Supported version number
//   - Between one and MaxRuleCount rules
//   - Required fields (id, title, match; match and summary on causes)
//   - Unique rule IDs
//   - Pattern length limits
//
// Regular expressions are compiled by NewProcessor, not here.
func (rf *RuleFile) Validate() error {
	if rf.Version != SupportedVersion {
		return &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (only version %d is supported)", rf.Version, SupportedVersion),
		}
	}

	if len(rf.Rules) == 0 {
		return &ValidationError{
			Field:   "rules",
			Message: "at least one rule is required",
		}
	}

	if len(rf.Rules) > MaxRuleCount {
		return &ValidationError{
			Field:   "rules",
			Message: fmt.Sprintf("too many rules (%d), maximum allowed is %d", len(rf.Rules), MaxRuleCount),
		}
	}

	seenIDs := make(map[string]int, len(rf.Rules))

	for i, r := range rf.Rules {
		if r.ID == "" {
			return &RuleError{Index: i, Field: "id", Message: "id is required"}
		}
		if r.Title == "" {
			return &RuleError{Index: i, ID: r.ID, Field: "title", Message: "title is required"}
		}
		if r.Match == "" {
			return &RuleError{Index: i, ID: r.ID, Field: "match", Message: "match is required"}
		}

		if prevIndex, exists := seenIDs[r.ID]; exists {
			return &RuleError{
				Index:   i,
				ID:      r.ID,
				Field:   "id",
				Message: fmt.Sprintf("duplicate id (previously defined at rule[%d])", prevIndex),
			}
		}
		seenIDs[r.ID] = i

		if len(r.Match) > MaxPatternLength {
			return &RuleError{
				Index:   i,
				ID:      r.ID,
				Field:   "match",
				Message: fmt.Sprintf("pattern too long: %d bytes (max %d)", len(r.Match), MaxPatternLength),
			}
		}

		for j, c := range r.Causes {
			field := fmt.Sprintf("causes[%d]", j)
			if c.Match == "" {
				return &RuleError{Index: i, ID: r.ID, Field: field + ".match", Message: "match is required"}
			}
			if c.Summary == "" {
				return &RuleError{Index: i, ID: r.ID, Field: field + ".summary", Message: "summary is required"}
			}
			if len(c.Match) > MaxPatternLength {
				return &RuleError{
					Index:   i,
					ID:      r.ID,
					Field:   field + ".match",
					Message: fmt.Sprintf("pattern too long: %d bytes (max %d)", len(c.Match), MaxPatternLength),
				}
			}
		}
	}

	return nil
}
