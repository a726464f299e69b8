package rules

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mclog/mclog-go/pkg/mclog"
)

// Processor is a diagnostic processor driven by a RuleFile.
//
// Rules are evaluated in declaration order against the whole log content.
// Every rule that matches adds one message, so a log may trigger several
// rules. Processor is immutable after construction and safe for concurrent
// use by multiple goroutines.
type Processor struct {
	id    string
	order mclog.Order
	rules []*compiledRule
}

type compiledRule struct {
	id       string
	title    string
	re       *regexp.Regexp
	summary  string
	fixes    []string
	example  string
	causes   []compiledCause
	loader   mclog.LoaderType
	requires []string
	advisory bool
}

type compiledCause struct {
	re      *regexp.Regexp
	summary string
	fixes   []string
	example string
}

// NewProcessor compiles every regular expression of rf.
// It returns a *RuleError for the first pattern that fails to compile.
//
// Example:
//
//	rf, err := rules.Load("rules.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	proc, err := rules.NewProcessor(rf)
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewProcessor(rf *RuleFile) (*Processor, error) {
	if rf == nil {
		return nil, errors.New("rule file is nil")
	}

	id := rf.ID
	if id == "" {
		id = DefaultProcessorID
	}

	compiled := make([]*compiledRule, 0, len(rf.Rules))
	for i, r := range rf.Rules {
		re, err := regexp.Compile(r.Match)
		if err != nil {
			return nil, &RuleError{
				Index:   i,
				ID:      r.ID,
				Field:   "match",
				Message: fmt.Sprintf("invalid regular expression: %v", err),
				Cause:   err,
			}
		}

		cr := &compiledRule{
			id:       r.ID,
			title:    r.Title,
			re:       re,
			summary:  r.Summary,
			fixes:    r.Fixes,
			example:  r.Example,
			loader:   r.Loader,
			requires: r.Requires,
			advisory: r.Advisory,
		}

		for j, c := range r.Causes {
			cre, err := regexp.Compile(c.Match)
			if err != nil {
				return nil, &RuleError{
					Index:   i,
					ID:      r.ID,
					Field:   fmt.Sprintf("causes[%d].match", j),
					Message: fmt.Sprintf("invalid regular expression: %v", err),
					Cause:   err,
				}
			}
			cr.causes = append(cr.causes, compiledCause{
				re:      cre,
				summary: c.Summary,
				fixes:   c.Fixes,
				example: c.Example,
			})
		}

		compiled = append(compiled, cr)
	}

	return &Processor{id: id, order: mclog.Order(rf.Order), rules: compiled}, nil
}

// NewProcessorFromFile loads a rule file and creates a Processor in one step.
func NewProcessorFromFile(path string) (*Processor, error) {
	rf, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewProcessor(rf)
}

// Identifier implements mclog.Processor.
func (p *Processor) Identifier() string { return p.id }

// Order implements mclog.Processor.
func (p *Processor) Order() mclog.Order { return p.order }

// Len returns the number of rules.
func (p *Processor) Len() int { return len(p.rules) }

// Process implements mclog.Processor.
func (p *Processor) Process(ctx context.Context, lg *mclog.Log) error {
	content := lg.Content()
	for _, r := range p.rules {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.applies(lg) {
			continue
		}

		loc := r.re.FindStringSubmatchIndex(content)
		if loc == nil {
			continue
		}

		d := r.diagnostic(content, loc)
		if r.advisory {
			lg.AddMessage(d.String())
		} else {
			lg.AddProblem(d)
		}
		lg.MarkDetected(r.id)
	}
	return nil
}

// applies reports whether the rule's loader and requires conditions hold.
func (r *compiledRule) applies(lg *mclog.Log) bool {
	if r.loader != "" {
		lv, ok := lg.Loader()
		if !ok || lv.Loader != r.loader {
			return false
		}
	}
	if len(r.requires) == 0 {
		return true
	}
	for _, tag := range r.requires {
		if lg.Detected(tag) {
			return true
		}
	}
	return false
}

func (r *compiledRule) diagnostic(content string, loc []int) mclog.Diagnostic {
	d := mclog.Diagnostic{
		Title:   r.title,
		Summary: expand(r.re, r.summary, content, loc),
		Fixes:   r.fixes,
		Example: r.example,
	}

	for _, c := range r.causes {
		cloc := c.re.FindStringSubmatchIndex(content)
		if cloc == nil {
			continue
		}
		d.Summary = expand(c.re, c.summary, content, cloc)
		if len(c.fixes) > 0 {
			d.Fixes = c.fixes
		}
		if c.example != "" {
			d.Example = c.example
		}
		break
	}

	d.FixHeading = len(d.Fixes) > 0
	return d
}

func expand(re *regexp.Regexp, template, content string, loc []int) string {
	if template == "" {
		return ""
	}
	return string(re.ExpandString(nil, template, content, loc))
}

var _ mclog.Processor = (*Processor)(nil)
