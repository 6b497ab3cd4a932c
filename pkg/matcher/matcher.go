// Package matcher classifies journal messages against a fixed set of
// precompiled patterns.
//
// Classification tests the patterns in a fixed priority order so that a
// message matching more than one pattern always gets the same Kind:
//
//	version, comment, abort, complete, start
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dfandrich/testclutch-curl-web/pkg/constants"
	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
)

var matcherLog = logger.New("matcher:matcher")

// Kind is the role of a message in a job session.
type Kind int

const (
	KindOther Kind = iota
	KindStart
	KindVersion
	KindComment
	KindAbort
	KindComplete
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindVersion:
		return "version"
	case KindComment:
		return "comment"
	case KindAbort:
		return "abort"
	case KindComplete:
		return "complete"
	default:
		return "other"
	}
}

// Terminal reports whether k ends a session.
func (k Kind) Terminal() bool {
	return k == KindAbort || k == KindComplete
}

// Patterns holds the regular expression sources, one per message role.
// PRAnalysis does not select messages; it marks terminal messages that
// belong to the PR analysis job rather than the daily update.
type Patterns struct {
	Start      string `yaml:"start,omitempty" json:"start,omitempty"`
	Complete   string `yaml:"complete,omitempty" json:"complete,omitempty"`
	Abort      string `yaml:"abort,omitempty" json:"abort,omitempty"`
	PRAnalysis string `yaml:"pr_analysis,omitempty" json:"pr_analysis,omitempty"`
	Version    string `yaml:"version,omitempty" json:"version,omitempty"`
	Comment    string `yaml:"comment,omitempty" json:"comment,omitempty"`
}

// DefaultPatterns returns the patterns for the Test Clutch job messages.
func DefaultPatterns() Patterns {
	return Patterns{
		Start:      constants.DefaultStartPattern,
		Complete:   constants.DefaultCompletePattern,
		Abort:      constants.DefaultAbortPattern,
		PRAnalysis: constants.DefaultPRAnalysisPattern,
		Version:    constants.DefaultVersionPattern,
		Comment:    constants.DefaultCommentPattern,
	}
}

// WithDefaults fills every empty pattern from DefaultPatterns.
func (p Patterns) WithDefaults() Patterns {
	d := DefaultPatterns()
	if p.Start == "" {
		p.Start = d.Start
	}
	if p.Complete == "" {
		p.Complete = d.Complete
	}
	if p.Abort == "" {
		p.Abort = d.Abort
	}
	if p.PRAnalysis == "" {
		p.PRAnalysis = d.PRAnalysis
	}
	if p.Version == "" {
		p.Version = d.Version
	}
	if p.Comment == "" {
		p.Comment = d.Comment
	}
	return p
}

type rule struct {
	kind Kind
	re   *regexp.Regexp
}

// Set is a compiled Patterns. It is immutable and safe for concurrent use.
type Set struct {
	rules      []rule
	prAnalysis *regexp.Regexp
	extract    *regexp.Regexp
}

// Compile compiles every pattern and the combined extraction expression.
func Compile(p Patterns) (*Set, error) {
	ordered := []struct {
		name string
		kind Kind
		src  string
	}{
		{"version", KindVersion, p.Version},
		{"comment", KindComment, p.Comment},
		{"abort", KindAbort, p.Abort},
		{"complete", KindComplete, p.Complete},
		{"start", KindStart, p.Start},
	}

	s := &Set{}
	alternatives := make([]string, 0, len(ordered))
	for _, o := range ordered {
		if o.src == "" {
			return nil, fmt.Errorf("%s pattern is empty", o.name)
		}
		re, err := regexp.Compile(o.src)
		if err != nil {
			return nil, fmt.Errorf("%s pattern: %w", o.name, err)
		}
		s.rules = append(s.rules, rule{kind: o.kind, re: re})
		alternatives = append(alternatives, "("+o.src+")")
	}

	pr, err := regexp.Compile(p.PRAnalysis)
	if err != nil {
		return nil, fmt.Errorf("pr_analysis pattern: %w", err)
	}
	s.prAnalysis = pr

	// journalctl runs this same expression, so keep it to the syntax shared
	// by RE2 and PCRE2.
	extract, err := regexp.Compile(strings.Join(alternatives, "|"))
	if err != nil {
		return nil, fmt.Errorf("combined pattern: %w", err)
	}
	s.extract = extract
	matcherLog.Printf("Compiled pattern set: extract=%s", extract)
	return s, nil
}

// MustCompile is like Compile but panics on error. For defaults and tests.
func MustCompile(p Patterns) *Set {
	s, err := Compile(p)
	if err != nil {
		panic("matcher: " + err.Error())
	}
	return s
}

// Classify returns the first Kind, in priority order, whose pattern matches msg.
func (s *Set) Classify(msg string) Kind {
	for _, r := range s.rules {
		if r.re.MatchString(msg) {
			return r.kind
		}
	}
	return KindOther
}

// IsPRAnalysis reports whether msg belongs to the PR analysis job.
func (s *Set) IsPRAnalysis(msg string) bool {
	return s.prAnalysis.MatchString(msg)
}

// Relevant reports whether msg matches any selecting pattern, which is the
// filter journalctl applies with the extraction expression.
func (s *Set) Relevant(msg string) bool {
	return s.extract.MatchString(msg)
}

// ExtractPattern returns the combined expression passed to the exporter.
func (s *Set) ExtractPattern() string {
	return s.extract.String()
}

// VersionToken returns the second whitespace-delimited word of msg, the
// version tag in a version message, or "" when there is none.
func VersionToken(msg string) string {
	fields := strings.Fields(msg)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}
