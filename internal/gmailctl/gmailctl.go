package gmailctl

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoRules is returned when no exported filter applies the requested label.
var ErrNoRules = errors.New("no gmailctl filter applies label")

// Export is the Atom feed written by `gmailctl export`, the same format
// Gmail's filter import accepts.
type Export struct {
	Filters []Filter `xml:"entry"`
}

// Filter is one exported Gmail filter, a flat list of name/value properties.
type Filter struct {
	Properties []Property `xml:"property"`
}

// Property is an apps:property element.
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// Get returns the value of the named property, or "".
func (f Filter) Get(name string) string {
	for _, p := range f.Properties {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

// Query renders the filter's match criteria as a Gmail search query.
func (f Filter) Query() string {
	var parts []string
	add := func(prefix, v string) {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, prefix+"("+v+")")
		}
	}
	add("from:", f.Get("from"))
	add("to:", f.Get("to"))
	add("subject:", f.Get("subject"))
	add("", f.Get("hasTheWord"))
	add("-", f.Get("doesNotHaveTheWord"))
	return strings.Join(parts, " ")
}

// ParseExport decodes the output of `gmailctl export`.
func ParseExport(b []byte) (Export, error) {
	var export Export
	if err := xml.Unmarshal(b, &export); err != nil {
		return Export{}, fmt.Errorf("decode gmailctl export: %w", err)
	}
	if len(export.Filters) == 0 {
		return Export{}, errors.New("gmailctl export contains no filters")
	}
	return export, nil
}

// QueryForLabel ORs together the criteria of every filter that applies
// label, so the result selects what those rules would have labeled.
func (e Export) QueryForLabel(label string) (string, error) {
	var queries []string
	for _, f := range e.Filters {
		if !strings.EqualFold(f.Get("label"), label) {
			continue
		}
		if q := f.Query(); q != "" {
			queries = append(queries, q)
		}
	}
	switch len(queries) {
	case 0:
		return "", fmt.Errorf("%w %q", ErrNoRules, label)
	case 1:
		return queries[0], nil
	default:
		return "{(" + strings.Join(queries, ") (") + ")}", nil
	}
}

// Runner shells out to the gmailctl binary.
type Runner struct {
	Binary    string
	ConfigDir string
}

// ExportFilters invokes `gmailctl export` and parses the feed.
func (r Runner) ExportFilters(ctx context.Context) (Export, error) {
	bin := r.Binary
	if bin == "" {
		bin = "gmailctl"
	}
	var args []string
	if strings.TrimSpace(r.ConfigDir) != "" {
		args = append(args, "--config", r.ConfigDir)
	}
	args = append(args, "export")
	cmd := exec.CommandContext(ctx, bin, args...) // #nosec G204 - binary determined by user input
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return Export{}, fmt.Errorf(
			"run gmailctl: %w (output: %s)",
			err,
			strings.TrimSpace(stderr.String()),
		)
	}
	return ParseExport(out)
}

// QueryForLabel exports the current filters and compiles the ones that
// apply label into a single search query.
func (r Runner) QueryForLabel(ctx context.Context, label string) (string, error) {
	export, err := r.ExportFilters(ctx)
	if err != nil {
		return "", err
	}
	return export.QueryForLabel(label)
}
