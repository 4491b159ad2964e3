// Package packet turns statsd-style packets into structured metric events.
//
// A packet is a sequence of newline-separated event-strings of the form
// name:value|type. Parsing never touches the value: it is carried over verbatim.
package packet

import (
	"strings"
)

// Split returns event-strings contained in the packet.
// Internal empty lines are kept as empty strings.
func Split(data []byte) []string {
	trimmed := strings.TrimSpace(string(data))

	if trimmed == "" {
		return []string{}
	}

	lines := strings.Split(trimmed, "\n")

	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return lines
}

// Parser extracts event fields from event-strings
type Parser struct {
	parseNamespace    bool
	tagWithEventParts bool
	tags              []string
	ttl               float64
}

// NewParser builds a parser from config
func NewParser(c *Config) *Parser {
	tags := make([]string, len(c.Tags))
	copy(tags, c.Tags)

	return &Parser{
		parseNamespace:    c.ParseNamespace,
		tagWithEventParts: c.TagWithEventParts,
		tags:              tags,
		ttl:               c.TTL,
	}
}

// Parse builds an Event from the event-string
func (p *Parser) Parse(str string) (*Event, error) {
	metric, err := p.Metric(str)

	if err != nil {
		return nil, err
	}

	return &Event{
		Service:     p.Service(str),
		State:       StateOK,
		Description: p.Description(str),
		Tags:        p.Tags(str),
		Metric:      metric,
		TTL:         p.ttl,
	}, nil
}

// Service returns the first namespace segment when namespace parsing is on,
// and the whole metric name otherwise
func (p *Parser) Service(str string) string {
	if p.parseNamespace {
		return before(str, ".")
	}

	return name(str)
}

// Description returns the metric name without its first namespace segment
// when namespace parsing is on, and the whole metric name otherwise
func (p *Parser) Description(str string) string {
	if p.parseNamespace {
		_, rest, found := strings.Cut(str, ".")

		if !found {
			return ""
		}

		return name(rest)
	}

	return name(str)
}

// Metric returns the value part of the event-string
func (p *Parser) Metric(str string) (string, error) {
	fields := strings.SplitN(str, ":", 3)

	if len(fields) < 2 {
		return "", ErrMalformed.New("missing ':' in %q", str)
	}

	if fields[0] == "" {
		return "", ErrMalformed.New("empty metric name in %q", str)
	}

	return before(fields[1], "|"), nil
}

// Tags returns static tags followed by metric name segments (if enabled)
func (p *Parser) Tags(str string) []string {
	tags := make([]string, 0, len(p.tags)+4)
	tags = append(tags, p.tags...)

	if p.tagWithEventParts {
		tags = append(tags, strings.Split(name(str), ".")...)
	}

	return tags
}

func name(str string) string {
	return before(str, ":")
}

func before(str string, sep string) string {
	head, _, _ := strings.Cut(str, sep)
	return head
}
