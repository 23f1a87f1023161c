package topics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Regex for valid subreddit names
var subNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,21}$`)

// Mapping is an immutable topic -> subreddit mapping, loaded once at startup.
// Every topic maps to at least one subreddit and subreddit names are unique
// within a topic. Safe for concurrent reads.
type Mapping struct {
	order []string
	subs  map[string][]string
}

// Topics returns topic names in definition order.
func (m *Mapping) Topics() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Subreddits returns the subreddits mapped to a topic, in definition order.
// The second return is false when the topic is unknown.
func (m *Mapping) Subreddits(topic string) ([]string, bool) {
	subs, ok := m.subs[topic]
	if !ok {
		return nil, false
	}
	out := make([]string, len(subs))
	copy(out, subs)
	return out, true
}

// Len returns the number of topics.
func (m *Mapping) Len() int {
	return len(m.order)
}

// FromMap builds a Mapping from an already-parsed topic table. Topic order is
// sorted for determinism; duplicate subreddits within a topic are dropped
// (first occurrence wins). Topics with no valid subreddit are rejected.
func FromMap(in map[string][]string) (*Mapping, error) {
	m := &Mapping{subs: make(map[string][]string, len(in))}
	for topic := range in {
		m.order = append(m.order, topic)
	}
	sort.Strings(m.order)

	for _, topic := range m.order {
		seen := make(map[string]struct{})
		var subs []string
		for _, sub := range in[topic] {
			if _, dup := seen[sub]; dup {
				continue
			}
			seen[sub] = struct{}{}
			subs = append(subs, sub)
		}
		if len(subs) == 0 {
			return nil, fmt.Errorf("topic %q has no subreddits", topic)
		}
		m.subs[topic] = subs
	}
	if len(m.order) == 0 {
		return nil, fmt.Errorf("empty topic mapping")
	}
	return m, nil
}

// Load reads a topic mapping file. The format is line oriented: a "# Topic"
// line opens a topic and following "/r/name" lines add its subreddits.
// Anything else is ignored.
func Load(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open topics file: %w", err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse topics file %s: %w", path, err)
	}
	return m, nil
}

// Parse reads the topic mapping format from r. Invalid subreddit names are
// skipped (fail-soft) and topics that end up empty are dropped.
func Parse(r io.Reader) (*Mapping, error) {
	m := &Mapping{subs: make(map[string][]string)}

	var current string
	seen := make(map[string]map[string]struct{})

	scanner := bufio.NewScanner(stripBOM(r))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#") && !strings.HasSuffix(line, "#"):
			// Topic header
			current = strings.TrimSpace(line[1:])
			if current == "" {
				continue
			}
			if _, exists := m.subs[current]; !exists {
				m.order = append(m.order, current)
				m.subs[current] = nil
				seen[current] = make(map[string]struct{})
			}
		case strings.HasPrefix(line, "/r/") && current != "":
			sub := strings.Trim(strings.TrimPrefix(line, "/r/"), "/")
			sub = strings.TrimSpace(sub)
			if !subNameRegex.MatchString(sub) {
				continue
			}
			if _, dup := seen[current][sub]; dup {
				continue
			}
			seen[current][sub] = struct{}{}
			m.subs[current] = append(m.subs[current], sub)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Drop topics that collected no valid subreddit
	var order []string
	for _, topic := range m.order {
		if len(m.subs[topic]) == 0 {
			delete(m.subs, topic)
			continue
		}
		order = append(order, topic)
	}
	m.order = order

	if len(m.order) == 0 {
		return nil, fmt.Errorf("no topics found")
	}
	return m, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rn, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rn != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
