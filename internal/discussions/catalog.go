// Package discussions loads the fixed transcripts readers can work through.
package discussions

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Message is one turn of a discussion transcript.
type Message struct {
	Speaker string `yaml:"speaker" json:"speaker"`
	Text    string `yaml:"text" json:"text"`
}

// Discussion is a fixed, ordered transcript. Its messages are the selectable
// points, indexed from zero.
type Discussion struct {
	ID       string    `yaml:"id" json:"id"`
	Title    string    `yaml:"title" json:"title"`
	Chapter  int       `yaml:"chapter" json:"chapter,omitempty"`
	Messages []Message `yaml:"messages" json:"messages"`
}

type file struct {
	Discussions []Discussion `yaml:"discussions"`
}

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// Catalog is an immutable, ordered set of discussions.
type Catalog struct {
	order []string
	byID  map[string]*Discussion
}

// Load reads a catalog file. A missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path) // #nosec G304: path comes from configuration
	if os.IsNotExist(err) {
		return New(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open discussions file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes a catalog from YAML.
func Parse(r io.Reader) (*Catalog, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode discussions: %w", err)
	}
	return New(doc.Discussions)
}

// New validates discussions and builds a catalog from them.
func New(discussions []Discussion) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Discussion, len(discussions))}
	for i := range discussions {
		d := discussions[i]
		if !idPattern.MatchString(d.ID) {
			return nil, fmt.Errorf("discussion %d: invalid id %q", i, d.ID)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("discussion %q defined twice", d.ID)
		}
		if len(d.Messages) == 0 {
			return nil, fmt.Errorf("discussion %q has no messages", d.ID)
		}
		c.byID[d.ID] = &d
		c.order = append(c.order, d.ID)
	}
	return c, nil
}

// Get returns the discussion with id.
func (c *Catalog) Get(id string) (*Discussion, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Length returns the number of selectable points in discussion id.
func (c *Catalog) Length(id string) (int, bool) {
	d, ok := c.byID[id]
	if !ok {
		return 0, false
	}
	return len(d.Messages), true
}

// Summary is the listing view of a discussion.
type Summary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Chapter  int    `json:"chapter,omitempty"`
	Messages int    `json:"messages"`
}

// List returns summaries in file order.
func (c *Catalog) List() []Summary {
	out := make([]Summary, 0, len(c.order))
	for _, id := range c.order {
		d := c.byID[id]
		out = append(out, Summary{ID: d.ID, Title: d.Title, Chapter: d.Chapter, Messages: len(d.Messages)})
	}
	return out
}
