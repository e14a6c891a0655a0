// Package article models Drupal article nodes and their translation into
// the text-plus-metadata documents the vector index stores.
package article

import (
	"errors"
	"strings"

	"github.com/contentbridge/pinebridge/internal/domain"
)

// DefaultNodeType is the Drupal content type this gateway ingests.
const DefaultNodeType = "node--article"

// MetadataType is the fixed type tag attached to every stored document.
const MetadataType = "article"

// Body is the optional rich-text body of a node. Format is carried on the
// wire but unused.
type Body struct {
	Value  string `json:"value"`
	Format string `json:"format,omitempty"`
}

// Attributes holds the node fields relevant to indexing. Created, Changed
// and Status are explicit present/absent values: a field the CMS never sent
// stays distinguishable from an empty one all the way into the stored
// metadata.
type Attributes struct {
	Title   string                  `json:"title"`
	Body    *Body                   `json:"body,omitempty"`
	Created domain.Optional[string] `json:"created"`
	Changed domain.Optional[string] `json:"changed"`
	Status  domain.Optional[bool]   `json:"status"`
}

// Node is the externally-defined article record as received from Drupal.
// Immutable once received; the gateway never persists it.
type Node struct {
	ID         string     `json:"id"`
	Type       string     `json:"type,omitempty"`
	Attributes Attributes `json:"attributes"`
}

// Validate checks the input constraints: id and title are required.
func (n *Node) Validate() error {
	if n.ID == "" {
		return errors.New("node id is required")
	}
	if n.Attributes.Title == "" {
		return errors.New("node title is required")
	}
	return nil
}

// Metadata is the fixed-shape record stored next to each vector. It always
// carries exactly these six keys; absent source fields serialize as explicit
// nulls, never get omitted.
type Metadata struct {
	Title    string                  `json:"title"`
	Created  domain.Optional[string] `json:"created"`
	Changed  domain.Optional[string] `json:"changed"`
	Status   domain.Optional[bool]   `json:"status"`
	DrupalID string                  `json:"drupal_id"`
	Type     string                  `json:"type"`
}

// Prepared is the ephemeral per-request document derived from a Node:
// the text blob to embed plus the metadata to store alongside it.
type Prepared struct {
	ID       string
	Text     string
	Metadata Metadata
}

// Prepare translates one node into exactly one document. Pure function:
// text is title and body joined with a period-and-space separator, with
// surrounding whitespace trimmed. An absent body contributes nothing but
// the separator stays, matching what the embedding model was tuned on.
func Prepare(n Node) Prepared {
	body := ""
	if n.Attributes.Body != nil {
		body = n.Attributes.Body.Value
	}

	return Prepared{
		ID:   n.ID,
		Text: strings.TrimSpace(n.Attributes.Title + ". " + body),
		Metadata: Metadata{
			Title:    n.Attributes.Title,
			Created:  n.Attributes.Created,
			Changed:  n.Attributes.Changed,
			Status:   n.Attributes.Status,
			DrupalID: n.ID,
			Type:     MetadataType,
		},
	}
}

// PrepareAll translates a batch, preserving order. An empty input yields an
// empty (non-nil) output.
func PrepareAll(nodes []Node) []Prepared {
	prepared := make([]Prepared, len(nodes))
	for i, n := range nodes {
		prepared[i] = Prepare(n)
	}
	return prepared
}
