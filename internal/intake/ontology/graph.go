// Package ontology is the read-only semantic-graph oracle consulted before
// the NLU engine. The graph itself lives in an N-Triples export of the
// medical ontology; no reasoning happens here, only literal lookup.
package ontology

import (
	"fmt"
	"io"
	"os"
	"strings"

	logx "github.com/hospitalbot-poc/server/pkg/logger"
	"github.com/knakk/rdf"
)

// Symptom attribute predicates recognised for exact-value lookups.
const (
	predDuration = "http://www.w3.org/2002/07/owl#hasDuration"
	predSeverity = "http://www.w3.org/2002/07/owl#hasSeverity"
	predAssoc    = "http://www.w3.org/2002/07/owl#hasAssociatedSymptoms"
)

type triple struct {
	subj string
	pred string
	obj  string // literal value, lowercased copy kept alongside
	low  string
}

// Graph holds the decoded triples. Immutable after load; safe for
// concurrent lookups.
type Graph struct {
	triples []triple
}

// Load reads an N-Triples file from disk.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ontology: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses N-Triples from r, keeping only triples with literal objects;
// those are the only ones lookups can match.
func Decode(r io.Reader) (*Graph, error) {
	dec := rdf.NewTripleDecoder(r, rdf.NTriples)
	all, err := dec.DecodeAll()
	if err != nil {
		return nil, fmt.Errorf("decode ontology: %w", err)
	}

	g := &Graph{}
	for _, t := range all {
		if t.Obj.Type() != rdf.TermLiteral {
			continue
		}
		obj := t.Obj.String()
		g.triples = append(g.triples, triple{
			subj: t.Subj.String(),
			pred: t.Pred.String(),
			obj:  obj,
			low:  strings.ToLower(obj),
		})
	}
	logx.Info().Int("triples", len(g.triples)).Msg("ontology loaded")
	return g, nil
}

// Lookup scans the graph for the query text. An exact match on one of the
// symptom attribute predicates names the owning entity; otherwise any
// literal containing the query answers generically. The exact pass runs
// first: an exact attribute value is always also a substring match, so the
// generic pass would shadow the attribute forms. Returns false when nothing
// matched, which is a legitimate empty result, not an error.
func (g *Graph) Lookup(query string) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "", false
	}

	for _, t := range g.triples {
		if t.low != q {
			continue
		}
		switch t.pred {
		case predDuration:
			return fmt.Sprintf("The entity %s has duration: %s", t.subj, q), true
		case predSeverity:
			return fmt.Sprintf("The entity %s has severity: %s", t.subj, q), true
		case predAssoc:
			return fmt.Sprintf("The entity %s is associated with symptom: %s", t.subj, q), true
		}
	}

	for _, t := range g.triples {
		if strings.Contains(t.low, q) {
			return fmt.Sprintf("The answer from the ontology is: %s", t.obj), true
		}
	}
	return "", false
}
