package transpile

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/FezVrasta/hassflow/pkg/automation"
	"github.com/FezVrasta/hassflow/pkg/graph"
)

// MetadataKey is the namespaced variable under which editor metadata is
// embedded. Rule-level variables are inert to the runtime's control flow,
// so the block survives execution untouched.
const MetadataKey = "__hassflow__"

// MetadataVersion is the schema version written by [EncodeMetadata].
const MetadataVersion = 1

// Metadata is the layout and versioning block embedded in a generated
// document and recovered on parse.
//
// NodeOrder records node ids in canonical emission order so that a
// reparse can restore the original ids, and through them the stored
// positions. Nodes absent from Positions simply receive none.
type Metadata struct {
	SchemaVersion int                       `mapstructure:"schema_version"`
	GraphID       string                    `mapstructure:"graph_id"`
	GraphVersion  int                       `mapstructure:"graph_version"`
	Strategy      Strategy                  `mapstructure:"strategy"`
	NodeOrder     []string                  `mapstructure:"node_order"`
	Positions     map[string]graph.Position `mapstructure:"node_positions"`
}

// EncodeMetadata embeds the graph's layout and versioning metadata into
// the document's variables section. The graph id is carried over from the
// graph's metadata, or minted when absent; the graph version is bumped by
// one on every generation.
func EncodeMetadata(doc *automation.Document, g *graph.Graph, strategy Strategy, order []string) {
	graphID := metaString(g.Meta, "graph_id")
	if graphID == "" {
		graphID = uuid.NewString()
	}

	block := map[string]any{
		"schema_version": MetadataVersion,
		"graph_id":       graphID,
		"graph_version":  metaInt(g.Meta, "graph_version") + 1,
		"strategy":       string(strategy),
	}
	if len(order) > 0 {
		block["node_order"] = order
	}

	positions := make(map[string]any)
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.Position != nil {
			positions[n.ID] = map[string]any{"x": n.Position.X, "y": n.Position.Y}
		}
	}
	if len(positions) > 0 {
		block["node_positions"] = positions
	}

	if doc.Variables == nil {
		doc.Variables = make(map[string]any, 1)
	}
	doc.Variables[MetadataKey] = block
}

// DecodeMetadata extracts and removes the metadata block from a document's
// variables section. Missing metadata yields (nil, nil); corrupt or
// unknown-version metadata is discarded with a warning, never an error.
func DecodeMetadata(doc *automation.Document) (*Metadata, []string) {
	if doc.Variables == nil {
		return nil, nil
	}
	raw, ok := doc.Variables[MetadataKey]
	if !ok {
		return nil, nil
	}
	delete(doc.Variables, MetadataKey)
	if len(doc.Variables) == 0 {
		doc.Variables = nil
	}

	block, ok := raw.(map[string]any)
	if !ok {
		return nil, []string{"editor metadata has an unexpected shape; discarded"}
	}

	var meta Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &meta,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, []string{fmt.Sprintf("decode editor metadata: %v; discarded", err)}
	}
	if err := dec.Decode(block); err != nil {
		return nil, []string{fmt.Sprintf("editor metadata is corrupt: %v; discarded", err)}
	}
	if meta.SchemaVersion != MetadataVersion {
		return nil, []string{fmt.Sprintf("editor metadata has unknown schema version %d; discarded", meta.SchemaVersion)}
	}
	return &meta, nil
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func metaInt(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
