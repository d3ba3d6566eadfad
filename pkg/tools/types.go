// Package tools is the AI tool catalog & executor (spec §4.M): a fixed set
// of named tools, each compiling to one or more calls into the object
// service, with guard-tracked execution to prevent duplicate tool_use_id
// replays. The registry/executor/guard split follows the same shape used
// elsewhere in this codebase's dependency family for agent tool systems,
// narrowed here from a general-purpose agent tool system to the closed
// board-mutation catalog the protocol defines.
package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/collabboard/server/pkg/boardmodel"
)

// Result is one tool execution's outcome: a human-readable summary and the
// mutations it produced (spec §4.M "accumulates an AiMutation list ... and
// returns a human-readable summary string").
type Result struct {
	Summary   string
	Mutations []boardmodel.AiMutation
	IsError   bool
}

// Tool wraps an MCP tool descriptor with board-mutating execution logic.
type Tool struct {
	mcp.Tool
	Execute func(ctx context.Context, call *Call, input map[string]any) (*Result, error)
}

// schema is a small helper building a jsonschema.Schema for an object with
// the given required properties; it keeps catalog.go declarative.
func schema(properties map[string]any, required ...string) *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(properties))
	for name, p := range properties {
		props[name] = p.(*jsonschema.Schema)
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func stringProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func numberProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: desc}
}

func arrayProp(desc string, items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: desc, Items: items}
}

func objectProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Description: desc, AdditionalProperties: &jsonschema.Schema{}}
}
