package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/collabboard/server/pkg/boardmodel"
	"github.com/collabboard/server/pkg/boarderrors"
	"github.com/collabboard/server/pkg/boardstore"
	"github.com/collabboard/server/pkg/objectsvc"
)

// Catalog returns the fixed set of tools the AI orchestrator offers the
// model (spec §4.M "Fixed catalog (names and shapes are part of the
// protocol)").
func Catalog() []*Tool {
	return []*Tool{
		createStickyNoteTool(),
		createShapeTool(),
		createFrameTool(),
		createConnectorTool(),
		moveObjectTool(),
		resizeObjectTool(),
		updateTextTool(),
		changeColorTool(),
		layoutObjectsTool(),
		summarizeBoardTool(),
		groupByThemeTool(),
		getBoardStateTool(),
	}
}

func createStickyNoteTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "createStickyNote",
			Description: "Create one sticky note on the board at the given position with the given text.",
			InputSchema: schema(map[string]any{
				"x":     numberProp("world x position"),
				"y":     numberProp("world y position"),
				"text":  stringProp("sticky note text"),
				"color": stringProp("optional fill color"),
			}, "x", "y", "text"),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			x, okX := floatArg(input, "x")
			y, okY := floatArg(input, "y")
			text, okText := stringArg(input, "text")
			if !okX || !okY || !okText {
				return errorResult("createStickyNote requires x, y, and text"), nil
			}
			props := map[string]any{"text": text}
			if color, ok := stringArg(input, "color"); ok {
				props["color"] = color
			}
			obj, err := objectsvc.Create(call.Board, call.BoardID, objectsvc.CreateInput{
				Kind: boardmodel.KindStickyNote, X: x, Y: y, Props: props, CreatedBy: &call.ActorID,
			})
			if err != nil {
				return errorResult(err.Error()), nil
			}
			return &Result{
				Summary:   fmt.Sprintf("created sticky note %s", obj.ID),
				Mutations: []boardmodel.AiMutation{{Op: "create", ObjectID: obj.ID}},
			}, nil
		},
	}
}

var shapeKinds = map[string]boardmodel.ObjectKind{
	"rectangle": boardmodel.KindRectangle,
	"ellipse":   boardmodel.KindEllipse,
	"diamond":   boardmodel.KindDiamond,
	"star":      boardmodel.KindStar,
	"text":      boardmodel.KindText,
	"svg":       boardmodel.KindSVG,
	"youtube_embed": boardmodel.KindYouTube,
}

func createShapeTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "createShape",
			Description: "Create one non-sticky, non-connector shape (rectangle, ellipse, diamond, star, text, svg, or youtube_embed).",
			InputSchema: schema(map[string]any{
				"kind":   stringProp("one of rectangle, ellipse, diamond, star, text, svg, youtube_embed"),
				"x":      numberProp("world x position"),
				"y":      numberProp("world y position"),
				"width":  numberProp("optional width"),
				"height": numberProp("optional height"),
				"color":  stringProp("optional fill color"),
				"text":   stringProp("optional text content, used by kind=text"),
			}, "kind", "x", "y"),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			kindStr, okKind := stringArg(input, "kind")
			x, okX := floatArg(input, "x")
			y, okY := floatArg(input, "y")
			if !okKind || !okX || !okY {
				return errorResult("createShape requires kind, x, and y"), nil
			}
			kind, known := shapeKinds[kindStr]
			if !known {
				return errorResult("unknown shape kind: " + kindStr), nil
			}
			props := map[string]any{}
			if color, ok := stringArg(input, "color"); ok {
				props["color"] = color
			}
			if text, ok := stringArg(input, "text"); ok {
				props["text"] = text
			}
			in := objectsvc.CreateInput{Kind: kind, X: x, Y: y, Props: props, CreatedBy: &call.ActorID}
			if w, ok := floatArg(input, "width"); ok {
				in.Width = &w
			}
			if h, ok := floatArg(input, "height"); ok {
				in.Height = &h
			}
			obj, err := objectsvc.Create(call.Board, call.BoardID, in)
			if err != nil {
				return errorResult(err.Error()), nil
			}
			return &Result{
				Summary:   fmt.Sprintf("created %s %s", kindStr, obj.ID),
				Mutations: []boardmodel.AiMutation{{Op: "create", ObjectID: obj.ID}},
			}, nil
		},
	}
}

func createFrameTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "createFrame",
			Description: "Create a labeled frame (container region) on the board.",
			InputSchema: schema(map[string]any{
				"x":      numberProp("world x position"),
				"y":      numberProp("world y position"),
				"width":  numberProp("frame width"),
				"height": numberProp("frame height"),
				"label":  stringProp("frame label"),
			}, "x", "y", "width", "height"),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			x, okX := floatArg(input, "x")
			y, okY := floatArg(input, "y")
			w, okW := floatArg(input, "width")
			h, okH := floatArg(input, "height")
			if !okX || !okY || !okW || !okH {
				return errorResult("createFrame requires x, y, width, and height"), nil
			}
			props := map[string]any{}
			if label, ok := stringArg(input, "label"); ok {
				props["label"] = label
			}
			obj, err := objectsvc.Create(call.Board, call.BoardID, objectsvc.CreateInput{
				Kind: boardmodel.KindFrame, X: x, Y: y, Width: &w, Height: &h, Props: props, CreatedBy: &call.ActorID,
			})
			if err != nil {
				return errorResult(err.Error()), nil
			}
			return &Result{
				Summary:   fmt.Sprintf("created frame %s", obj.ID),
				Mutations: []boardmodel.AiMutation{{Op: "create", ObjectID: obj.ID}},
			}, nil
		},
	}
}

func createConnectorTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "createConnector",
			Description: "Create a line or arrow connector between two points.",
			InputSchema: schema(map[string]any{
				"kind":  stringProp("line or arrow"),
				"x1":    numberProp("start x"),
				"y1":    numberProp("start y"),
				"x2":    numberProp("end x"),
				"y2":    numberProp("end y"),
				"color": stringProp("optional stroke color"),
			}, "kind", "x1", "y1", "x2", "y2"),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			kindStr, _ := stringArg(input, "kind")
			kind := boardmodel.KindLine
			if kindStr == "arrow" {
				kind = boardmodel.KindArrow
			} else if kindStr != "line" {
				return errorResult("createConnector kind must be line or arrow"), nil
			}
			x1, ok1 := floatArg(input, "x1")
			y1, ok2 := floatArg(input, "y1")
			x2, ok3 := floatArg(input, "x2")
			y2, ok4 := floatArg(input, "y2")
			if !ok1 || !ok2 || !ok3 || !ok4 {
				return errorResult("createConnector requires x1, y1, x2, and y2"), nil
			}
			props := map[string]any{"x2": x2, "y2": y2}
			if color, ok := stringArg(input, "color"); ok {
				props["color"] = color
			}
			obj, err := objectsvc.Create(call.Board, call.BoardID, objectsvc.CreateInput{
				Kind: kind, X: x1, Y: y1, Props: props, CreatedBy: &call.ActorID,
			})
			if err != nil {
				return errorResult(err.Error()), nil
			}
			return &Result{
				Summary:   fmt.Sprintf("created %s connector %s", kindStr, obj.ID),
				Mutations: []boardmodel.AiMutation{{Op: "create", ObjectID: obj.ID}},
			}, nil
		},
	}
}

func moveObjectTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "moveObject",
			Description: "Move an existing object to a new position.",
			InputSchema: schema(map[string]any{
				"object_id": stringProp("target object id"),
				"x":         numberProp("new world x position"),
				"y":         numberProp("new world y position"),
			}, "object_id", "x", "y"),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			id, okID := stringArg(input, "object_id")
			x, okX := floatArg(input, "x")
			y, okY := floatArg(input, "y")
			if !okID || !okX || !okY {
				return errorResult("moveObject requires object_id, x, and y"), nil
			}
			obj, err := mutateWithCurrentVersion(call.Board, id, boardstore.Patch{X: &x, Y: &y})
			if err != nil {
				return errorResult(err.Error()), nil
			}
			return &Result{
				Summary:   fmt.Sprintf("moved %s to (%.1f, %.1f)", id, x, y),
				Mutations: []boardmodel.AiMutation{{Op: "update", ObjectID: obj.ID}},
			}, nil
		},
	}
}

func resizeObjectTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "resizeObject",
			Description: "Resize an existing object.",
			InputSchema: schema(map[string]any{
				"object_id": stringProp("target object id"),
				"width":     numberProp("new width"),
				"height":    numberProp("new height"),
			}, "object_id"),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			id, okID := stringArg(input, "object_id")
			if !okID {
				return errorResult("resizeObject requires object_id"), nil
			}
			patch := boardstore.Patch{}
			if w, ok := floatArg(input, "width"); ok {
				patch.Width = &w
			}
			if h, ok := floatArg(input, "height"); ok {
				patch.Height = &h
			}
			obj, err := mutateWithCurrentVersion(call.Board, id, patch)
			if err != nil {
				return errorResult(err.Error()), nil
			}
			return &Result{
				Summary:   fmt.Sprintf("resized %s", id),
				Mutations: []boardmodel.AiMutation{{Op: "update", ObjectID: obj.ID}},
			}, nil
		},
	}
}

func updateTextTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "updateText",
			Description: "Replace the text content of an existing object (sticky note or text shape).",
			InputSchema: schema(map[string]any{
				"object_id": stringProp("target object id"),
				"text":      stringProp("new text content"),
			}, "object_id", "text"),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			id, okID := stringArg(input, "object_id")
			text, okText := stringArg(input, "text")
			if !okID || !okText {
				return errorResult("updateText requires object_id and text"), nil
			}
			current, ok := call.Board.GetObject(id)
			if !ok {
				return errorResult("object not found: " + id), nil
			}
			props := current.Props
			if props == nil {
				props = map[string]any{}
			}
			props["text"] = text
			obj, err := mutateWithCurrentVersion(call.Board, id, boardstore.Patch{Props: props})
			if err != nil {
				return errorResult(err.Error()), nil
			}
			return &Result{
				Summary:   fmt.Sprintf("updated text of %s", id),
				Mutations: []boardmodel.AiMutation{{Op: "update", ObjectID: obj.ID}},
			}, nil
		},
	}
}

func changeColorTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "changeColor",
			Description: "Change the fill or stroke color of an existing object.",
			InputSchema: schema(map[string]any{
				"object_id": stringProp("target object id"),
				"color":     stringProp("new color, e.g. a hex string"),
			}, "object_id", "color"),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			id, okID := stringArg(input, "object_id")
			color, okColor := stringArg(input, "color")
			if !okID || !okColor {
				return errorResult("changeColor requires object_id and color"), nil
			}
			current, ok := call.Board.GetObject(id)
			if !ok {
				return errorResult("object not found: " + id), nil
			}
			props := current.Props
			if props == nil {
				props = map[string]any{}
			}
			props["color"] = color
			obj, err := mutateWithCurrentVersion(call.Board, id, boardstore.Patch{Props: props})
			if err != nil {
				return errorResult(err.Error()), nil
			}
			return &Result{
				Summary:   fmt.Sprintf("changed color of %s to %s", id, color),
				Mutations: []boardmodel.AiMutation{{Op: "update", ObjectID: obj.ID}},
			}, nil
		},
	}
}

func layoutObjectsTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "layoutObjects",
			Description: "Re-arrange a set of objects into a grid, cluster, tree, or circle layout.",
			InputSchema: schema(map[string]any{
				"object_ids": arrayProp("object ids to arrange", stringProp("object id")),
				"layout":     stringProp("one of grid, cluster, tree, circle"),
				"origin_x":   numberProp("layout origin x"),
				"origin_y":   numberProp("layout origin y"),
				"spacing":    numberProp("spacing between objects"),
			}, "object_ids", "layout"),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			ids, ok := stringArrayArg(input, "object_ids")
			if !ok || len(ids) == 0 {
				return errorResult("layoutObjects requires a non-empty object_ids array"), nil
			}
			layoutKind, okLayout := stringArg(input, "layout")
			if !okLayout {
				return errorResult("layoutObjects requires layout"), nil
			}
			originX, _ := floatArg(input, "origin_x")
			originY, _ := floatArg(input, "origin_y")
			spacing, ok := floatArg(input, "spacing")
			if !ok || spacing <= 0 {
				spacing = 200
			}

			positions, err := computeLayout(layoutKind, len(ids), originX, originY, spacing)
			if err != nil {
				return errorResult(err.Error()), nil
			}

			// Validate every object exists before moving any (spec §4.M
			// "Tools must never partially commit within a single call").
			for _, id := range ids {
				if !call.Board.Contains(id) {
					return errorResult("object not found: " + id), nil
				}
			}

			var mutations []boardmodel.AiMutation
			for i, id := range ids {
				x, y := positions[i].x, positions[i].y
				obj, err := mutateWithCurrentVersion(call.Board, id, boardstore.Patch{X: &x, Y: &y})
				if err != nil {
					return errorResult(err.Error()), nil
				}
				mutations = append(mutations, boardmodel.AiMutation{Op: "update", ObjectID: obj.ID})
			}
			return &Result{
				Summary:   fmt.Sprintf("arranged %d objects in a %s layout", len(ids), layoutKind),
				Mutations: mutations,
			}, nil
		},
	}
}

type point struct{ x, y float64 }

func computeLayout(kind string, n int, originX, originY, spacing float64) ([]point, error) {
	out := make([]point, n)
	switch kind {
	case "grid":
		cols := int(math.Ceil(math.Sqrt(float64(n))))
		for i := 0; i < n; i++ {
			row := i / cols
			col := i % cols
			out[i] = point{originX + float64(col)*spacing, originY + float64(row)*spacing}
		}
	case "circle":
		for i := 0; i < n; i++ {
			angle := 2 * math.Pi * float64(i) / float64(n)
			radius := spacing * float64(n) / (2 * math.Pi)
			out[i] = point{originX + radius*math.Cos(angle), originY + radius*math.Sin(angle)}
		}
	case "cluster":
		for i := 0; i < n; i++ {
			offset := float64(i%3) * spacing * 0.5
			out[i] = point{originX + offset, originY + float64(i)*spacing*0.3}
		}
	case "tree":
		for i := 0; i < n; i++ {
			depth := int(math.Log2(float64(i + 1)))
			out[i] = point{originX + float64(i)*spacing*0.4, originY + float64(depth)*spacing}
		}
	default:
		return nil, boarderrors.New(boarderrors.CodeValidation, "unknown layout: "+kind)
	}
	return out, nil
}

func summarizeBoardTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "summarizeBoard",
			Description: "Produce a short natural-language summary of the board's current contents.",
			InputSchema: schema(map[string]any{}),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			objects := call.Board.List()
			counts := map[boardmodel.ObjectKind]int{}
			for _, obj := range objects {
				counts[obj.Kind]++
			}
			summary := fmt.Sprintf("Board has %d objects:", len(objects))
			for kind, count := range counts {
				summary += fmt.Sprintf(" %d %s,", count, kind)
			}
			return &Result{Summary: summary}, nil
		},
	}
}

func groupByThemeTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "groupByTheme",
			Description: "Assign a shared group id to a set of objects that belong to the same theme.",
			InputSchema: schema(map[string]any{
				"object_ids": arrayProp("object ids to group", stringProp("object id")),
				"theme":      stringProp("short label for the theme, used to name the group"),
			}, "object_ids", "theme"),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			ids, ok := stringArrayArg(input, "object_ids")
			if !ok || len(ids) == 0 {
				return errorResult("groupByTheme requires a non-empty object_ids array"), nil
			}
			theme, okTheme := stringArg(input, "theme")
			if !okTheme {
				return errorResult("groupByTheme requires theme"), nil
			}
			for _, id := range ids {
				if !call.Board.Contains(id) {
					return errorResult("object not found: " + id), nil
				}
			}
			groupID := theme
			var mutations []boardmodel.AiMutation
			for _, id := range ids {
				obj, err := mutateWithCurrentVersion(call.Board, id, boardstore.Patch{GroupID: &groupID})
				if err != nil {
					return errorResult(err.Error()), nil
				}
				mutations = append(mutations, boardmodel.AiMutation{Op: "update", ObjectID: obj.ID})
			}
			return &Result{
				Summary:   fmt.Sprintf("grouped %d objects under theme %q", len(ids), theme),
				Mutations: mutations,
			}, nil
		},
	}
}

func getBoardStateTool() *Tool {
	return &Tool{
		Tool: mcp.Tool{
			Name:        "getBoardState",
			Description: "Return the full list of objects currently on the board.",
			InputSchema: schema(map[string]any{}),
		},
		Execute: func(ctx context.Context, call *Call, input map[string]any) (*Result, error) {
			objects := call.Board.List()
			summary := fmt.Sprintf("%d objects on the board", len(objects))
			for _, obj := range objects {
				summary += fmt.Sprintf("\n- %s %s at (%.1f, %.1f) props=%v", obj.ID, obj.Kind, obj.X, obj.Y, obj.Props)
			}
			return &Result{Summary: summary}, nil
		},
	}
}

// mutateWithCurrentVersion reads the object's current authoritative
// version and applies patch against it, so AI-originated updates never
// race against themselves within a single tool call.
func mutateWithCurrentVersion(board *boardstore.BoardState, id string, patch boardstore.Patch) (*boardmodel.Object, error) {
	current, ok := board.GetObject(id)
	if !ok {
		return nil, boarderrors.New(boarderrors.CodeObjectNotFound, "object not found: "+id)
	}
	return board.Update(id, patch, current.Version)
}

func errorResult(message string) *Result {
	return &Result{Summary: message, IsError: true}
}

func stringArg(input map[string]any, key string) (string, bool) {
	v, ok := input[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func floatArg(input map[string]any, key string) (float64, bool) {
	v, ok := input[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringArrayArg(input map[string]any, key string) ([]string, bool) {
	v, ok := input[key]
	if !ok {
		return nil, false
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
