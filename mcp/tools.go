package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	pdftemplate "github.com/lvillar/pdftemplate"
	"github.com/lvillar/pdftemplate/service"
)

// tools binds the tool handlers to a service. MCP clients act as the local
// administrator, so every call runs with the empty owner.
type tools struct {
	svc *service.Service
}

// RegisterTools adds the template tools to the server.
func RegisterTools(s *Server, svc *service.Service) {
	t := &tools{svc: svc}
	s.AddTool(t.listTemplatesTool())
	s.AddTool(t.getTemplateTool())
	s.AddTool(t.saveMappingTool())
	s.AddTool(t.renderTemplateTool())
	s.AddTool(t.inspectPDFTool())
	s.AddTool(t.deleteTemplateTool())
}

var templateIDProperty = map[string]any{
	"type":        "string",
	"description": "Identifier returned when the template was uploaded",
}

func (t *tools) listTemplatesTool() Tool {
	return Tool{
		Name:        "list_templates",
		Description: "List stored templates with their filename, creation time and number of mapped elements.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: t.handleListTemplates,
	}
}

func (t *tools) handleListTemplates(ctx context.Context, _ map[string]any) (ToolResult, error) {
	list, err := t.svc.List(ctx, "")
	if err != nil {
		return ToolResult{}, err
	}
	return jsonResult(map[string]any{"templates": list})
}

func (t *tools) getTemplateTool() Tool {
	return Tool{
		Name:        "get_template",
		Description: "Get a template: its pages, detected form fields and the full element mapping.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"template_id": templateIDProperty,
			},
			"required": []string{"template_id"},
		},
		Handler: t.handleGetTemplate,
	}
}

func (t *tools) handleGetTemplate(ctx context.Context, args map[string]any) (ToolResult, error) {
	id, err := stringArg(args, "template_id")
	if err != nil {
		return ToolResult{}, err
	}
	tpl, err := t.svc.Get(ctx, id, "")
	if err != nil {
		return ToolResult{}, err
	}
	return jsonResult(tpl)
}

func (t *tools) saveMappingTool() Tool {
	return Tool{
		Name: "save_mapping",
		Description: "Replace the element mapping of a template. Elements are objects with a type " +
			"(text, checkbox, image, repeat, barcode), a page, a bbox {x, y, w, h} in points " +
			"from the top-left corner, and a data_path into the render data.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"template_id": templateIDProperty,
				"elements": map[string]any{
					"type":        "array",
					"description": "Complete element list; replaces the stored one",
					"items":       map[string]any{"type": "object"},
				},
				"pages": map[string]any{
					"type":        "array",
					"description": "Optional page list; the stored one is kept when omitted",
					"items":       map[string]any{"type": "object"},
				},
			},
			"required": []string{"template_id", "elements"},
		},
		Handler: t.handleSaveMapping,
	}
}

func (t *tools) handleSaveMapping(ctx context.Context, args map[string]any) (ToolResult, error) {
	id, err := stringArg(args, "template_id")
	if err != nil {
		return ToolResult{}, err
	}
	if _, ok := args["elements"]; !ok {
		return ToolResult{}, fmt.Errorf("missing 'elements' argument")
	}
	// Round trip through JSON so elements and pages decode exactly as they
	// do over HTTP.
	raw, err := json.Marshal(args)
	if err != nil {
		return ToolResult{}, fmt.Errorf("encoding mapping: %w", err)
	}
	var m service.Mapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return ToolResult{}, pdftemplate.Invalidf("mapping: %v", err)
	}
	if err := t.svc.SaveMapping(ctx, id, "", m); err != nil {
		return ToolResult{}, err
	}
	return textResult("Mapping saved for template %s (%d elements)", id, len(m.Elements)), nil
}

func (t *tools) renderTemplateTool() Tool {
	return Tool{
		Name: "render_template",
		Description: "Fill a template with data and return the finished PDF. Returns base64 unless " +
			"outputPath is given. An 'elements' list renders with that mapping instead of the stored one.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"template_id": templateIDProperty,
				"data": map[string]any{
					"type":        "object",
					"description": "Render data; element data_path values are resolved against it",
				},
				"elements": map[string]any{
					"type":        "array",
					"description": "Optional one-shot element list; the stored template is not modified",
					"items":       map[string]any{"type": "object"},
				},
				"outputPath": map[string]any{
					"type":        "string",
					"description": "Optional file path to save the PDF. If omitted, returns base64.",
				},
			},
			"required": []string{"template_id"},
		},
		Handler: t.handleRenderTemplate,
	}
}

func (t *tools) handleRenderTemplate(ctx context.Context, args map[string]any) (ToolResult, error) {
	id, err := stringArg(args, "template_id")
	if err != nil {
		return ToolResult{}, err
	}
	data := map[string]any{}
	if v, ok := args["data"]; ok && v != nil {
		m, ok := v.(map[string]any)
		if !ok {
			return ToolResult{}, pdftemplate.Invalidf("'data' must be an object")
		}
		for k, val := range m {
			data[k] = val
		}
	}
	if elems, ok := args["elements"]; ok && elems != nil {
		data[pdftemplate.ElementsOverrideKey] = elems
	}

	out, err := t.svc.Render(ctx, id, "", data)
	if err != nil {
		return ToolResult{}, err
	}

	summary := fmt.Sprintf("%d pages, %d bytes, %d warnings", out.Pages, len(out.Data), len(out.Warnings))
	for _, w := range out.Warnings {
		summary += "\n- " + w.Error()
	}

	if outputPath, ok := args["outputPath"].(string); ok && outputPath != "" {
		if err := os.WriteFile(outputPath, out.Data, 0644); err != nil {
			return ToolResult{}, fmt.Errorf("writing file: %w", err)
		}
		return textResult("PDF rendered successfully: %s (%s)", outputPath, summary), nil
	}

	return ToolResult{
		Content: []ContentBlock{
			{Type: "text", Text: fmt.Sprintf("PDF rendered successfully (%s)", summary)},
			{Type: "resource", MIMEType: service.ContentType, Data: base64.StdEncoding.EncodeToString(out.Data)},
		},
	}, nil
}

func (t *tools) inspectPDFTool() Tool {
	return Tool{
		Name:        "inspect_pdf",
		Description: "Inspect a PDF file on disk: page count, page sizes in points, and AcroForm fields with their positions.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the PDF file",
				},
			},
			"required": []string{"path"},
		},
		Handler: t.handleInspectPDF,
	}
}

func (t *tools) handleInspectPDF(ctx context.Context, args map[string]any) (ToolResult, error) {
	path, err := stringArg(args, "path")
	if err != nil {
		return ToolResult{}, err
	}
	info, err := t.svc.InspectFile(ctx, path)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonResult(map[string]any{
		"page_count":   info.PageCount(),
		"page_size":    info.PageSize,
		"pages":        info.Pages,
		"has_acroform": info.HasAcroForm,
		"form_fields":  info.FormFields,
	})
}

func (t *tools) deleteTemplateTool() Tool {
	return Tool{
		Name:        "delete_template",
		Description: "Delete a template and its base document.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"template_id": templateIDProperty,
			},
			"required": []string{"template_id"},
		},
		Handler: t.handleDeleteTemplate,
	}
}

func (t *tools) handleDeleteTemplate(ctx context.Context, args map[string]any) (ToolResult, error) {
	id, err := stringArg(args, "template_id")
	if err != nil {
		return ToolResult{}, err
	}
	if err := t.svc.Delete(ctx, id, ""); err != nil {
		return ToolResult{}, err
	}
	return textResult("Template %s deleted", id), nil
}

// stringArg returns a required, non-empty string argument.
func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing '%s' argument", name)
	}
	return v, nil
}

func jsonResult(v any) (ToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ToolResult{}, fmt.Errorf("encoding result: %w", err)
	}
	return ToolResult{
		Content: []ContentBlock{{Type: "text", Text: string(data)}},
	}, nil
}
