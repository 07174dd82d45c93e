package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lvillar/pdftemplate/service"
)

const templatePrefix = "template://"

// RegisterResources adds the template resources to the server:
// template://list and the per-template template://{template_id}.
func RegisterResources(s *Server, svc *service.Service) {
	s.AddResource(Resource{
		URI:         templatePrefix + "list",
		Name:        "Templates",
		Description: "Summaries of all stored templates (id, filename, creation time, element count).",
		MIMEType:    "application/json",
		Handler: func(ctx context.Context, uri string) ([]ResourceContent, error) {
			list, err := svc.List(ctx, "")
			if err != nil {
				return nil, err
			}
			return jsonContent(uri, map[string]any{"templates": list})
		},
	})

	s.AddResourceTemplate(ResourceTemplate{
		URITemplate: templatePrefix + "{template_id}",
		Name:        "Template",
		Description: "A stored template with its pages, form fields and element mapping.",
		MIMEType:    "application/json",
		Prefix:      templatePrefix,
		Handler: func(ctx context.Context, uri string) ([]ResourceContent, error) {
			id := strings.TrimPrefix(uri, templatePrefix)
			t, err := svc.Get(ctx, id, "")
			if err != nil {
				return nil, err
			}
			return jsonContent(uri, t)
		},
	})
}

func jsonContent(uri string, v any) ([]ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", uri, err)
	}
	return []ResourceContent{{
		URI:      uri,
		MIMEType: "application/json",
		Text:     string(data),
	}}, nil
}
