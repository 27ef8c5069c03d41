package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/UCCNetsoc/cloud/internal/cloud"
)

// Templates fetches the catalog for one instance type, flattened into a
// slice sorted by title with the catalog key filled in.
func (c *Client) Templates(ctx context.Context, typ cloud.Type) ([]cloud.Template, error) {
	var byID map[string]cloud.Template
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/proxmox/$username/%s-templates", typ), nil, true, &byID)
	if err != nil {
		return nil, err
	}

	templates := make([]cloud.Template, 0, len(byID))
	for id, template := range byID {
		template.ID = id
		template.Type = typ
		templates = append(templates, template)
	}
	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Metadata.Title < templates[j].Metadata.Title
	})
	return templates, nil
}

// AllTemplates fetches the catalogs of every instance type.
func (c *Client) AllTemplates(ctx context.Context) ([]cloud.Template, error) {
	var all []cloud.Template
	for _, typ := range cloud.Types {
		templates, err := c.Templates(ctx, typ)
		if err != nil {
			return nil, err
		}
		all = append(all, templates...)
	}
	return all, nil
}

// TemplateByID fetches a single catalog entry, used by the approval view
// to show what was requested.
func (c *Client) TemplateByID(ctx context.Context, typ cloud.Type, id string) (*cloud.Template, error) {
	var template cloud.Template
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/proxmox/$username/%s-template/%s", typ, id), nil, true, &template)
	if err != nil {
		return nil, err
	}
	template.ID = id
	template.Type = typ
	return &template, nil
}
