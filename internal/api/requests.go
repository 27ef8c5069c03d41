package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/UCCNetsoc/cloud/internal/cloud"
	"github.com/UCCNetsoc/cloud/internal/rest"
)

// CreateInstanceRequest submits a request for a new instance. The backend
// responds with an informational detail message for display.
func (c *Client) CreateInstanceRequest(ctx context.Context, typ cloud.Type, hostname, templateID, reason string) (*rest.Info, error) {
	body := cloud.RequestDetail{TemplateID: templateID, Reason: reason}
	var info rest.Info
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/proxmox/$username/%s-request/%s", typ, hostname), body, true, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ApproveInstanceRequest submits an approval on behalf of an admin. The
// token comes verbatim from the approval deep link; the backend verifies
// its signature, the client never does.
func (c *Client) ApproveInstanceRequest(ctx context.Context, username string, typ cloud.Type, hostname, token string) (*rest.Info, error) {
	return c.decideInstanceRequest(ctx, username, typ, hostname, "approval", token)
}

// DenyInstanceRequest submits a denial on behalf of an admin.
func (c *Client) DenyInstanceRequest(ctx context.Context, username string, typ cloud.Type, hostname, token string) (*rest.Info, error) {
	return c.decideInstanceRequest(ctx, username, typ, hostname, "denial", token)
}

func (c *Client) decideInstanceRequest(ctx context.Context, username string, typ cloud.Type, hostname, decision, token string) (*rest.Info, error) {
	path := fmt.Sprintf("/proxmox/%s/%s-request/%s/%s?token=%s", username, typ, hostname, decision, url.QueryEscape(token))
	var info rest.Info
	_, err := c.do(ctx, http.MethodPost, path, nil, true, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
