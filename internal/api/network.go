package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/UCCNetsoc/cloud/internal/cloud"
)

// AddVHost binds a domain to an instance's internal port. https reports
// whether the instance terminates TLS itself; when false the platform
// provisions managed SSL.
func (c *Client) AddVHost(ctx context.Context, typ cloud.Type, hostname, domain string, port int, https bool) error {
	body := cloud.VHostOptions{Port: port, HTTPS: https}
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/proxmox/$username/%s/%s/vhost/%s", typ, hostname, domain), body, true, nil)
	return err
}

// RemoveVHost removes a domain binding from an instance.
func (c *Client) RemoveVHost(ctx context.Context, typ cloud.Type, hostname, domain string) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/proxmox/$username/%s/%s/vhost/%s", typ, hostname, domain), nil, true, nil)
	return err
}

// AddPort forwards an external TCP port to a port inside the instance.
func (c *Client) AddPort(ctx context.Context, typ cloud.Type, hostname string, external, internal int) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/proxmox/$username/%s/%s/port/%d/%d", typ, hostname, external, internal), nil, true, nil)
	return err
}

// RemovePort removes an external port forward.
func (c *Client) RemovePort(ctx context.Context, typ cloud.Type, hostname string, external int) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/proxmox/$username/%s/%s/port/%d", typ, hostname, external), nil, true, nil)
	return err
}

// VHostRequirements fetches what a user must configure at their registrar
// before a custom domain is accepted.
func (c *Client) VHostRequirements(ctx context.Context) (*cloud.VHostRequirements, error) {
	var requirements cloud.VHostRequirements
	_, err := c.do(ctx, http.MethodGet, "/proxmox/vhost-requirements", nil, true, &requirements)
	if err != nil {
		return nil, err
	}
	return &requirements, nil
}
