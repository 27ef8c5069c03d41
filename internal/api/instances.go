package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/UCCNetsoc/cloud/internal/cloud"
)

// Instances fetches the caller's instances of one type. The API keys the
// collection by hostname; the result is flattened into a sorted slice. A
// null collection decodes to nil, which callers treat as "retry".
func (c *Client) Instances(ctx context.Context, typ cloud.Type) ([]cloud.Instance, error) {
	var byHostname map[string]cloud.Instance
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/proxmox/$username/%s", typ), nil, true, &byHostname)
	if err != nil {
		return nil, err
	}
	if byHostname == nil {
		return nil, nil
	}

	instances := make([]cloud.Instance, 0, len(byHostname))
	for hostname, instance := range byHostname {
		if instance.Hostname == "" {
			instance.Hostname = hostname
		}
		instance.Type = typ
		instances = append(instances, instance)
	}
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Hostname < instances[j].Hostname
	})
	return instances, nil
}

// StartInstance boots a stopped instance.
func (c *Client) StartInstance(ctx context.Context, typ cloud.Type, hostname string) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/proxmox/$username/%s/%s/start", typ, hostname), nil, true, nil)
	return err
}

// StopInstance forcibly stops a running instance.
func (c *Client) StopInstance(ctx context.Context, typ cloud.Type, hostname string) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/proxmox/$username/%s/%s/stop", typ, hostname), nil, true, nil)
	return err
}

// ShutdownInstance requests a clean guest shutdown.
func (c *Client) ShutdownInstance(ctx context.Context, typ cloud.Type, hostname string) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/proxmox/$username/%s/%s/shutdown", typ, hostname), nil, true, nil)
	return err
}

// DeleteInstance removes an instance permanently. The instance must be
// shut down first; the action controller sequences that.
func (c *Client) DeleteInstance(ctx context.Context, typ cloud.Type, hostname string) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/proxmox/$username/%s/%s", typ, hostname), nil, true, nil)
	return err
}

// ResetRootPassword regenerates the instance's root credentials and mails
// them to the owner.
func (c *Client) ResetRootPassword(ctx context.Context, typ cloud.Type, hostname string) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/proxmox/$username/%s/%s/reset-root-user", typ, hostname), nil, true, nil)
	return err
}

// MarkInstanceActive renews an instance's activity lease, reactivating it
// if it was deactivated for inactivity.
func (c *Client) MarkInstanceActive(ctx context.Context, typ cloud.Type, hostname string) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/proxmox/$username/%s/%s/active", typ, hostname), nil, true, nil)
	return err
}

// FreeExternalPort asks the backend for an unused external port, used to
// pre-fill the add-port form.
func (c *Client) FreeExternalPort(ctx context.Context, typ cloud.Type, hostname string) (int, error) {
	var port int
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/proxmox/$username/%s/%s/free-external-port", typ, hostname), nil, true, &port)
	return port, err
}
