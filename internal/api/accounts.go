package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/UCCNetsoc/cloud/internal/rest"
)

// IsLoggedIn probes the accounts endpoint with the current token. It is
// the cheap way to tell whether the backend accepts our session.
func (c *Client) IsLoggedIn(ctx context.Context) bool {
	status, err := c.do(ctx, http.MethodGet, "/accounts/", nil, true, nil)
	return err == nil && status == http.StatusOK
}

// EnsureHomeDirectory creates the user's home directory if it does not
// exist yet. Called once after every interactive sign-in.
func (c *Client) EnsureHomeDirectory(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodGet, "/accounts/$username/home-directory", nil, true, nil)
	if err == nil && status == http.StatusOK {
		return nil
	}

	var restErr *rest.StatusError
	if !errors.As(err, &restErr) || restErr.StatusCode != http.StatusNotFound {
		return err
	}

	if _, err := c.do(ctx, http.MethodPost, "/accounts/$username/home-directory", nil, true, nil); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	return nil
}

// SignupUCCStudent registers a new account for a UCC student.
func (c *Client) SignupUCCStudent(ctx context.Context, username, email string) (*rest.Info, error) {
	body := struct {
		Email    string `json:"email"`
		Username string `json:"username"`
	}{Email: email, Username: username}

	var info rest.Info
	_, err := c.do(ctx, http.MethodPost, "/signups/ucc-student", body, false, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// SendVerificationEmail asks the backend to send a verification mail. The
// captcha token proves the request came from a human.
func (c *Client) SendVerificationEmail(ctx context.Context, usernameOrEmail, captchaToken string) (*rest.Info, error) {
	body := struct {
		Captcha string `json:"captcha"`
	}{Captcha: captchaToken}

	var info rest.Info
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/accounts/%s/verification-email", usernameOrEmail), body, false, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// VerifyAccount completes signup with the emailed token and sets the
// account password.
func (c *Client) VerifyAccount(ctx context.Context, usernameOrEmail, token, password string) (*rest.Info, error) {
	body := struct {
		SerializedVerification struct {
			Token string `json:"token"`
		} `json:"serialized_verification"`
		Password string `json:"password"`
	}{Password: password}
	body.SerializedVerification.Token = token

	var info rest.Info
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/accounts/%s/verification", usernameOrEmail), body, false, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
