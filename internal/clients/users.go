package clients

import (
	"context"
	"net/http"

	"github.com/aura-events/registration-service/internal/models"
	"github.com/aura-events/registration-service/internal/registrations"
)

const internalUsersPath = "/users/internal"

// UserClient is the UserAccountGateway backed by the user service's internal API.
type UserClient struct {
	baseClient
}

var _ registrations.UserAccountGateway = (*UserClient)(nil)

// NewUserClient creates a user service client. httpClient may be nil.
func NewUserClient(baseURL string, httpClient *http.Client) *UserClient {
	return &UserClient{baseClient: newBaseClient("user-service", baseURL, httpClient)}
}

// CreateAccount provisions an account and returns its id.
func (c *UserClient) CreateAccount(ctx context.Context, account models.NewAccount) (int64, error) {
	var id int64
	err := c.do(ctx, request{
		operation: "create_account",
		method:    http.MethodPost,
		path:      internalUsersPath,
		body:      account,
		out:       &id,
	})
	return id, err
}

// UpdateAccount sets the account's email.
func (c *UserClient) UpdateAccount(ctx context.Context, userID int64, email string) error {
	return c.do(ctx, request{
		operation: "update_account",
		method:    http.MethodPatch,
		path:      internalUsersPath,
		userID:    &userID,
		body:      models.AccountUpdate{Email: email},
	})
}

// DeleteAccount removes the account.
func (c *UserClient) DeleteAccount(ctx context.Context, userID int64) error {
	return c.do(ctx, request{
		operation: "delete_account",
		method:    http.MethodDelete,
		path:      internalUsersPath,
		userID:    &userID,
	})
}
