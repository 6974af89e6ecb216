package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/finledger/backoffice/internal/customer/domain"
	"github.com/finledger/backoffice/internal/customer/repository"
	"github.com/finledger/backoffice/internal/orgcontext"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, snowflake.ID) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Customer{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
	return svc, node.Generate()
}

func orgContext(orgID snowflake.ID) context.Context {
	return orgcontext.WithOrgID(context.Background(), int64(orgID))
}

func TestCreateCustomer(t *testing.T) {
	svc, orgID := newService(t)
	ctx := orgContext(orgID)

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{
		Name:  "  Acme Industrial  ",
		Email: "billing@acme.test",
		Phone: "+1-555-0100",
	})
	require.NoError(t, err)

	assert.NotZero(t, created.ID)
	assert.Equal(t, orgID, created.OrgID)
	assert.Equal(t, "Acme Industrial", created.Name)
	assert.Equal(t, "billing@acme.test", created.Email)
	// Code is derived from the name plus the ID, so it is unique per customer.
	assert.Contains(t, created.Code, "acme-industrial-")

	found, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestCreateCustomerValidation(t *testing.T) {
	svc, orgID := newService(t)
	ctx := orgContext(orgID)

	tests := []struct {
		name string
		req  domain.CreateCustomerRequest
		want error
	}{
		{name: "empty name", req: domain.CreateCustomerRequest{Email: "a@b.test"}, want: domain.ErrInvalidName},
		{name: "empty email", req: domain.CreateCustomerRequest{Name: "Acme"}, want: domain.ErrInvalidEmail},
		{name: "malformed email", req: domain.CreateCustomerRequest{Name: "Acme", Email: "nope"}, want: domain.ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := svc.Create(context.Background(), domain.CreateCustomerRequest{Name: "Acme", Email: "a@b.test"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}

func TestListCustomers(t *testing.T) {
	svc, orgID := newService(t)
	ctx := orgContext(orgID)

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, domain.CreateCustomerRequest{
			Name:  fmt.Sprintf("Customer %d", i),
			Email: fmt.Sprintf("c%d@acme.test", i),
		})
		require.NoError(t, err)
	}

	firstPage, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, firstPage.Customers, 3)
	assert.True(t, firstPage.HasMore)
	require.NotEmpty(t, firstPage.NextPageToken)

	secondPage, err := svc.List(ctx, domain.ListCustomerRequest{PageSize: 3, PageToken: firstPage.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, secondPage.Customers, 2)
	assert.False(t, secondPage.HasMore)

	byEmail, err := svc.List(ctx, domain.ListCustomerRequest{Email: "c2@acme.test"})
	require.NoError(t, err)
	require.Len(t, byEmail.Customers, 1)
	assert.Equal(t, "Customer 2", byEmail.Customers[0].Name)
}

func TestListScopedToOrganization(t *testing.T) {
	svc, orgID := newService(t)

	_, err := svc.Create(orgContext(orgID), domain.CreateCustomerRequest{
		Name:  "Acme Industrial",
		Email: "billing@acme.test",
	})
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	otherOrg := node.Generate()

	resp, err := svc.List(orgContext(otherOrg), domain.ListCustomerRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Customers)
}

func TestGetByIDErrors(t *testing.T) {
	svc, orgID := newService(t)
	ctx := orgContext(orgID)

	_, err := svc.GetByID(ctx, domain.GetCustomerRequest{ID: "garbage"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	_, err = svc.GetByID(ctx, domain.GetCustomerRequest{ID: node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
