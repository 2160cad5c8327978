package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

const stripeBaseURL = "https://api.stripe.com"

// Stripe adapts the Stripe REST API: bearer authentication with
// form-urlencoded request bodies on every write endpoint.
type Stripe struct {
	client *apiClient
	table  *actionTable
}

// NewStripe creates the Stripe adapter.
func NewStripe() *Stripe {
	s := &Stripe{client: newAPIClient("stripe", stripeBaseURL)}
	t := newActionTable("stripe")

	t.register(ActionSpec{
		Name:        "list_customers",
		Description: "List customers.",
		Params: []ParamSpec{
			{Name: "limit", Type: "number", Description: "Max customers to return (default 10)"},
		},
	}, s.listCustomers)

	t.register(ActionSpec{
		Name:        "create_product",
		Description: "Create a product.",
		Params: []ParamSpec{
			{Name: "name", Type: "string", Required: true},
			{Name: "description", Type: "string"},
		},
	}, s.createProduct)

	t.register(ActionSpec{
		Name:        "create_price",
		Description: "Create a price for a product.",
		Params: []ParamSpec{
			{Name: "product", Type: "string", Required: true, Description: "Product id"},
			{Name: "unit_amount", Type: "number", Required: true, Description: "Amount in the smallest currency unit"},
			{Name: "currency", Type: "string", Description: "ISO currency code (default usd)"},
		},
	}, s.createPrice)

	t.register(ActionSpec{
		Name:        "create_payment_link",
		Description: "Create a shareable payment link for a price.",
		Params: []ParamSpec{
			{Name: "price", Type: "string", Required: true, Description: "Price id"},
			{Name: "quantity", Type: "number", Description: "Default 1"},
		},
	}, s.createPaymentLink)

	s.table = t
	return s
}

// Provider returns the catalog id.
func (*Stripe) Provider() string { return "stripe" }

// Actions returns the action table.
func (s *Stripe) Actions() []ActionSpec { return s.table.specs() }

func (s *Stripe) authHeader(credential string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + credential}}
}

// TestConnection verifies the secret key against GET /v1/account.
func (s *Stripe) TestConnection(ctx context.Context, credential string) (*connection.AccountInfo, error) {
	var account struct {
		ID              string `json:"id"`
		Email           string `json:"email"`
		Country         string `json:"country"`
		BusinessProfile struct {
			Name string `json:"name"`
		} `json:"business_profile"`
		Settings struct {
			Dashboard struct {
				DisplayName string `json:"display_name"`
			} `json:"dashboard"`
		} `json:"settings"`
	}
	if err := s.client.doJSON(ctx, http.MethodGet, "/v1/account", nil, s.authHeader(credential), nil, &account); err != nil {
		return nil, asAuthError("stripe", err)
	}

	name := account.BusinessProfile.Name
	if name == "" {
		name = account.Settings.Dashboard.DisplayName
	}
	return &connection.AccountInfo{
		ID:     account.ID,
		Name:   name,
		Email:  account.Email,
		Extras: map[string]any{"country": account.Country},
	}, nil
}

// Execute dispatches to the action table.
func (s *Stripe) Execute(ctx context.Context, action string, params map[string]any, credential string) (any, error) {
	return s.table.execute(ctx, action, params, credential)
}

func (s *Stripe) listCustomers(ctx context.Context, credential string, params map[string]any) (any, error) {
	type listCustomersParams struct {
		Limit int `json:"limit"`
	}
	in, err := decodeParams[listCustomersParams](params)
	if err != nil {
		return nil, err
	}
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 10
	}

	var out struct {
		Data []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"data"`
	}
	query := url.Values{"limit": []string{strconv.Itoa(in.Limit)}}
	if err := s.client.doJSON(ctx, http.MethodGet, "/v1/customers", query, s.authHeader(credential), nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (s *Stripe) createProduct(ctx context.Context, credential string, params map[string]any) (any, error) {
	type createProductParams struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	in, err := decodeParams[createProductParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("name", in.Name); err != nil {
		return nil, err
	}

	form := url.Values{"name": []string{in.Name}}
	if in.Description != "" {
		form.Set("description", in.Description)
	}

	var product struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := s.client.doForm(ctx, http.MethodPost, "/v1/products", form, s.authHeader(credential), &product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *Stripe) createPrice(ctx context.Context, credential string, params map[string]any) (any, error) {
	type createPriceParams struct {
		Product    string `json:"product"`
		UnitAmount int64  `json:"unit_amount"`
		Currency   string `json:"currency"`
	}
	in, err := decodeParams[createPriceParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("product", in.Product); err != nil {
		return nil, err
	}
	if in.UnitAmount <= 0 {
		return nil, fmt.Errorf("parameter %q must be a positive integer", "unit_amount")
	}
	if in.Currency == "" {
		in.Currency = "usd"
	}

	form := url.Values{
		"product":     []string{in.Product},
		"unit_amount": []string{strconv.FormatInt(in.UnitAmount, 10)},
		"currency":    []string{in.Currency},
	}

	var price struct {
		ID         string `json:"id"`
		UnitAmount int64  `json:"unit_amount"`
		Currency   string `json:"currency"`
	}
	if err := s.client.doForm(ctx, http.MethodPost, "/v1/prices", form, s.authHeader(credential), &price); err != nil {
		return nil, err
	}
	return price, nil
}

func (s *Stripe) createPaymentLink(ctx context.Context, credential string, params map[string]any) (any, error) {
	type createPaymentLinkParams struct {
		Price    string `json:"price"`
		Quantity int    `json:"quantity"`
	}
	in, err := decodeParams[createPaymentLinkParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("price", in.Price); err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	form := url.Values{
		"line_items[0][price]":    []string{in.Price},
		"line_items[0][quantity]": []string{strconv.Itoa(in.Quantity)},
	}

	var link struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := s.client.doForm(ctx, http.MethodPost, "/v1/payment_links", form, s.authHeader(credential), &link); err != nil {
		return nil, err
	}
	return link, nil
}
