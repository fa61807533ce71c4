// Package shopify talks to the Shopify Admin GraphQL API. Only the
// discount-code mutations the redemption flow needs are implemented.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lavivara/go-loyalty/models"
	"github.com/shopspring/decimal"
)

const apiVersion = "2024-10"

type DiscountClient struct {
	ShopDomain  string
	AccessToken string
	Client      *http.Client
}

func NewDiscountClient(shopDomain, accessToken string) *DiscountClient {
	return &DiscountClient{
		ShopDomain:  shopDomain,
		AccessToken: accessToken,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type graphqlResponse struct {
	Data map[string]struct {
		UserErrors []struct {
			Field   []string `json:"field"`
			Message string   `json:"message"`
		} `json:"userErrors"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const basicCodeDiscountMutation = `
mutation discountCodeBasicCreate($basicCodeDiscount: DiscountCodeBasicInput!) {
  discountCodeBasicCreate(basicCodeDiscount: $basicCodeDiscount) {
    userErrors { field message }
  }
}`

const freeShippingDiscountMutation = `
mutation discountCodeFreeShippingCreate($freeShippingCodeDiscount: DiscountCodeFreeShippingInput!) {
  discountCodeFreeShippingCreate(freeShippingCodeDiscount: $freeShippingCodeDiscount) {
    userErrors { field message }
  }
}`

// CreateDiscountCode registers the code on Shopify. Reward types with no
// discount semantics (products, experiences, exclusives) are fulfilled
// manually and need no code on the platform.
func (c *DiscountClient) CreateDiscountCode(ctx context.Context, reward models.Reward, code string) error {
	switch reward.Type {
	case models.RewardTypeDiscount:
		return c.createBasicCode(ctx, reward, code)
	case models.RewardTypeShipping:
		return c.createFreeShippingCode(ctx, reward, code)
	}
	return nil
}

func (c *DiscountClient) createBasicCode(ctx context.Context, reward models.Reward, code string) error {
	if reward.DiscountValue == nil || reward.DiscountType == nil {
		return fmt.Errorf("reward %d has no discount value", reward.ID)
	}

	var customerGets map[string]interface{}
	switch *reward.DiscountType {
	case models.DiscountPercentage:
		customerGets = map[string]interface{}{
			"value": map[string]interface{}{
				"percentage": reward.DiscountValue.Div(decimal.NewFromInt(100)).InexactFloat64(),
			},
			"items": map[string]interface{}{"all": true},
		}
	case models.DiscountFixedAmount:
		customerGets = map[string]interface{}{
			"value": map[string]interface{}{
				"discountAmount": map[string]interface{}{
					"amount":         reward.DiscountValue.String(),
					"appliesOnEachItem": false,
				},
			},
			"items": map[string]interface{}{"all": true},
		}
	default:
		return fmt.Errorf("unknown discount type %q", *reward.DiscountType)
	}

	variables := map[string]interface{}{
		"basicCodeDiscount": map[string]interface{}{
			"title":                fmt.Sprintf("VIP reward: %s", reward.Name),
			"code":                 code,
			"startsAt":             time.Now().UTC().Format(time.RFC3339),
			"customerSelection":    map[string]interface{}{"all": true},
			"customerGets":         customerGets,
			"appliesOncePerCustomer": true,
			"usageLimit":           1,
		},
	}

	return c.execute(ctx, graphqlRequest{Query: basicCodeDiscountMutation, Variables: variables})
}

func (c *DiscountClient) createFreeShippingCode(ctx context.Context, reward models.Reward, code string) error {
	variables := map[string]interface{}{
		"freeShippingCodeDiscount": map[string]interface{}{
			"title":                fmt.Sprintf("VIP reward: %s", reward.Name),
			"code":                 code,
			"startsAt":             time.Now().UTC().Format(time.RFC3339),
			"customerSelection":    map[string]interface{}{"all": true},
			"destination":          map[string]interface{}{"all": true},
			"appliesOncePerCustomer": true,
			"usageLimit":           1,
		},
	}

	return c.execute(ctx, graphqlRequest{Query: freeShippingDiscountMutation, Variables: variables})
}

func (c *DiscountClient) execute(ctx context.Context, gql graphqlRequest) error {
	url := fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.ShopDomain, apiVersion)

	payload, err := json.Marshal(gql)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.AccessToken)

	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shopify returned %d: %s", resp.StatusCode, string(body))
	}

	var out graphqlResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("failed to decode shopify response: %w", err)
	}

	if len(out.Errors) > 0 {
		return fmt.Errorf("shopify graphql error: %s", out.Errors[0].Message)
	}
	for _, result := range out.Data {
		if len(result.UserErrors) > 0 {
			return fmt.Errorf("shopify rejected discount: %s", result.UserErrors[0].Message)
		}
	}

	return nil
}
