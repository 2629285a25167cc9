package polar

// Scope is a Polar OAuth scope.
type Scope string

const (
	ScopeOpenID  Scope = "openid"
	ScopeProfile Scope = "profile"
	ScopeEmail   Scope = "email"

	ScopeUserRead Scope = "user:read"

	ScopeOrganizationsRead  Scope = "organizations:read"
	ScopeOrganizationsWrite Scope = "organizations:write"

	ScopeCustomFieldsRead  Scope = "custom_fields:read"
	ScopeCustomFieldsWrite Scope = "custom_fields:write"

	ScopeDiscountsRead  Scope = "discounts:read"
	ScopeDiscountsWrite Scope = "discounts:write"

	ScopeCheckoutLinksRead  Scope = "checkout_links:read"
	ScopeCheckoutLinksWrite Scope = "checkout_links:write"

	ScopeCheckoutsRead  Scope = "checkouts:read"
	ScopeCheckoutsWrite Scope = "checkouts:write"

	ScopeProductsRead  Scope = "products:read"
	ScopeProductsWrite Scope = "products:write"

	ScopeBenefitsRead  Scope = "benefits:read"
	ScopeBenefitsWrite Scope = "benefits:write"

	ScopeEventsRead  Scope = "events:read"
	ScopeEventsWrite Scope = "events:write"

	ScopeMetersRead  Scope = "meters:read"
	ScopeMetersWrite Scope = "meters:write"

	ScopeFilesRead  Scope = "files:read"
	ScopeFilesWrite Scope = "files:write"

	ScopeSubscriptionsRead  Scope = "subscriptions:read"
	ScopeSubscriptionsWrite Scope = "subscriptions:write"

	ScopeCustomersRead  Scope = "customers:read"
	ScopeCustomersWrite Scope = "customers:write"

	ScopeCustomerSessionsWrite Scope = "customer_sessions:write"

	ScopeOrdersRead Scope = "orders:read"

	ScopeRefundsRead  Scope = "refunds:read"
	ScopeRefundsWrite Scope = "refunds:write"

	ScopeMetricsRead Scope = "metrics:read"

	ScopeWebhooksRead  Scope = "webhooks:read"
	ScopeWebhooksWrite Scope = "webhooks:write"

	ScopeExternalOrganizationsRead Scope = "external_organizations:read"

	ScopeLicenseKeysRead  Scope = "license_keys:read"
	ScopeLicenseKeysWrite Scope = "license_keys:write"

	ScopeRepositoriesRead  Scope = "repositories:read"
	ScopeRepositoriesWrite Scope = "repositories:write"

	ScopeIssuesRead  Scope = "issues:read"
	ScopeIssuesWrite Scope = "issues:write"

	ScopeCustomerPortalRead  Scope = "customer_portal:read"
	ScopeCustomerPortalWrite Scope = "customer_portal:write"
)

var allScopes = []Scope{
	ScopeOpenID, ScopeProfile, ScopeEmail,
	ScopeUserRead,
	ScopeOrganizationsRead, ScopeOrganizationsWrite,
	ScopeCustomFieldsRead, ScopeCustomFieldsWrite,
	ScopeDiscountsRead, ScopeDiscountsWrite,
	ScopeCheckoutLinksRead, ScopeCheckoutLinksWrite,
	ScopeCheckoutsRead, ScopeCheckoutsWrite,
	ScopeProductsRead, ScopeProductsWrite,
	ScopeBenefitsRead, ScopeBenefitsWrite,
	ScopeEventsRead, ScopeEventsWrite,
	ScopeMetersRead, ScopeMetersWrite,
	ScopeFilesRead, ScopeFilesWrite,
	ScopeSubscriptionsRead, ScopeSubscriptionsWrite,
	ScopeCustomersRead, ScopeCustomersWrite,
	ScopeCustomerSessionsWrite,
	ScopeOrdersRead,
	ScopeRefundsRead, ScopeRefundsWrite,
	ScopeMetricsRead,
	ScopeWebhooksRead, ScopeWebhooksWrite,
	ScopeExternalOrganizationsRead,
	ScopeLicenseKeysRead, ScopeLicenseKeysWrite,
	ScopeRepositoriesRead, ScopeRepositoriesWrite,
	ScopeIssuesRead, ScopeIssuesWrite,
	ScopeCustomerPortalRead, ScopeCustomerPortalWrite,
}

// AllScopes returns every scope Polar defines.
func AllScopes() []Scope {
	out := make([]Scope, len(allScopes))
	copy(out, allScopes)
	return out
}

// ParseScopes converts strings to Scopes, rejecting any Polar does not define.
func ParseScopes(values []string) ([]Scope, error) {
	known := make(map[Scope]bool, len(allScopes))
	for _, s := range allScopes {
		known[s] = true
	}
	out := make([]Scope, 0, len(values))
	for _, v := range values {
		s := Scope(v)
		if !known[s] {
			return nil, &UnknownScopeError{Scope: v}
		}
		out = append(out, s)
	}
	return out, nil
}

// UnknownScopeError is returned by ParseScopes.
type UnknownScopeError struct {
	Scope string
}

func (e *UnknownScopeError) Error() string {
	return "polar: unknown scope " + e.Scope
}

func scopeStrings(scopes []Scope) []string {
	out := make([]string, len(scopes))
	for i, s := range scopes {
		out[i] = string(s)
	}
	return out
}
