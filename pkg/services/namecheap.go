package services

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/appforge/mcp-connections-hub/pkg/connection"
)

const namecheapBaseURL = "https://api.namecheap.com"

// Namecheap adapts the Namecheap XML API. Every call is a GET against
// /xml.response; the credential is a composite "user|key|ip" string and
// results come back as XML attributes rather than JSON bodies.
type Namecheap struct {
	client *apiClient
	table  *actionTable
}

// NewNamecheap creates the Namecheap adapter.
func NewNamecheap() *Namecheap {
	n := &Namecheap{client: newAPIClient("namecheap", namecheapBaseURL)}
	t := newActionTable("namecheap")

	t.register(ActionSpec{
		Name:        "list_domains",
		Description: "List domains in the account.",
	}, n.listDomains)

	t.register(ActionSpec{
		Name:        "check_availability",
		Description: "Check whether a domain is available for registration.",
		Params: []ParamSpec{
			{Name: "domain", Type: "string", Required: true},
		},
	}, n.checkAvailability)

	t.register(ActionSpec{
		Name:        "get_dns_hosts",
		Description: "List DNS host records for a domain.",
		Params: []ParamSpec{
			{Name: "domain", Type: "string", Required: true},
		},
	}, n.getDNSHosts)

	t.register(ActionSpec{
		Name:        "set_dns_hosts",
		Description: "Replace the DNS host records for a domain.",
		Params: []ParamSpec{
			{Name: "domain", Type: "string", Required: true},
			{Name: "records", Type: "array", Required: true, Description: "Records as {name, type, address, ttl}"},
		},
	}, n.setDNSHosts)

	n.table = t
	return n
}

// Provider returns the catalog id.
func (*Namecheap) Provider() string { return "namecheap" }

// Actions returns the action table.
func (n *Namecheap) Actions() []ActionSpec { return n.table.specs() }

// compositeCredential is the parsed "user|key|ip" credential.
type compositeCredential struct {
	user string
	key  string
	ip   string
}

func parseComposite(credential string) (compositeCredential, error) {
	parts := strings.Split(credential, "|")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return compositeCredential{}, &connection.AuthError{
			Provider: "namecheap",
			Message:  "credential must be of the form user|apikey|clientip",
		}
	}
	return compositeCredential{user: parts[0], key: parts[1], ip: parts[2]}, nil
}

// apiResponse mirrors the XML envelope: status and errors are attributes
// and nested elements, not a JSON body.
type namecheapEnvelope struct {
	XMLName xml.Name `xml:"ApiResponse"`
	Status  string   `xml:"Status,attr"`
	Errors  struct {
		Errors []struct {
			Number  string `xml:"Number,attr"`
			Message string `xml:",chardata"`
		} `xml:"Error"`
	} `xml:"Errors"`
	CommandResponse struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"CommandResponse"`
}

// call issues one command and unwraps the XML envelope. A Status="ERROR"
// envelope becomes a ProviderError carrying the provider's own error text.
func (n *Namecheap) call(ctx context.Context, credential, command string, extra url.Values) ([]byte, error) {
	creds, err := parseComposite(credential)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"ApiUser":  []string{creds.user},
		"ApiKey":   []string{creds.key},
		"UserName": []string{creds.user},
		"ClientIp": []string{creds.ip},
		"Command":  []string{command},
	}
	for key, values := range extra {
		for _, v := range values {
			query.Add(key, v)
		}
	}

	resp, err := n.client.do(ctx, apiRequest{method: http.MethodGet, path: "/xml.response", query: query})
	if err != nil {
		return nil, err
	}

	var envelope namecheapEnvelope
	if err := xml.Unmarshal(resp.body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding namecheap response: %w", err)
	}

	if !strings.EqualFold(envelope.Status, "OK") {
		message := "request failed"
		if len(envelope.Errors.Errors) > 0 {
			e := envelope.Errors.Errors[0]
			message = strings.TrimSpace(e.Message)
			if e.Number != "" {
				message = fmt.Sprintf("[%s] %s", e.Number, message)
			}
		}
		status := resp.status
		if status < 400 {
			// Namecheap reports failures inside a 200 envelope.
			status = http.StatusBadRequest
		}
		return nil, &connection.ProviderError{Provider: "namecheap", StatusCode: status, Message: message}
	}
	return envelope.CommandResponse.Inner, nil
}

// TestConnection verifies the composite credential against
// namecheap.users.getBalances.
func (n *Namecheap) TestConnection(ctx context.Context, credential string) (*connection.AccountInfo, error) {
	creds, err := parseComposite(credential)
	if err != nil {
		return nil, err
	}

	inner, err := n.call(ctx, credential, "namecheap.users.getBalances", nil)
	if err != nil {
		// Any rejected envelope on the balance probe means the key pair
		// is bad: the endpoint has no other failure mode for valid keys.
		var provErr *connection.ProviderError
		if errors.As(err, &provErr) {
			return nil, &connection.AuthError{Provider: "namecheap", Message: provErr.Message}
		}
		return nil, err
	}

	var result struct {
		Balances struct {
			Currency         string `xml:"Currency,attr"`
			AvailableBalance string `xml:"AvailableBalance,attr"`
		} `xml:"UserGetBalancesResult"`
	}
	if err := xml.Unmarshal(wrapInner(inner), &result); err != nil {
		return nil, fmt.Errorf("decoding balances: %w", err)
	}

	return &connection.AccountInfo{
		ID:   creds.user,
		Name: creds.user,
		Extras: map[string]any{
			"currency":          result.Balances.Currency,
			"available_balance": result.Balances.AvailableBalance,
		},
	}, nil
}

// Execute dispatches to the action table.
func (n *Namecheap) Execute(ctx context.Context, action string, params map[string]any, credential string) (any, error) {
	return n.table.execute(ctx, action, params, credential)
}

func (n *Namecheap) listDomains(ctx context.Context, credential string, _ map[string]any) (any, error) {
	inner, err := n.call(ctx, credential, "namecheap.domains.getList", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Domains []struct {
			Name      string `xml:"Name,attr"`
			Expires   string `xml:"Expires,attr"`
			IsExpired bool   `xml:"IsExpired,attr"`
			IsLocked  bool   `xml:"IsLocked,attr"`
			AutoRenew bool   `xml:"AutoRenew,attr"`
		} `xml:"DomainGetListResult>Domain"`
	}
	if err := xml.Unmarshal(wrapInner(inner), &result); err != nil {
		return nil, fmt.Errorf("decoding domain list: %w", err)
	}

	out := make([]map[string]any, 0, len(result.Domains))
	for _, d := range result.Domains {
		out = append(out, map[string]any{
			"name": d.Name, "expires": d.Expires, "expired": d.IsExpired,
			"locked": d.IsLocked, "auto_renew": d.AutoRenew,
		})
	}
	return out, nil
}

func (n *Namecheap) checkAvailability(ctx context.Context, credential string, params map[string]any) (any, error) {
	type checkParams struct {
		Domain string `json:"domain"`
	}
	in, err := decodeParams[checkParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("domain", in.Domain); err != nil {
		return nil, err
	}

	inner, err := n.call(ctx, credential, "namecheap.domains.check", url.Values{"DomainList": []string{in.Domain}})
	if err != nil {
		return nil, err
	}

	var result struct {
		Checks []struct {
			Domain    string `xml:"Domain,attr"`
			Available bool   `xml:"Available,attr"`
			IsPremium bool   `xml:"IsPremiumName,attr"`
		} `xml:"DomainCheckResult"`
	}
	if err := xml.Unmarshal(wrapInner(inner), &result); err != nil {
		return nil, fmt.Errorf("decoding availability: %w", err)
	}
	if len(result.Checks) == 0 {
		return nil, fmt.Errorf("namecheap returned no availability result for %q", in.Domain)
	}

	check := result.Checks[0]
	return map[string]any{
		"domain": check.Domain, "available": check.Available, "premium": check.IsPremium,
	}, nil
}

// splitDomain separates a domain into Namecheap's SLD/TLD query parameters.
func splitDomain(domain string) (sld, tld string, err error) {
	idx := strings.Index(domain, ".")
	if idx <= 0 || idx == len(domain)-1 {
		return "", "", fmt.Errorf("invalid domain %q", domain)
	}
	return domain[:idx], domain[idx+1:], nil
}

func (n *Namecheap) getDNSHosts(ctx context.Context, credential string, params map[string]any) (any, error) {
	type getHostsParams struct {
		Domain string `json:"domain"`
	}
	in, err := decodeParams[getHostsParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("domain", in.Domain); err != nil {
		return nil, err
	}
	sld, tld, err := splitDomain(in.Domain)
	if err != nil {
		return nil, err
	}

	inner, err := n.call(ctx, credential, "namecheap.domains.dns.getHosts",
		url.Values{"SLD": []string{sld}, "TLD": []string{tld}})
	if err != nil {
		return nil, err
	}

	var result struct {
		Hosts []struct {
			Name    string `xml:"Name,attr"`
			Type    string `xml:"Type,attr"`
			Address string `xml:"Address,attr"`
			TTL     int    `xml:"TTL,attr"`
		} `xml:"DomainDNSGetHostsResult>host"`
	}
	if err := xml.Unmarshal(wrapInner(inner), &result); err != nil {
		return nil, fmt.Errorf("decoding dns hosts: %w", err)
	}

	out := make([]map[string]any, 0, len(result.Hosts))
	for _, h := range result.Hosts {
		out = append(out, map[string]any{
			"name": h.Name, "type": h.Type, "address": h.Address, "ttl": h.TTL,
		})
	}
	return out, nil
}

func (n *Namecheap) setDNSHosts(ctx context.Context, credential string, params map[string]any) (any, error) {
	type dnsRecord struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Address string `json:"address"`
		TTL     int    `json:"ttl"`
	}
	type setHostsParams struct {
		Domain  string      `json:"domain"`
		Records []dnsRecord `json:"records"`
	}
	in, err := decodeParams[setHostsParams](params)
	if err != nil {
		return nil, err
	}
	if err := requireString("domain", in.Domain); err != nil {
		return nil, err
	}
	if len(in.Records) == 0 {
		return nil, fmt.Errorf("missing required parameter %q", "records")
	}
	sld, tld, err := splitDomain(in.Domain)
	if err != nil {
		return nil, err
	}

	query := url.Values{"SLD": []string{sld}, "TLD": []string{tld}}
	for i, rec := range in.Records {
		if rec.Name == "" || rec.Type == "" || rec.Address == "" {
			return nil, fmt.Errorf("record %d must include name, type and address", i)
		}
		ttl := rec.TTL
		if ttl <= 0 {
			ttl = 1800
		}
		idx := strconv.Itoa(i + 1)
		query.Set("HostName"+idx, rec.Name)
		query.Set("RecordType"+idx, rec.Type)
		query.Set("Address"+idx, rec.Address)
		query.Set("TTL"+idx, strconv.Itoa(ttl))
	}

	inner, err := n.call(ctx, credential, "namecheap.domains.dns.setHosts", query)
	if err != nil {
		return nil, err
	}

	var result struct {
		Set struct {
			Domain    string `xml:"Domain,attr"`
			IsSuccess bool   `xml:"IsSuccess,attr"`
		} `xml:"DomainDNSSetHostsResult"`
	}
	if err := xml.Unmarshal(wrapInner(inner), &result); err != nil {
		return nil, fmt.Errorf("decoding set hosts result: %w", err)
	}
	return map[string]any{
		"domain": result.Set.Domain, "success": result.Set.IsSuccess, "records": len(in.Records),
	}, nil
}

// wrapInner re-wraps CommandResponse inner XML so it can be unmarshaled
// into a result struct with a single known root.
func wrapInner(inner []byte) []byte {
	return append(append([]byte("<CommandResponse>"), inner...), []byte("</CommandResponse>")...)
}
