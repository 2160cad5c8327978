package metatool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/yosida95/uritemplate/v3"

	"github.com/appforge/mcp-connections-hub/pkg/catalog"
)

// connectionTemplateURI is the resource template for per-provider
// connection state.
const connectionTemplateURI = "connection://{provider}"

// dispatchInput is the typed input of the connection tool.
type dispatchInput struct {
	Provider string         `json:"provider" jsonschema:"Catalog id of the provider, e.g. github or stripe"`
	Action   string         `json:"action" jsonschema:"Name of the action to run, from the provider's action list"`
	Params   map[string]any `json:"params,omitempty" jsonschema:"Action parameters; see the provider's action list for names and types"`
}

// statusInput is empty since the status tool takes no parameters.
type statusInput struct{}

// RegisterTools registers the connection dispatch tool and the read-only
// status tool on the MCP server.
func (d *Dispatcher) RegisterTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "connection",
		Description: "Run an action against a connected external provider (GitHub, Vercel, Netlify, " +
			"Render, Supabase, Stripe, Resend, Namecheap). Use the connections_status tool to see " +
			"which providers are connected and what actions each supports.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input dispatchInput) (*mcp.CallToolResult, any, error) {
		text, isErr := d.Dispatch(ctx, input.Provider, input.Action, input.Params)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
			IsError: isErr,
		}, nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "connections_status",
		Description: "List every available provider with its connection status, signed-in account, and supported actions.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ statusInput) (*mcp.CallToolResult, any, error) {
		data, err := json.MarshalIndent(d.CapabilityListing(), "", "  ")
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
				IsError: true,
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil, nil
	})
}

// RegisterResources registers the connection://{provider} resource template.
func (d *Dispatcher) RegisterResources(server *mcp.Server) {
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: connectionTemplateURI,
		Name:        "Provider Connection",
		Description: "Connection state for one provider: status, signed-in account, and supported actions",
		MIMEType:    "application/json",
	}, d.handleConnectionResource)
}

func (d *Dispatcher) handleConnectionResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	provider, err := parseProviderURI(uri)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if _, ok := catalog.Get(provider); !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	for _, entry := range d.CapabilityListing() {
		if entry.Provider != provider {
			continue
		}
		data, err := json.MarshalIndent(entry, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding connection resource: %w", err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			}},
		}, nil
	}
	return nil, mcp.ResourceNotFoundError(uri)
}

// parseProviderURI extracts the provider id from a connection:// URI.
func parseProviderURI(uri string) (string, error) {
	tmpl, err := uritemplate.New(connectionTemplateURI)
	if err != nil {
		return "", fmt.Errorf("invalid template %q: %w", connectionTemplateURI, err)
	}
	match := tmpl.Match(uri)
	if match == nil {
		return "", fmt.Errorf("uri %q does not match %q", uri, connectionTemplateURI)
	}
	provider := match.Get("provider").String()
	if provider == "" {
		return "", fmt.Errorf("uri %q names no provider", uri)
	}
	return provider, nil
}
