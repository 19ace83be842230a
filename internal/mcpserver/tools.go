package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flemzord/toolgate/internal/catalog"
	"github.com/flemzord/toolgate/internal/dispatch"
	"github.com/flemzord/toolgate/internal/security"
)

var errNoNames = errors.New("at least one name is required")

// callSpecSchema describes one element of a chain in tool input schemas.
var callSpecSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"toolName": map[string]any{
			"type":        "string",
			"description": "Catalog tool to call",
		},
		"staticParams": map[string]any{
			"type":        "object",
			"description": "Literal parameters",
		},
		"paramsMapping": map[string]any{
			"type":        "object",
			"description": "Parameters computed from earlier steps, e.g. \"$.0.id\"",
		},
	},
	"required": []string{"toolName"},
}

func readOnly() mcp.ToolOption {
	return mcp.WithToolAnnotation(mcp.ToolAnnotation{
		ReadOnlyHint:    mcp.ToBoolPtr(true),
		DestructiveHint: mcp.ToBoolPtr(false),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	})
}

func (s *Server) add(tool mcp.Tool, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)) {
	s.mcp.AddTool(tool, h)
	s.tools = append(s.tools, tool.Name)
}

func (s *Server) registerTools() {
	s.add(mcp.NewTool(catalog.OpListCategories,
		mcp.WithDescription("List tool categories with their descriptions and tool counts. Start here: execution is unlocked once the catalog has been consulted."),
		readOnly(),
	), s.handleListCategories)

	s.add(mcp.NewTool(catalog.OpListToolNames,
		mcp.WithDescription("List the tools of the given categories. Unknown categories are reported under \"invalid\"."),
		mcp.WithArray("categories",
			mcp.Required(),
			mcp.Description("Category names from list_categories"),
			mcp.WithStringItems(),
		),
		readOnly(),
	), s.handleListToolNames)

	s.add(mcp.NewTool(catalog.OpGetToolSchemas,
		mcp.WithDescription("Return the parameter schema of each named tool. Unknown tools are reported under \"notFound\"."),
		mcp.WithArray("tools",
			mcp.Required(),
			mcp.Description("Tool names from list_tool_names"),
			mcp.WithStringItems(),
		),
		readOnly(),
	), s.handleGetToolSchemas)

	s.add(mcp.NewTool(catalog.OpExecuteTool,
		mcp.WithDescription("Run one catalog tool. Consult the catalog first; calls in a session without discovery are refused with guidance."),
		mcp.WithString("toolName",
			mcp.Required(),
			mcp.Description("Name of the catalog tool"),
		),
		mcp.WithObject("params",
			mcp.Description("Parameters matching the tool schema"),
		),
	), s.handleExecuteTool)

	s.add(mcp.NewTool(catalog.OpExecuteBatch,
		mcp.WithDescription("Run tools in order. Step i may reference the result of an earlier step j with \"$.j.path\" in paramsMapping. The chain stops at the first failure and nothing is rolled back."),
		mcp.WithArray("tools",
			mcp.Required(),
			mcp.Description("Ordered steps"),
			mcp.Items(callSpecSchema),
		),
	), s.handleExecuteBatch)

	s.add(mcp.NewTool(catalog.OpValidateChain,
		mcp.WithDescription("Check a chain without running it: unknown tools, malformed expressions and references to steps that do not precede the referencing step."),
		mcp.WithArray("tools",
			mcp.Required(),
			mcp.Description("Ordered steps"),
			mcp.Items(callSpecSchema),
		),
		readOnly(),
	), s.handleValidateChain)

	s.add(mcp.NewTool(catalog.OpSessionStats,
		mcp.WithDescription("Report statistics of the current session."),
		readOnly(),
	), s.handleSessionStats)
}

func (s *Server) handleListCategories(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list := s.query.ListCategories()
	s.catalogQueried(catalog.OpListCategories, nil)
	return jsonResult(list)
}

func (s *Server) handleListToolNames(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Categories []string `json:"categories"`
	}
	if err := unmarshalArgs(request.Params.Arguments, &args); err != nil {
		return invalidArgs(catalog.OpListToolNames, err)
	}
	if len(args.Categories) == 0 {
		return invalidArgs(catalog.OpListToolNames, fmt.Errorf("categories: %w", errNoNames))
	}

	names := s.query.ListToolNames(args.Categories)
	s.catalogQueried(catalog.OpListToolNames, args.Categories)
	return jsonResult(names)
}

func (s *Server) handleGetToolSchemas(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		Tools []string `json:"tools"`
	}
	if err := unmarshalArgs(request.Params.Arguments, &args); err != nil {
		return invalidArgs(catalog.OpGetToolSchemas, err)
	}
	if len(args.Tools) == 0 {
		return invalidArgs(catalog.OpGetToolSchemas, fmt.Errorf("tools: %w", errNoNames))
	}

	schemas := s.query.GetToolSchemas(args.Tools)
	s.catalogQueried(catalog.OpGetToolSchemas, args.Tools)
	return jsonResult(schemas)
}

func (s *Server) handleExecuteTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args struct {
		ToolName string         `json:"toolName"`
		Params   map[string]any `json:"params"`
	}
	if err := unmarshalArgs(request.Params.Arguments, &args); err != nil {
		return invalidArgs(catalog.OpExecuteTool, err)
	}
	if strings.TrimSpace(args.ToolName) == "" {
		return invalidArgs(catalog.OpExecuteTool, errors.New("toolName is required"))
	}

	res, err := s.dispatcher.Execute(ctx, args.ToolName, args.Params)
	if err != nil {
		return errorResult(err)
	}

	out, err := jsonResult(res.Value)
	if err != nil || res.Tip == "" {
		return out, err
	}
	out.Content = append(out.Content, mcp.NewTextContent(res.Tip))
	return out, nil
}

func (s *Server) handleExecuteBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	steps, err := chainArgs(request)
	if err != nil {
		return invalidArgs(catalog.OpExecuteBatch, err)
	}

	res, err := s.dispatcher.ExecuteBatch(ctx, steps)
	if err != nil {
		return errorResult(err)
	}
	if failed, ok := res.Failed(); ok {
		s.logger.Info("chain halted",
			"run_id", res.RunID,
			"step", failed.Index,
			"tool", failed.ToolName,
			"kind", string(dispatch.KindOf(failed.Err)),
		)
	}
	return jsonResult(res)
}

func (s *Server) handleValidateChain(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	steps, err := chainArgs(request)
	if err != nil {
		return invalidArgs(catalog.OpValidateChain, err)
	}
	return jsonResult(s.dispatcher.ValidateChain(steps))
}

func (s *Server) handleSessionStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.gate.Statistics())
}

// catalogQueried records a catalog query in metrics and the audit trail.
func (s *Server) catalogQueried(op string, names []string) {
	s.metrics.CatalogQuery(op)

	ev := security.AuditEvent{
		Type:     security.EventCatalogQuery,
		ToolName: op,
		Outcome:  "ok",
	}
	if len(names) > 0 {
		ev.Metadata = map[string]string{
			"names": strings.Join(names, ","),
			"count": strconv.Itoa(len(names)),
		}
	}
	s.audit.Log(ev)
}

func chainArgs(request mcp.CallToolRequest) ([]dispatch.CallSpec, error) {
	var args struct {
		Tools []dispatch.CallSpec `json:"tools"`
	}
	if err := unmarshalArgs(request.Params.Arguments, &args); err != nil {
		return nil, err
	}
	return args.Tools, nil
}

// unmarshalArgs decodes loosely typed tool arguments into v. Raw JSON is
// decoded directly; numbers are kept as json.Number either way.
func unmarshalArgs(arguments any, v any) error {
	var data []byte
	switch a := arguments.(type) {
	case nil:
		return nil
	case json.RawMessage:
		data = a
	case []byte:
		data = a
	default:
		var err error
		if data, err = json.Marshal(arguments); err != nil {
			return err
		}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult renders err as an MCP tool error whose text is the JSON
// error payload, so clients can branch on "kind".
func errorResult(err error) (*mcp.CallToolResult, error) {
	data, mErr := json.Marshal(dispatch.Describe(err))
	if mErr != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultError(string(data)), nil
}

func invalidArgs(op string, err error) (*mcp.CallToolResult, error) {
	return errorResult(&catalog.ValidationError{
		Tool:   op,
		Detail: "invalid arguments: " + err.Error(),
	})
}
