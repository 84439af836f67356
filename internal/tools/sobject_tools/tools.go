// Package sobject_tools provides object metadata and record tools.
package sobject_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/forcerelay/forcerelay/internal/server"
	"github.com/forcerelay/forcerelay/internal/tools/common"
)

// RegisterSObjectTools registers object metadata and record tools with the
// MCP server. Write tools are skipped entirely when readOnly is set, so a
// client never discovers capabilities it cannot use.
func RegisterSObjectTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registerMetadataTools(s, sc)
	registerRecordTools(s, sc, readOnly)
	return nil
}

// registerMetadataTools registers the read-only metadata tools.
func registerMetadataTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	listSObjectsTool := mcp.NewTool("salesforce_list_sobjects",
		mcp.WithDescription("List the object types available in the caller's Salesforce org"),
	)

	s.AddTool(listSObjectsTool, common.InstrumentedToolHandler("salesforce_list_sobjects", "describe_global", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			client, err := common.GetSalesforceClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			sobjects, err := client.ListSObjects(ctx)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to list sobjects: %v", err)), nil
			}

			out, _ := json.MarshalIndent(sobjects, "", "  ")
			return mcp.NewToolResultText(string(out)), nil
		}))

	describeTool := mcp.NewTool("salesforce_describe_sobject",
		mcp.WithDescription("Describe the fields and metadata of one Salesforce object type"),
		mcp.WithString("sobject",
			mcp.Required(),
			mcp.Description("The API name of the object type, e.g. 'Account' or 'CustomThing__c'"),
		),
	)

	s.AddTool(describeTool, common.InstrumentedToolHandler("salesforce_describe_sobject", "describe", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			sobject, ok := args["sobject"].(string)
			if !ok || sobject == "" {
				return mcp.NewToolResultError("sobject is required"), nil
			}

			client, err := common.GetSalesforceClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			describe, err := client.DescribeSObject(ctx, sobject)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to describe %s: %v", sobject, err)), nil
			}

			out, _ := json.MarshalIndent(describe, "", "  ")
			return mcp.NewToolResultText(string(out)), nil
		}))
}

// registerRecordTools registers record access tools. Creation requires write
// access.
func registerRecordTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	getRecordTool := mcp.NewTool("salesforce_get_record",
		mcp.WithDescription("Fetch a single record by id"),
		mcp.WithString("sobject",
			mcp.Required(),
			mcp.Description("The API name of the object type"),
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The record id"),
		),
		mcp.WithString("fields",
			mcp.Description("Optional comma-separated list of fields to return; all fields when omitted"),
		),
	)

	s.AddTool(getRecordTool, common.InstrumentedToolHandler("salesforce_get_record", "get_record", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			sobject, _ := args["sobject"].(string)
			recordID, _ := args["id"].(string)
			if sobject == "" || recordID == "" {
				return mcp.NewToolResultError("sobject and id are required"), nil
			}

			var fields []string
			if raw, ok := args["fields"].(string); ok && raw != "" {
				for _, f := range strings.Split(raw, ",") {
					if f = strings.TrimSpace(f); f != "" {
						fields = append(fields, f)
					}
				}
			}

			client, err := common.GetSalesforceClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			record, err := client.GetRecord(ctx, sobject, recordID, fields)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get record: %v", err)), nil
			}

			out, _ := json.MarshalIndent(record, "", "  ")
			return mcp.NewToolResultText(string(out)), nil
		}))

	if readOnly {
		return
	}

	createRecordTool := mcp.NewTool("salesforce_create_record",
		mcp.WithDescription("Create a single record"),
		mcp.WithString("sobject",
			mcp.Required(),
			mcp.Description("The API name of the object type"),
		),
		mcp.WithString("fields",
			mcp.Required(),
			mcp.Description(`The record fields as a JSON object, e.g. '{"LastName": "Smith", "Company": "Acme"}'`),
		),
	)

	s.AddTool(createRecordTool, common.InstrumentedToolHandler("salesforce_create_record", "create_record", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			sobject, _ := args["sobject"].(string)
			if sobject == "" {
				return mcp.NewToolResultError("sobject is required"), nil
			}

			rawFields, _ := args["fields"].(string)
			if rawFields == "" {
				return mcp.NewToolResultError("fields is required"), nil
			}

			var fields map[string]any
			if err := json.Unmarshal([]byte(rawFields), &fields); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("fields is not a valid JSON object: %v", err)), nil
			}

			client, err := common.GetSalesforceClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			result, err := client.CreateRecord(ctx, sobject, fields)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to create record: %v", err)), nil
			}

			out, _ := json.MarshalIndent(result, "", "  ")
			return mcp.NewToolResultText(string(out)), nil
		}))
}
