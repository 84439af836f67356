// Package query_tools provides the SOQL query tool.
package query_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/forcerelay/forcerelay/internal/server"
	"github.com/forcerelay/forcerelay/internal/tools/common"
)

// RegisterQueryTools registers the SOQL query tool with the MCP server.
func RegisterQueryTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	queryTool := mcp.NewTool("salesforce_query",
		mcp.WithDescription("Run a SOQL query against the caller's Salesforce org and return the matching records"),
		mcp.WithString("soql",
			mcp.Required(),
			mcp.Description("The SOQL query to run, e.g. 'SELECT Id, Name FROM Account LIMIT 10'"),
		),
	)

	s.AddTool(queryTool, common.InstrumentedToolHandler("salesforce_query", "query", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, _ := request.Params.Arguments.(map[string]interface{})

			soql, ok := args["soql"].(string)
			if !ok || soql == "" {
				return mcp.NewToolResultError("soql is required"), nil
			}

			client, err := common.GetSalesforceClient(ctx, sc)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			result, err := client.Query(ctx, soql)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Query failed: %v", err)), nil
			}

			out, _ := json.MarshalIndent(result, "", "  ")
			return mcp.NewToolResultText(string(out)), nil
		}))

	return nil
}
