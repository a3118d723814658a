package mcp

import (
	"context"
	"fmt"

	"github.com/foomo/docserver/service"
	"github.com/foomo/docserver/service/vo"
	json "github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const Version = "0.1.0"

type GetIndexRequest struct {
	Version  string `json:"version"`  // Documentation version, e.g. "latest"
	Language string `json:"language"` // Language code, e.g. "en"
	Type     string `json:"type"`     // "Doc" or "Guide"
}

type GetIndexResponse struct {
	Index []vo.IndexItem `json:"index"`
}

type GetPageRequest struct {
	Version  string `json:"version"`
	Language string `json:"language"`
	Type     string `json:"type"`
	Folder   string `json:"folder"` // Category slug, underscores for spaces
	Name     string `json:"name"`   // Page name inside the category
}

type GetPageResponse struct {
	Page *vo.Page `json:"page"`
}

type GetRecommendedItemsRequest struct {
	Language string `json:"language"`
	Type     string `json:"type"`
}

type GetRecommendedItemsResponse struct {
	Items []vo.RecommendedItem `json:"items"`
}

func typeOption() mcp.ToolOption {
	return mcp.WithString("type",
		mcp.Required(),
		mcp.Description("Documentation tree, either Doc or Guide"),
		mcp.Enum(vo.DocTypeDoc.String(), vo.DocTypeGuide.String()),
	)
}

// NewServer creates an MCP server exposing the documentation tree as tools.
func NewServer(serviceInstance service.Service, logger *zap.Logger) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := server.NewMCPServer(
		"Documentation Server MCP",
		Version,
		server.WithToolCapabilities(false),
	)

	getIndexTool := mcp.NewTool("getIndex",
		mcp.WithDescription("List the categories of a documentation tree with their page names"),
		mcp.WithString("version", mcp.Required(), mcp.Description("Documentation version")),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language code")),
		typeOption(),
	)
	s.AddTool(getIndexTool, mcp.NewTypedToolHandler(getIndexHandler(serviceInstance, logger)))

	getPageTool := mcp.NewTool("getPage",
		mcp.WithDescription("Get a documentation page as markdown together with its summary"),
		mcp.WithString("version", mcp.Required(), mcp.Description("Documentation version")),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language code")),
		typeOption(),
		mcp.WithString("folder", mcp.Required(), mcp.Description("Category slug, underscores for spaces")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Page name")),
	)
	s.AddTool(getPageTool, mcp.NewTypedToolHandler(getPageHandler(serviceInstance, logger)))

	getRecommendedItemsTool := mcp.NewTool("getRecommendedItems",
		mcp.WithDescription("List the curated recommended pages for a language"),
		mcp.WithString("language", mcp.Required(), mcp.Description("Language code")),
		typeOption(),
	)
	s.AddTool(getRecommendedItemsTool, mcp.NewTypedToolHandler(getRecommendedItemsHandler(serviceInstance, logger)))

	return s
}

func parseType(raw string) (vo.DocType, *mcp.CallToolResult) {
	docType, ok := vo.ParseDocType(raw)
	if !ok {
		return "", mcp.NewToolResultError(fmt.Sprintf("type must be %s or %s", vo.DocTypeDoc, vo.DocTypeGuide))
	}
	return docType, nil
}

func textResult(v interface{}) *mcp.CallToolResult {
	responseBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err))
	}
	return mcp.NewToolResultText(string(responseBytes))
}

func getIndexHandler(serviceInstance service.Service, logger *zap.Logger) func(ctx context.Context, request mcp.CallToolRequest, args GetIndexRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GetIndexRequest) (*mcp.CallToolResult, error) {
		logger := callLogger(ctx, logger, "getIndex")
		logger.Debug("tool called", zap.String("version", args.Version), zap.String("language", args.Language), zap.String("type", args.Type))
		if args.Version == "" || args.Language == "" {
			return mcp.NewToolResultError("version and language are required"), nil
		}
		docType, errResult := parseType(args.Type)
		if errResult != nil {
			return errResult, nil
		}

		index, err := serviceInstance.GetIndex(ctx, args.Version, args.Language, docType)
		if err != nil {
			logger.Warn("failed to get index", zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("failed to get index: %v", err)), nil
		}
		return textResult(GetIndexResponse{Index: index}), nil
	}
}

func getPageHandler(serviceInstance service.Service, logger *zap.Logger) func(ctx context.Context, request mcp.CallToolRequest, args GetPageRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GetPageRequest) (*mcp.CallToolResult, error) {
		logger := callLogger(ctx, logger, "getPage")
		logger.Debug("tool called", zap.String("folder", args.Folder), zap.String("name", args.Name), zap.String("type", args.Type))
		if args.Version == "" || args.Language == "" {
			return mcp.NewToolResultError("version and language are required"), nil
		}
		if args.Folder == "" || args.Name == "" {
			return mcp.NewToolResultError("folder and name are required"), nil
		}
		docType, errResult := parseType(args.Type)
		if errResult != nil {
			return errResult, nil
		}

		page, err := serviceInstance.GetPage(ctx, args.Version, args.Language, docType, args.Folder, args.Name)
		if err != nil {
			logger.Warn("failed to get page", zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("failed to get page: %v", err)), nil
		}
		return textResult(GetPageResponse{Page: page}), nil
	}
}

func getRecommendedItemsHandler(serviceInstance service.Service, logger *zap.Logger) func(ctx context.Context, request mcp.CallToolRequest, args GetRecommendedItemsRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GetRecommendedItemsRequest) (*mcp.CallToolResult, error) {
		logger := callLogger(ctx, logger, "getRecommendedItems")
		logger.Debug("tool called", zap.String("language", args.Language), zap.String("type", args.Type))
		if args.Language == "" {
			return mcp.NewToolResultError("language is required"), nil
		}
		docType, errResult := parseType(args.Type)
		if errResult != nil {
			return errResult, nil
		}

		items, err := serviceInstance.GetRecommendedItems(ctx, args.Language, docType)
		if err != nil {
			logger.Warn("failed to get recommended items", zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("failed to get recommended items: %v", err)), nil
		}
		return textResult(GetRecommendedItemsResponse{Items: vo.RecommendedOrPlaceholder(items)}), nil
	}
}
