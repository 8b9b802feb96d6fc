package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/searcher"
	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams       = -32602 // Invalid method parameters
	ErrorCodeInternalError       = -32603 // Internal JSON-RPC error
	ErrorCodeCollectionNotFound  = -32001 // Collection does not exist (not indexed yet)
	ErrorCodeEmptyQuery          = -32002 // Neither prompt nor keywords given
	ErrorCodeUnsupportedEmbedder = -32003 // Unknown embedding strategy
)

// handleSearchNews handles the search_news tool invocation
func (s *Server) handleSearchNews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	kws, err := getStringSlice(args, "keywords")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "keywords must be an array of strings", map[string]interface{}{
			"param":  "keywords",
			"reason": err.Error(),
		})
	}

	req := searcher.Request{
		Query: types.SearchQuery{
			Prompt:          getStringDefault(args, "prompt", ""),
			Keywords:        kws,
			Section:         getStringDefault(args, "section", ""),
			Date:            getStringDefault(args, "date", ""),
			MinKeywordScore: getFloatDefault(args, "min_keyword_score", 0),
			MatchAnyKeyword: getBoolDefault(args, "match_any_keyword", false),
			Limit:           getIntDefault(args, "limit", types.DefaultLimit),
		},
		Strategy:           embedder.Strategy(getStringDefault(args, "embedder", "")),
		SortByKeywordScore: getBoolDefault(args, "sort_by_keyword_score", false),
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		s.logger.Warn("search_news failed", zap.Error(err))
		return nil, mapError(err)
	}

	response := map[string]interface{}{
		"mode":        resp.Mode,
		"embedder":    resp.Strategy,
		"collection":  resp.Collection,
		"count":       len(resp.Results),
		"results":     resp.Results,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListCollections handles the list_collections tool invocation
func (s *Server) handleListCollections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collections, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	response := map[string]interface{}{
		"count":       len(collections),
		"collections": collections,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCollectionInfo handles the collection_info tool invocation
func (s *Server) handleCollectionInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name := strings.TrimSpace(getStringDefault(args, "name", ""))
	if name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "name parameter is required", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	info, err := s.store.CollectionInfo(ctx, name)
	if err != nil {
		return nil, mapError(err)
	}

	response := map[string]interface{}{
		"name":         info.Name,
		"dimension":    info.Dimension,
		"distance":     info.Distance,
		"points_count": info.PointsCount,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// mapError translates domain errors into MCP errors
func mapError(err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		return newMCPError(ErrorCodeEmptyQuery, "prompt or keywords are required", data)
	case errors.Is(err, types.ErrInvalidDate), errors.Is(err, types.ErrInvalidLimit):
		return newMCPError(ErrorCodeInvalidParams, "invalid query", data)
	case errors.Is(err, embedder.ErrUnsupportedStrategy):
		return newMCPError(ErrorCodeUnsupportedEmbedder, "unsupported embedder", data)
	case errors.Is(err, vectorstore.ErrCollectionNotFound):
		return newMCPError(ErrorCodeCollectionNotFound, "collection not found, run the indexer first", data)
	default:
		return newMCPError(ErrorCodeInternalError, "internal error", data)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	switch val := args[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice accepts a JSON array of strings or a comma-separated string
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	switch val := args[key].(type) {
	case nil:
		return nil, nil
	case string:
		return types.ParseKeywordList(val), nil
	case []string:
		return val, nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for i, item := range val {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is %T", i, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected type %T", val)
	}
}
