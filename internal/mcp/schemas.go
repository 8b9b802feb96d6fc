package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/pkg/types"
)

func strategyNames() []string {
	out := make([]string, 0, len(embedder.Strategies()))
	for _, s := range embedder.Strategies() {
		out = append(out, string(s))
	}
	return out
}

// searchNewsTool returns the tool definition for search_news
func searchNewsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_news",
		Description: "Search indexed Argentine news articles by meaning, keywords, section and date",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query. Optional when keywords are given",
				},
				"keywords": map[string]interface{}{
					"type":        "array",
					"description": "Article keywords (lemmas) to filter on",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"match_any_keyword": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, an article needs one of the keywords instead of all of them",
					"default":     false,
				},
				"min_keyword_score": map[string]interface{}{
					"type":        "number",
					"description": "Minimum keyword relevance score",
					"minimum":     0.0,
				},
				"section": map[string]interface{}{
					"type":        "string",
					"description": "Exact section name, e.g. Economía",
				},
				"date": map[string]interface{}{
					"type":        "string",
					"description": "Publication day in YYYY-MM-DD format",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     types.DefaultLimit,
					"minimum":     1,
					"maximum":     types.MaxLimit,
				},
				"embedder": map[string]interface{}{
					"type":        "string",
					"description": "Embedding strategy whose collection is searched",
					"enum":        strategyNames(),
				},
				"sort_by_keyword_score": map[string]interface{}{
					"type":        "boolean",
					"description": "Order results by their best matching keyword score",
					"default":     false,
				},
			},
		},
	}
}

// listCollectionsTool returns the tool definition for list_collections
func listCollectionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_collections",
		Description: "List the vector collections with their dimension and point count",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// collectionInfoTool returns the tool definition for collection_info
func collectionInfoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "collection_info",
		Description: "Describe one vector collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Collection name, e.g. news_minilm",
				},
			},
			Required: []string{"name"},
		},
	}
}
