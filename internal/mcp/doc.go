// Package mcp implements the Model Context Protocol (MCP) server for newsrag.
//
// The server is how the article-generation agents reach the retrieval layer.
// It exposes three tools:
//   - search_news: hybrid search over an indexed collection
//   - list_collections: the collections with dimension and point count
//   - collection_info: details of one collection
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started with:
//
//	newsrag mcp
//
// # Tool: search_news
//
//	Request:
//	{
//	  "name": "search_news",
//	  "arguments": {
//	    "prompt": "inflación y tasas de interés",
//	    "keywords": ["bcra"],
//	    "section": "Economía",
//	    "date": "2024-11-16",
//	    "limit": 5,
//	    "embedder": "minilm"
//	  }
//	}
//
//	Response:
//	{
//	  "mode": "semantic+keyword",
//	  "embedder": "minilm",
//	  "collection": "news_minilm",
//	  "count": 1,
//	  "results": [
//	    {
//	      "id": 812,
//	      "score": 0.83,
//	      "original_id": 10455,
//	      "title": "El BCRA mantuvo la tasa",
//	      "section": "Economía",
//	      "keywords": [{"term": "bcra", "score": 0.91}],
//	      "published_at": "2024-11-16",
//	      "newspaper": "Clarín"
//	    }
//	  ],
//	  "duration_ms": 12
//	}
//
// Keyword-only queries (no prompt) return results without a score, ordered
// by point id.
//
// # Errors
//
// Domain errors are mapped to JSON-RPC error codes:
//
//	-32602  invalid parameters (bad date, limit out of range)
//	-32603  internal error
//	-32001  collection not found (the strategy was never indexed)
//	-32002  empty query (neither prompt nor keywords)
//	-32003  unsupported embedder
package mcp
