package mcp

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/argnews/newsrag/internal/searcher"
	"github.com/argnews/newsrag/internal/vectorstore"
)

const (
	// ServerName is the MCP server name
	ServerName = "newsrag"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Searcher runs news queries.
type Searcher interface {
	Search(ctx context.Context, req searcher.Request) (*searcher.Response, error)
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	searcher Searcher
	store    vectorstore.Store
	logger   *zap.Logger
}

// NewServer creates a new MCP server instance. The caller owns the searcher
// and the store and closes them after Serve returns.
func NewServer(s Searcher, store vectorstore.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		searcher: s,
		store:    store,
		logger:   logger,
	}
	srv.registerTools()
	return srv
}

// Serve runs the MCP server on stdio until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	return s.Listen(ctx, os.Stdin, os.Stdout)
}

// Listen serves MCP over in and out. Cancellation and end of input are a
// clean shutdown.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	s.logger.Info("mcp server listening on stdio")
	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		s.logger.Info("mcp server stopped")
		return nil
	}
	return err
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchNewsTool(), s.handleSearchNews)
	s.mcp.AddTool(listCollectionsTool(), s.handleListCollections)
	s.mcp.AddTool(collectionInfoTool(), s.handleCollectionInfo)
}
