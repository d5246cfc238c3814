package mcp

import (
	"context"
	"errors"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/scopeiq/internal/classifier"
	"github.com/dshills/scopeiq/internal/domainsearch"
	"github.com/dshills/scopeiq/internal/indexer"
	"github.com/dshills/scopeiq/internal/partition"
	"github.com/dshills/scopeiq/internal/searcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "scopeiq"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Deps are the components the tools call into. The caller owns their
// lifecycle and closes them after Serve returns.
type Deps struct {
	Router     *partition.Router
	Indexer    *indexer.Indexer
	Engine     *searcher.Engine
	Domain     *domainsearch.Searcher
	Classifier *classifier.Classifier
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	router     *partition.Router
	indexer    *indexer.Indexer
	engine     *searcher.Engine
	domain     *domainsearch.Searcher
	classifier *classifier.Classifier
}

// NewServer creates a new MCP server instance
func NewServer(deps Deps) (*Server, error) {
	if deps.Router == nil || deps.Indexer == nil || deps.Engine == nil || deps.Domain == nil {
		return nil, errors.New("router, indexer, engine and domain searcher are required")
	}
	if deps.Classifier == nil {
		deps.Classifier = classifier.Default()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			ServerVersion,
			server.WithToolCapabilities(false),
		),
		router:     deps.Router,
		indexer:    deps.Indexer,
		engine:     deps.Engine,
		domain:     deps.Domain,
		classifier: deps.Classifier,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestDocumentTool(), s.handleIngestDocument)
	s.mcp.AddTool(hybridSearchTool(), s.handleHybridSearch)
	s.mcp.AddTool(smartQueryTool(), s.handleSmartQuery)
	s.mcp.AddTool(classifyQueryTool(), s.handleClassifyQuery)
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
