package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/scopeiq/internal/partition"
	"github.com/dshills/scopeiq/pkg/types"
)

func categoryNames() []string {
	var out []string
	for _, c := range partition.Categories() {
		out = append(out, string(c))
	}
	return out
}

func chunkTypeNames() []string {
	var out []string
	for _, ct := range types.AllChunkTypes() {
		out = append(out, string(ct))
	}
	return out
}

// shared property definitions
var (
	projectIDProperty = map[string]interface{}{
		"type":        "string",
		"description": "Project identifier; selects the project partition",
	}
	queryProperty = map[string]interface{}{
		"type":        "string",
		"description": "Natural-language question",
	}
	topKProperty = map[string]interface{}{
		"type":        []string{"integer", "string"},
		"description": "Maximum number of results (1-100); numeric strings are accepted",
		"default":     partition.DefaultTopK,
	}
	documentIDProperty = map[string]interface{}{
		"type":        "string",
		"description": "Restrict project results to one document",
	}
	commonWeightProperty = map[string]interface{}{
		"type":        "number",
		"description": "Share of results and score given to common knowledge (0.0-1.0)",
		"minimum":     0.0,
		"maximum":     1.0,
	}
)

// ingestDocumentTool returns the tool definition for ingest_document
func ingestDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_document",
		Description: "Chunk, embed and store extracted document text in a project or common-knowledge partition",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": projectIDProperty,
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Common-knowledge category; used instead of project_id for shared reference material",
					"enum":        categoryNames(),
				},
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Stable document identifier; chunk ids derive from it",
				},
				"document_name": map[string]interface{}{
					"type":        "string",
					"description": "Human-readable document name",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Extracted plain text of the document",
				},
				"metadata": map[string]interface{}{
					"type":                 "object",
					"description":          "Extra string fields copied onto every chunk",
					"additionalProperties": map[string]interface{}{"type": "string"},
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "Re-ingest even if the content is unchanged",
					"default":     false,
				},
			},
			Required: []string{"document_id", "content"},
		},
	}
}

// hybridSearchTool returns the tool definition for hybrid_search
func hybridSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "hybrid_search",
		Description: "Search a project and the common-knowledge partitions together, fusing results by weighted similarity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id":    projectIDProperty,
				"query":         queryProperty,
				"top_k":         topKProperty,
				"document_id":   documentIDProperty,
				"common_weight": commonWeightProperty,
			},
			Required: []string{"project_id", "query"},
		},
	}
}

// smartQueryTool returns the tool definition for smart_query
func smartQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "smart_query",
		Description: "Classify the question and search only the partitions it needs: common knowledge, the project, or both",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id":    projectIDProperty,
				"query":         queryProperty,
				"top_k":         topKProperty,
				"document_id":   documentIDProperty,
				"common_weight": commonWeightProperty,
			},
			Required: []string{"project_id", "query"},
		},
	}
}

// classifyQueryTool returns the tool definition for classify_query
func classifyQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "classify_query",
		Description: "Report whether a question is generic construction knowledge, project specific, or ambiguous",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": queryProperty,
			},
			Required: []string{"query"},
		},
	}
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Search construction documents with content filters and get a summary with a confidence score",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id":  projectIDProperty,
				"query":       queryProperty,
				"top_k":       topKProperty,
				"document_id": documentIDProperty,
				"chunk_types": map[string]interface{}{
					"type":        "array",
					"description": "Keep only these content types",
					"items": map[string]interface{}{
						"type": "string",
						"enum": chunkTypeNames(),
					},
				},
				"require_numbers": map[string]interface{}{
					"type":        "boolean",
					"description": "Keep only chunks containing digits",
					"default":     false,
				},
				"require_measurements": map[string]interface{}{
					"type":        "boolean",
					"description": "Keep only chunks containing dimensions or units",
					"default":     false,
				},
				"common_weight": commonWeightProperty,
			},
			Required: []string{"project_id", "query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report stored vectors and documents per partition",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
