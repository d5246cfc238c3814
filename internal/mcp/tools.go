package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/scopeiq/internal/domainsearch"
	"github.com/dshills/scopeiq/internal/indexer"
	"github.com/dshills/scopeiq/internal/partition"
	"github.com/dshills/scopeiq/internal/searcher"
	"github.com/dshills/scopeiq/internal/storage"
	"github.com/dshills/scopeiq/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeIngestInProgress = -32002 // The document is already being ingested
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
	ErrorCodeConfiguration    = -32005 // Missing or rejected credential
	ErrorCodeTransient        = -32006 // Rate limit or timeout, retry later
)

// handleIngestDocument handles the ingest_document tool invocation
func (s *Server) handleIngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	documentID := getStringDefault(args, "document_id", "")
	if strings.TrimSpace(documentID) == "" {
		return nil, missingParam("document_id")
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, missingParam("content")
	}

	p, err := targetPartition(args)
	if err != nil {
		return nil, err
	}

	extra, err := getStringMap(args, "metadata")
	if err != nil {
		return nil, err
	}

	report, err := s.indexer.IngestDocument(ctx, indexer.Document{
		ID:        documentID,
		Name:      getStringDefault(args, "document_name", ""),
		Content:   content,
		Partition: p,
		Extra:     extra,
	}, &indexer.Options{Force: getBoolDefault(args, "force", false)})
	if errors.Is(err, indexer.ErrIngestInProgress) {
		return nil, newMCPError(ErrorCodeIngestInProgress, "document is already being ingested", map[string]interface{}{
			"document_id": documentID,
			"partition":   p.Namespace,
		})
	}
	if err != nil {
		return nil, operationError("ingestion failed", err)
	}

	response := map[string]interface{}{
		"run_id":      report.RunID,
		"document_id": report.DocumentID,
		"partition":   report.Namespace,
		"total":       report.Total,
		"succeeded":   report.Succeeded,
		"skipped":     report.Skipped,
		"failed":      report.Failed,
		"duration_ms": report.Duration.Milliseconds(),
	}
	if len(report.Failures) > 0 {
		failures := make([]map[string]interface{}, 0, len(report.Failures))
		for _, f := range report.Failures {
			failures = append(failures, map[string]interface{}{
				"chunk_id":    f.ChunkID,
				"chunk_index": f.ChunkIndex,
				"error":       f.Err.Error(),
			})
		}
		response["failures"] = failures
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleHybridSearch handles the hybrid_search tool invocation
func (s *Server) handleHybridSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := parseQueryArgs(request)
	if err != nil {
		return nil, err
	}

	resp, err := s.engine.HybridQuery(ctx, req)
	if err != nil {
		return nil, operationError("search failed", err)
	}

	return mcp.NewToolResultText(formatJSON(engineResponse(resp))), nil
}

// handleSmartQuery handles the smart_query tool invocation
func (s *Server) handleSmartQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := parseQueryArgs(request)
	if err != nil {
		return nil, err
	}

	resp, err := s.engine.SmartQuery(ctx, req)
	if err != nil {
		return nil, operationError("search failed", err)
	}

	return mcp.NewToolResultText(formatJSON(engineResponse(resp))), nil
}

// handleClassifyQuery handles the classify_query tool invocation
func (s *Server) handleClassifyQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	query, err := requireQuery(args)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(formatJSON(intentJSON(s.classifier.Classify(query)))), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := parseQueryArgs(request)
	if err != nil {
		return nil, err
	}
	args := request.Params.Arguments.(map[string]interface{})

	chunkTypes, err := getChunkTypes(args)
	if err != nil {
		return nil, err
	}

	resp, err := s.domain.Search(ctx, req.ProjectID, req.Query, domainsearch.Options{
		DocumentID:          req.DocumentID,
		TopK:                req.TopK,
		ChunkTypes:          chunkTypes,
		RequireNumbers:      getBoolDefault(args, "require_numbers", false),
		RequireMeasurements: getBoolDefault(args, "require_measurements", false),
		CommonWeight:        req.CommonWeight,
	})
	if err != nil {
		return nil, operationError("search failed", err)
	}

	attempted := make([]string, len(resp.Attempted))
	for i, st := range resp.Attempted {
		attempted[i] = string(st)
	}

	response := map[string]interface{}{
		"results":    resultsJSON(resp.Results),
		"summary":    resp.Summary,
		"confidence": round(resp.Confidence),
		"strategy":   string(resp.Strategy),
		"attempted":  attempted,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.router.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(statusJSON(status))), nil
}

// Helper functions

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

func missingParam(name string) error {
	return newMCPError(ErrorCodeInvalidParams, name+" parameter is required", map[string]interface{}{
		"param":  name,
		"reason": "missing or empty",
	})
}

func invalidParam(name string, err error) error {
	return newMCPError(ErrorCodeInvalidParams, "invalid "+name, map[string]interface{}{
		"param":  name,
		"reason": err.Error(),
	})
}

// operationError maps an error class to a code so clients can tell a missing
// credential from a rate limit from a bad request
func operationError(message string, err error) error {
	class := types.Classify(err)

	code := ErrorCodeInternalError
	switch class {
	case types.ClassConfiguration:
		code = ErrorCodeConfiguration
	case types.ClassTransient:
		code = ErrorCodeTransient
	case types.ClassPermanent:
		code = ErrorCodeInvalidParams
		if errors.Is(err, types.ErrEmptyInput) {
			code = ErrorCodeEmptyQuery
		}
	}

	data := map[string]interface{}{
		"error": err.Error(),
		"class": string(class),
		"hint":  class.Hint(),
	}
	var upstream *types.UpstreamError
	if errors.As(err, &upstream) && upstream.RetryAfter > 0 {
		data["retry_after_ms"] = upstream.RetryAfter.Milliseconds()
	}
	return newMCPError(code, message, data)
}

// targetPartition picks the common category when given, else the project
func targetPartition(args map[string]interface{}) (partition.Partition, error) {
	if category := getStringDefault(args, "category", ""); category != "" {
		c, err := partition.ParseCategory(category)
		if err != nil {
			return partition.Partition{}, invalidParam("category", err)
		}
		p, err := partition.ForCategory(c)
		if err != nil {
			return partition.Partition{}, invalidParam("category", err)
		}
		return p, nil
	}

	projectID := getStringDefault(args, "project_id", "")
	if strings.TrimSpace(projectID) == "" {
		return partition.Partition{}, newMCPError(ErrorCodeInvalidParams, "project_id or category is required", map[string]interface{}{
			"param":  "project_id",
			"reason": "missing or empty",
		})
	}
	p, err := partition.ForProject(projectID)
	if err != nil {
		return partition.Partition{}, invalidParam("project_id", err)
	}
	return p, nil
}

func requireQuery(args map[string]interface{}) (string, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "", newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	return query, nil
}

// parseQueryArgs reads the arguments shared by every search tool
func parseQueryArgs(request mcp.CallToolRequest) (searcher.SmartRequest, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return searcher.SmartRequest{}, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	projectID := getStringDefault(args, "project_id", "")
	if strings.TrimSpace(projectID) == "" {
		return searcher.SmartRequest{}, missingParam("project_id")
	}
	query, err := requireQuery(args)
	if err != nil {
		return searcher.SmartRequest{}, err
	}

	topK, err := partition.CoerceTopK(args["top_k"], partition.DefaultTopK)
	if err != nil {
		return searcher.SmartRequest{}, invalidParam("top_k", err)
	}

	req := searcher.SmartRequest{
		ProjectID:  projectID,
		Query:      query,
		TopK:       topK,
		DocumentID: getStringDefault(args, "document_id", ""),
	}

	if raw, present := args["common_weight"]; present && raw != nil {
		w, ok := raw.(float64)
		if !ok || math.IsNaN(w) || w < 0 || w > 1 {
			return searcher.SmartRequest{}, newMCPError(ErrorCodeInvalidParams, "common_weight must be a number between 0 and 1", map[string]interface{}{
				"param": "common_weight",
				"value": raw,
			})
		}
		req.CommonWeight = &w
	}

	return req, nil
}

func getChunkTypes(args map[string]interface{}) ([]types.ChunkType, error) {
	raw, ok := args["chunk_types"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, invalidParam("chunk_types", errors.New("must be an array of strings"))
	}

	out := make([]types.ChunkType, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		ct := types.ChunkType(strings.ToLower(s))
		if !ok || !ct.Valid() {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid chunk type", map[string]interface{}{
				"param":   "chunk_types",
				"value":   item,
				"allowed": chunkTypeNames(),
			})
		}
		out = append(out, ct)
	}
	return out, nil
}

func getStringMap(args map[string]interface{}, key string) (map[string]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, invalidParam(key, errors.New("must be an object"))
	}

	out := make(map[string]string, len(obj))
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			return nil, invalidParam(key, fmt.Errorf("value of %q must be a string", k))
		}
		out[k] = s
	}
	return out, nil
}

func engineResponse(resp *searcher.Response) map[string]interface{} {
	out := map[string]interface{}{
		"strategy":    string(resp.Strategy),
		"results":     resultsJSON(resp.Results),
		"project_k":   resp.ProjectK,
		"common_k":    resp.CommonK,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	if resp.Intent != nil {
		out["intent"] = intentJSON(*resp.Intent)
	}
	return out
}

func intentJSON(intent types.QueryIntent) map[string]interface{} {
	return map[string]interface{}{
		"is_generic":          intent.IsGeneric,
		"is_project_specific": intent.IsProjectSpecific,
		"is_ambiguous":        intent.IsAmbiguous(),
		"generic_terms":       nonNil(intent.GenericTerms),
		"project_terms":       nonNil(intent.ProjectTerms),
	}
}

func resultsJSON(results []types.SearchResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(results))
	for i := range results {
		r := &results[i]
		out = append(out, map[string]interface{}{
			"id":               r.ID,
			"rank":             r.Rank,
			"content":          r.Content,
			"similarity":       round(r.Similarity()),
			"adjusted_score":   round(r.AdjustedScore),
			"source":           string(r.Metadata.Source),
			"partition":        r.Metadata.Partition,
			"document_id":      r.Metadata.DocumentID,
			"document_name":    r.Metadata.DocumentName,
			"chunk_type":       string(r.Metadata.ChunkType),
			"chunk_index":      r.Metadata.ChunkIndex,
			"has_numbers":      r.Metadata.HasNumbers,
			"has_measurements": r.Metadata.HasMeasurements,
			"matched_terms":    nonNil(r.Metadata.MatchedTerms),
		})
	}
	return out
}

func statusJSON(status *storage.Status) map[string]interface{} {
	partitions := make([]map[string]interface{}, 0, len(status.Namespaces))
	for _, ns := range status.Namespaces {
		partitions = append(partitions, map[string]interface{}{
			"partition": ns.Namespace,
			"vectors":   ns.Vectors,
			"documents": ns.Documents,
		})
	}
	return map[string]interface{}{
		"partitions":     partitions,
		"total_vectors":  status.TotalVectors,
		"size_mb":        fmt.Sprintf("%.2f", status.SizeMB),
		"schema_version": status.SchemaVersion,
		"build_mode":     status.BuildMode,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func round(f float64) float64 {
	return math.Round(f*10000) / 10000
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

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
