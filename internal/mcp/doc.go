// Package mcp implements the Model Context Protocol (MCP) server for ScopeIQ.
//
// The server exposes the retrieval core to chat assistants over stdio:
//   - ingest_document: chunk, embed and store extracted document text
//   - hybrid_search: fused project + common-knowledge search
//   - smart_query: classifier-routed search
//   - classify_query: lexical query intent
//   - search_documents: filtered search with summary and confidence
//   - get_status: per-partition counts
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries protocol messages only. Logs go to stderr.
//
// # Tool: ingest_document
//
//	{
//	  "name": "ingest_document",
//	  "arguments": {
//	    "project_id": "harbor-view",
//	    "document_id": "a-601",
//	    "document_name": "Door Schedule",
//	    "content": "...extracted text...",
//	    "force": false
//	  }
//	}
//
// Pass "category" (building_codes, safety, materials, standards, general)
// instead of "project_id" to store shared reference material.
//
// The response reports total, succeeded, skipped and failed chunk counts plus
// the failed chunk indices, so a client can retry just those.
//
// # Tool: smart_query
//
//	{
//	  "name": "smart_query",
//	  "arguments": {
//	    "project_id": "harbor-view",
//	    "query": "what's the budget for the change order on permit 4471",
//	    "top_k": 10
//	  }
//	}
//
// The response names the strategy taken (common_only, project_only or hybrid)
// and the classifier's matched terms.
//
// # Error Codes
//
// Invalid parameters return -32602 and an empty query returns -32004.
// Failures during search or ingestion are classified:
//   - -32005: configuration problem such as a missing or rejected credential
//   - -32006: transient condition such as a rate limit or timeout; retry later
//   - -32603: anything else
//
// Error data carries the error text, its class and a hint.
package mcp
