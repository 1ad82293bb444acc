// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the dream journal to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/reverie/internal/apperr"
	"github.com/starford/reverie/internal/dreamstore"
	"github.com/starford/reverie/internal/journal"
)

// ContractURI is the resource URI of the journal format contract.
const ContractURI = "reverie://journal-format"

// Server wraps the MCP server with journal tools.
type Server struct {
	mcp *server.MCPServer
	svc *journal.Service
	now func() time.Time
}

// New creates a new MCP server with all journal tools registered.
func New(svc *journal.Service, version string) *Server {
	s := &Server{svc: svc, now: time.Now}

	s.mcp = server.NewMCPServer(
		"Reverie",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_dreams",
		mcp.WithDescription("List journal entries, newest first. Optionally restrict to a range of days."),
		mcp.WithString("since", mcp.Description("Earliest day, YYYY-MM-DD or a phrase such as 'last week'")),
		mcp.WithString("until", mcp.Description("Latest day, YYYY-MM-DD or a phrase such as 'yesterday'")),
	), s.listDreams)

	s.mcp.AddTool(mcp.NewTool("dreams_by_day",
		mcp.WithDescription("List journal entries grouped by calendar day, newest day first."),
		mcp.WithString("since", mcp.Description("Earliest day")),
		mcp.WithString("until", mcp.Description("Latest day")),
	), s.dreamsByDay)

	s.mcp.AddTool(mcp.NewTool("read_dream",
		mcp.WithDescription("Read one journal entry by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry id")),
	), s.readDream)

	s.mcp.AddTool(mcp.NewTool("create_dream",
		mcp.WithDescription("Save a new journal entry. Title and content are required. "+
			"Date and time are stamped by the journal. Read the contract first via "+
			"the get_journal_contract tool or the "+ContractURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short title of the dream")),
		mcp.WithString("content", mcp.Required(), mcp.Description("What happened in the dream")),
		mcp.WithString("audioRef", mcp.Description("Reference returned by upload_audio (audio/<name>)")),
	), s.createDream)

	s.mcp.AddTool(mcp.NewTool("delete_dream",
		mcp.WithDescription("Delete a journal entry by id. Deleting an unknown id is not an error."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry id")),
	), s.deleteDream)

	s.mcp.AddTool(mcp.NewTool("search_dreams",
		mcp.WithDescription("Full-text search through entry titles and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default: 20)")),
	), s.searchDreams)

	s.mcp.AddTool(mcp.NewTool("journal_stats",
		mcp.WithDescription("Number of entries recorded per day, newest first."),
		mcp.WithNumber("limit", mcp.Description("Number of days (default: all)")),
	), s.journalStats)

	s.mcp.AddTool(mcp.NewTool("upload_audio",
		mcp.WithDescription("Store a voice recording and return its audioRef for create_dream. "+
			"Accepts a base64 data URI or an http(s) URL. WAV, WebM, Ogg, MP3 and MP4 audio only."),
		mcp.WithString("url", mcp.Required(), mcp.Description("data:audio/...;base64,... URI or http(s) URL")),
	), s.uploadAudio)

	s.mcp.AddTool(mcp.NewTool("get_journal_contract",
		mcp.WithDescription("Returns the dream journal entry format. "+
			"Call this before creating entries to ensure correct structure."),
	), s.getJournalContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Journal Format Contract",
			mcp.WithResourceDescription("Shape and rules of a dream journal entry."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type rangeArgs struct {
	Since string `json:"since"`
	Until string `json:"until"`
}

type searchArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// bindArgs decodes the tool arguments into dst.
func bindArgs(req mcp.CallToolRequest, dst any) error {
	raw, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) filter(req mcp.CallToolRequest) (dreamstore.Filter, error) {
	var args rangeArgs
	if err := bindArgs(req, &args); err != nil {
		return dreamstore.Filter{}, err
	}
	return dreamstore.ParseFilter(args.Since, args.Until, s.now())
}

func (s *Server) listDreams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := s.filter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.List(ctx, f))
}

func (s *Server) dreamsByDay(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := s.filter(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Days(ctx, f))
}

func (s *Server) readDream(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) createDream(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in journal.CreateInput
	if err := bindArgs(req, &in); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	in.UsePending = false
	d, err := s.svc.Create(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) deleteDream(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	removed, err := s.svc.Delete(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !removed {
		return mcp.NewToolResultText(fmt.Sprintf("no entry with id %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) searchDreams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchArgs
	if err := bindArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, args.Query, args.Limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no matches"), nil
	}
	return jsonResult(results)
}

func (s *Server) journalStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchArgs
	if err := bindArgs(req, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	days, err := s.svc.Stats(ctx, args.Limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(days)
}

func (s *Server) getJournalContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(JournalFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     JournalFormatContract,
		},
	}, nil
}
