// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the Ithaca journal for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ithaca/internal/game"
	"github.com/starford/ithaca/internal/parser"
)

const contractURI = "ithaca://journal-contract"

// Server wraps the MCP server with Ithaca tools.
type Server struct {
	mcp *server.MCPServer
	svc *game.Service
}

// New creates a new MCP server with all Ithaca tools registered.
func New(svc *game.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ithaca",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List active journal entries, newest first, with id, day, title and tags."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by (without the #)")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("read_entry",
		mcp.WithDescription("Read the full text of a journal entry."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Entry id as returned by list_entries")),
	), s.readEntry)

	s.mcp.AddTool(mcp.NewTool("search_journal",
		mcp.WithDescription("Full-text search through active journal entries."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchJournal)

	s.mcp.AddTool(mcp.NewTool("write_entry",
		mcp.WithDescription("Write a new journal entry for the current day. "+
			"Read the contract first via get_journal_contract or the "+contractURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Entry text")),
		mcp.WithBoolean("confirm", mcp.Description("Confirm the entry so its words count toward progress")),
	), s.writeEntry)

	s.mcp.AddTool(mcp.NewTool("get_progress",
		mcp.WithDescription("Current day, total words, unlocked fragments and story flags."),
	), s.getProgress)

	s.mcp.AddTool(mcp.NewTool("list_books",
		mcp.WithDescription("List the books on the player's shelf."),
	), s.listBooks)

	s.mcp.AddTool(mcp.NewTool("read_book",
		mcp.WithDescription("Read the content of a book on the shelf."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Book id as returned by list_books")),
	), s.readBook)

	s.mcp.AddTool(mcp.NewTool("get_catalog",
		mcp.WithDescription("Word milestones and the fragments and books they lead to."),
	), s.getCatalog)

	s.mcp.AddTool(mcp.NewTool("get_journal_contract",
		mcp.WithDescription("Returns how entries are counted, confirmed and tagged."),
	), s.getJournalContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Journal Contract",
			mcp.WithResourceDescription("How journal entries are counted, confirmed and tagged."),
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

type entrySummary struct {
	ID        string   `json:"id"`
	Day       int      `json:"day"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	Confirmed bool     `json:"confirmed"`
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.svc.ListEntries(ctx, strings.TrimPrefix(req.GetString("tag", ""), "#"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no entries found"), nil
	}
	out := make([]entrySummary, len(entries))
	for i, e := range entries {
		out[i] = entrySummary{ID: e.ID, Day: e.Day, Title: parser.Title(e.Content), Tags: e.Tags, Confirmed: e.IsConfirmed}
	}
	return jsonResult(out), nil
}

func (s *Server) readEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.GetEntry(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(e.Content), nil
}

func (s *Server) searchJournal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) writeEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.svc.CreateEntry(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.UpdateEntry(ctx, e.ID, content, ""); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if req.GetBool("confirm", false) {
		if _, err := s.svc.ConfirmEntry(ctx, e.ID); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("confirmed: %s", e.ID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", e.ID)), nil
}

func (s *Server) getProgress(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.svc.Progress(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Room layout is opaque to the journal.
	p.Room = nil
	return jsonResult(p), nil
}

type bookSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Mystery  bool   `json:"mystery"`
	ReadOnly bool   `json:"readOnly"`
}

func (s *Server) listBooks(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	books, err := s.svc.Books(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(books) == 0 {
		return mcp.NewToolResultText("the shelf is empty"), nil
	}
	out := make([]bookSummary, len(books))
	for i, b := range books {
		out[i] = bookSummary{ID: b.ID, Title: b.Title, Mystery: b.IsMystery, ReadOnly: b.IsReadOnly}
	}
	return jsonResult(out), nil
}

func (s *Server) readBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.svc.Book(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(b.Content), nil
}

type milestoneView struct {
	Threshold int    `json:"threshold"`
	Fragment  string `json:"fragment"`
	Title     string `json:"title,omitempty"`
}

type recipeView struct {
	Book      string   `json:"book"`
	Title     string   `json:"title"`
	Fragments []string `json:"fragments"`
}

func (s *Server) getCatalog(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c := s.svc.Catalog()
	out := struct {
		Milestones []milestoneView `json:"milestones"`
		Recipes    []recipeView    `json:"recipes"`
	}{Milestones: []milestoneView{}, Recipes: []recipeView{}}

	for _, m := range c.Milestones {
		v := milestoneView{Threshold: m.Threshold, Fragment: m.FragmentID}
		if f, ok := c.Fragment(m.FragmentID); ok {
			v.Title = f.Title
		}
		out.Milestones = append(out.Milestones, v)
	}
	for _, r := range c.Recipes {
		out.Recipes = append(out.Recipes, recipeView{Book: r.BookID, Title: r.Title, Fragments: r.RequiredFragments})
	}
	return jsonResult(out), nil
}

func (s *Server) getJournalContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(JournalContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     JournalContract,
		},
	}, nil
}
